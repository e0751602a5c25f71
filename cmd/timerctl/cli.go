package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/davidvella/timerstate/checkpoint"
	"github.com/davidvella/timerstate/checkpoint/pebble"
	"github.com/davidvella/timerstate/config"
	"github.com/davidvella/timerstate/timers"
	"github.com/davidvella/timerstate/typeutils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errUnsupportedType = errors.New("unsupported type, use string or int64")

type globalFlags struct {
	configFile string
	dbPath     string
}

func buildCLI() *cobra.Command {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:           "timerctl",
		Short:         "Inspect timer checkpoints",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "timerctl.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&flags.dbPath, "db", "", "checkpoint store path, overrides store.path")

	rootCmd.AddCommand(buildListCommand(&flags))
	rootCmd.AddCommand(buildInspectCommand(&flags))
	rootCmd.AddCommand(buildDeleteCommand(&flags))

	return rootCmd
}

func openStore(flags *globalFlags) (checkpoint.Store, *zap.Logger, error) {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return nil, nil, err
	}
	if flags.dbPath != "" {
		cfg.Store.Path = flags.dbPath
	}

	logger, err := cfg.Log.NewZapLogger()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	store, err := pebble.NewStore(pebble.Options{
		Path:         cfg.Store.Path,
		CacheSize:    cfg.Store.CacheSize,
		MaxOpenFiles: cfg.Store.MaxOpenFiles,
		Sync:         cfg.Store.Sync,
		Logger:       logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return store, logger, nil
}

func buildListCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored checkpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, logger, err := openStore(flags)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			defer store.Close()

			keys, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
}

func buildInspectCommand(flags *globalFlags) *cobra.Command {
	var (
		service       string
		checkpointID  int64
		keyType       string
		namespaceType string
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the timers of one checkpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			inspectFn, err := inspectorFor(keyType, namespaceType)
			if err != nil {
				return err
			}

			store, logger, err := openStore(flags)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			defer store.Close()

			key := checkpoint.Key{CheckpointID: checkpointID, Service: service}
			if !cmd.Flags().Changed("checkpoint") {
				if key, err = checkpoint.Latest(cmd.Context(), store, service); err != nil {
					return err
				}
			}
			return inspectFn(cmd.Context(), cmd.OutOrStdout(), store, key)
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "timer service name")
	cmd.Flags().Int64Var(&checkpointID, "checkpoint", 0, "checkpoint id, latest when omitted")
	cmd.Flags().StringVar(&keyType, "key-type", "string", "key type: string or int64")
	cmd.Flags().StringVar(&namespaceType, "namespace-type", "string", "namespace type: string or int64")
	_ = cmd.MarkFlagRequired("service")

	return cmd
}

func buildDeleteCommand(flags *globalFlags) *cobra.Command {
	var (
		service      string
		checkpointID int64
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete one checkpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, logger, err := openStore(flags)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			defer store.Close()

			key := checkpoint.Key{CheckpointID: checkpointID, Service: service}
			if err := store.Delete(cmd.Context(), key); err != nil {
				return err
			}
			logger.Info("deleted checkpoint", zap.Stringer("key", key))
			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "timer service name")
	cmd.Flags().Int64Var(&checkpointID, "checkpoint", 0, "checkpoint id")
	_ = cmd.MarkFlagRequired("service")
	_ = cmd.MarkFlagRequired("checkpoint")

	return cmd
}

type inspector func(ctx context.Context, w io.Writer, store checkpoint.Store, key checkpoint.Key) error

func inspectorFor(keyType, namespaceType string) (inspector, error) {
	switch keyType + "/" + namespaceType {
	case "string/string":
		return inspect[string, string], nil
	case "string/int64":
		return inspect[string, int64], nil
	case "int64/string":
		return inspect[int64, string], nil
	case "int64/int64":
		return inspect[int64, int64], nil
	default:
		return nil, fmt.Errorf("%w: key %q, namespace %q", errUnsupportedType, keyType, namespaceType)
	}
}

func inspect[K, N comparable](ctx context.Context, w io.Writer, store checkpoint.Store, key checkpoint.Key) error {
	registry := typeutils.NewRegistry()
	typeutils.RegisterBuiltins(registry)

	snap, err := checkpoint.Load[K, N](ctx, store, key, registry)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "checkpoint: %s\n", key)
	fmt.Fprintf(w, "key serializer: %s v%d\n", snap.KeySerializerSnapshot().Identifier(), snap.KeySerializerSnapshot().CurrentVersion())
	fmt.Fprintf(w, "namespace serializer: %s v%d\n", snap.NamespaceSerializerSnapshot().Identifier(), snap.NamespaceSerializerSnapshot().CurrentVersion())
	printTimers(w, "event-time", snap.EventTimeTimers())
	printTimers(w, "processing-time", snap.ProcessingTimeTimers())
	return nil
}

func printTimers[K, N comparable](w io.Writer, domain string, set timers.Set[K, N]) {
	if set == nil {
		fmt.Fprintf(w, "%s timers: absent\n", domain)
		return
	}
	fmt.Fprintf(w, "%s timers: %d\n", domain, set.Len())
	for _, t := range set.Sorted(timers.CompareTimestamp[K, N]) {
		fmt.Fprintf(w, "  %s\n", t)
	}
}
