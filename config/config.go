// Package config loads the YAML configuration of timerctl.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config represents the complete configuration structure.
type Config struct {
	Store Store  `yaml:"store"`
	Log   Logger `yaml:"log"`
}

// Store configures the pebble checkpoint store.
type Store struct {
	Path         string `yaml:"path"`
	CacheSize    int64  `yaml:"cache_size"`
	MaxOpenFiles int    `yaml:"max_open_files"`
	Sync         bool   `yaml:"sync"`
}

// Logger configures the zap logger.
type Logger struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level"`
	// Encoding is "json" or "console". Defaults to "console".
	Encoding string `yaml:"encoding"`
	// OutputFile is the log destination, stderr when empty.
	OutputFile string `yaml:"output_file"`
}

func Default() Config {
	return Config{
		Store: Store{
			Path:         "data/checkpoints",
			CacheSize:    64 << 20,
			MaxOpenFiles: 100,
		},
		Log: Logger{
			Level:    "info",
			Encoding: "console",
		},
	}
}

// Load reads the file at path over the defaults. A missing file yields the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("%w: store.path is empty", ErrInvalidConfig)
	}
	if c.Store.CacheSize < 0 {
		return fmt.Errorf("%w: store.cache_size is negative", ErrInvalidConfig)
	}
	switch c.Log.Encoding {
	case "", "json", "console":
	default:
		return fmt.Errorf("%w: log.encoding %q, only json or console", ErrInvalidConfig, c.Log.Encoding)
	}
	return nil
}

// NewZapLogger builds a zap logger for this logging configuration.
func (l Logger) NewZapLogger() (*zap.Logger, error) {
	encoding := l.Encoding
	if encoding == "" {
		encoding = "console"
	}
	output := "stderr"
	if l.OutputFile != "" {
		output = l.OutputFile
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
	}

	return zap.Config{
		Level:            zap.NewAtomicLevelAt(parseLevel(l.Level)),
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{output},
	}.Build()
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}
