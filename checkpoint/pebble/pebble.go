// Package pebble implements checkpoint.Store on top of a Pebble database.
package pebble

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/cockroachdb/pebble"
	"github.com/davidvella/timerstate/checkpoint"
	"go.uber.org/zap"
)

// keyPrefix namespaces timer checkpoints inside the database.
var keyPrefix = []byte("timers/")

// Options configures the storage.
type Options struct {
	Path         string
	CacheSize    int64
	MaxOpenFiles int
	// Sync forces an fsync on every Save and Delete.
	Sync   bool
	Logger *zap.Logger
}

// Store implements checkpoint.Store using Pebble.
type Store struct {
	db           *pebble.DB
	writeOptions *pebble.WriteOptions
	logger       *zap.Logger
}

func NewStore(opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(opts.Path, 0o755); err != nil {
		return nil, err
	}

	cache := pebble.NewCache(opts.CacheSize)
	defer cache.Unref()

	db, err := pebble.Open(opts.Path, &pebble.Options{
		Cache:        cache,
		MaxOpenFiles: opts.MaxOpenFiles,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", opts.Path, err)
	}

	writeOptions := pebble.NoSync
	if opts.Sync {
		writeOptions = pebble.Sync
	}

	logger.Info("opened checkpoint store", zap.String("path", opts.Path))
	return &Store{
		db:           db,
		writeOptions: writeOptions,
		logger:       logger,
	}, nil
}

func encodeKey(key checkpoint.Key) []byte {
	buf := make([]byte, 0, len(keyPrefix)+8+len(key.Service))
	buf = append(buf, keyPrefix...)
	// flip the sign bit so negative ids sort before positive ones
	buf = binary.BigEndian.AppendUint64(buf, uint64(key.CheckpointID)^(1<<63))
	return append(buf, key.Service...)
}

func decodeKey(raw []byte) (checkpoint.Key, error) {
	if !bytes.HasPrefix(raw, keyPrefix) || len(raw) < len(keyPrefix)+8 {
		return checkpoint.Key{}, fmt.Errorf("malformed checkpoint key %q", raw)
	}
	rest := raw[len(keyPrefix):]
	return checkpoint.Key{
		CheckpointID: int64(binary.BigEndian.Uint64(rest[:8]) ^ (1 << 63)),
		Service:      string(rest[8:]),
	}, nil
}

func (s *Store) Save(_ context.Context, key checkpoint.Key, data []byte) error {
	if err := s.db.Set(encodeKey(key), data, s.writeOptions); err != nil {
		return err
	}
	s.logger.Debug("saved checkpoint",
		zap.Int64("checkpoint_id", key.CheckpointID),
		zap.String("service", key.Service),
		zap.Int("bytes", len(data)))
	return nil
}

func (s *Store) Load(_ context.Context, key checkpoint.Key) ([]byte, error) {
	value, closer, err := s.db.Get(encodeKey(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", checkpoint.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	defer closer.Close()

	return append([]byte(nil), value...), nil
}

func (s *Store) Delete(_ context.Context, key checkpoint.Key) error {
	return s.db.Delete(encodeKey(key), s.writeOptions)
}

func (s *Store) List(_ context.Context) ([]checkpoint.Key, error) {
	upper := append(append([]byte(nil), keyPrefix[:len(keyPrefix)-1]...), keyPrefix[len(keyPrefix)-1]+1)

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: keyPrefix,
		UpperBound: upper,
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var keys []checkpoint.Key
	for iter.First(); iter.Valid(); iter.Next() {
		key, err := decodeKey(iter.Key())
		if err != nil {
			s.logger.Warn("skipping malformed key", zap.Error(err))
			continue
		}
		keys = append(keys, key)
	}
	return keys, iter.Error()
}

func (s *Store) Close() error {
	s.logger.Info("closing checkpoint store")
	return s.db.Close()
}
