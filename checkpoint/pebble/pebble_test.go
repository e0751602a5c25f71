package pebble

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/davidvella/timerstate/checkpoint"
	"github.com/davidvella/timerstate/checkpoint/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(Options{
		Path:         filepath.Join(t.TempDir(), "checkpoints"),
		CacheSize:    8 << 20,
		MaxOpenFiles: 100,
		Logger:       zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) checkpoint.Store {
		return setupTestStore(t)
	})
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoints")
	ctx := context.Background()
	key := checkpoint.Key{CheckpointID: 3, Service: "svc"}

	s, err := NewStore(Options{Path: path, CacheSize: 1 << 20, Sync: true})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, key, []byte("durable")))
	require.NoError(t, s.Close())

	s, err = NewStore(Options{Path: path, CacheSize: 1 << 20})
	require.NoError(t, err)
	defer s.Close()

	data, err := s.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("durable"), data)
}

func TestKeyEncoding(t *testing.T) {
	keys := []checkpoint.Key{
		{CheckpointID: -5, Service: ""},
		{CheckpointID: 0, Service: "a"},
		{CheckpointID: 1 << 40, Service: "timers/with/slash"},
	}
	for _, k := range keys {
		got, err := decodeKey(encodeKey(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := decodeKey([]byte("other/key"))
	assert.Error(t, err)
}
