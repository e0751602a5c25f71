// Package storetest holds the behaviour every checkpoint.Store must share.
package storetest

import (
	"context"
	"testing"

	"github.com/davidvella/timerstate/checkpoint"
	"github.com/davidvella/timerstate/timers"
	"github.com/davidvella/timerstate/typeutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises a store created by newStore. The store is closed by Run.
func Run(t *testing.T, newStore func(t *testing.T) checkpoint.Store) {
	t.Run("save load delete", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()

		key := checkpoint.Key{CheckpointID: 7, Service: "window-timers"}
		_, err := s.Load(ctx, key)
		assert.ErrorIs(t, err, checkpoint.ErrNotFound)

		require.NoError(t, s.Save(ctx, key, []byte("first")))
		require.NoError(t, s.Save(ctx, key, []byte("second")))

		data, err := s.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), data)

		require.NoError(t, s.Delete(ctx, key))
		require.NoError(t, s.Delete(ctx, key))
		_, err = s.Load(ctx, key)
		assert.ErrorIs(t, err, checkpoint.ErrNotFound)
	})

	t.Run("list order", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()

		keys := []checkpoint.Key{
			{CheckpointID: 10, Service: "b"},
			{CheckpointID: 2, Service: "a"},
			{CheckpointID: 10, Service: "a"},
			{CheckpointID: -1, Service: "a"},
		}
		for _, k := range keys {
			require.NoError(t, s.Save(ctx, k, []byte(k.String())))
		}

		got, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []checkpoint.Key{
			{CheckpointID: -1, Service: "a"},
			{CheckpointID: 2, Service: "a"},
			{CheckpointID: 10, Service: "a"},
			{CheckpointID: 10, Service: "b"},
		}, got)

		latest, err := checkpoint.Latest(ctx, s, "a")
		require.NoError(t, err)
		assert.Equal(t, checkpoint.Key{CheckpointID: 10, Service: "a"}, latest)

		_, err = checkpoint.Latest(ctx, s, "missing")
		assert.ErrorIs(t, err, checkpoint.ErrNotFound)
	})

	t.Run("snapshot round trip", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()

		registry := typeutils.NewRegistry()
		typeutils.RegisterBuiltins(registry)

		snap, err := timers.NewSnapshot[string, string](
			typeutils.StringSerializer{},
			typeutils.StringSerializer{},
			timers.SetOf(timers.Timer[string, string]{Timestamp: 100, Key: "a", Namespace: "x"}),
			nil,
		)
		require.NoError(t, err)

		key := checkpoint.Key{CheckpointID: 1, Service: "svc"}
		n, err := checkpoint.Save(ctx, s, key, snap, typeutils.StringSerializer{}, typeutils.StringSerializer{})
		require.NoError(t, err)
		assert.Positive(t, n)

		restored, err := checkpoint.Load[string, string](ctx, s, key, registry)
		require.NoError(t, err)
		assert.Equal(t, snap.EventTimeTimers(), restored.EventTimeTimers())
		assert.Nil(t, restored.ProcessingTimeTimers())
		assert.False(t, snap.Equal(restored))
	})
}
