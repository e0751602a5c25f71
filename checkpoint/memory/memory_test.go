package memory_test

import (
	"context"
	"testing"

	"github.com/davidvella/timerstate/checkpoint"
	"github.com/davidvella/timerstate/checkpoint/memory"
	"github.com/davidvella/timerstate/checkpoint/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(*testing.T) checkpoint.Store {
		return memory.NewStore()
	})
}

func TestStore_CopiesData(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	key := checkpoint.Key{CheckpointID: 1, Service: "svc"}

	data := []byte("abc")
	require.NoError(t, s.Save(ctx, key, data))
	data[0] = 'x'

	got, err := s.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestStore_Closed(t *testing.T) {
	s := memory.NewStore()
	require.NoError(t, s.Close())

	ctx := context.Background()
	key := checkpoint.Key{CheckpointID: 1}
	assert.ErrorIs(t, s.Save(ctx, key, nil), checkpoint.ErrStoreClosed)
	_, err := s.Load(ctx, key)
	assert.ErrorIs(t, err, checkpoint.ErrStoreClosed)
	assert.ErrorIs(t, s.Delete(ctx, key), checkpoint.ErrStoreClosed)
	_, err = s.List(ctx)
	assert.ErrorIs(t, err, checkpoint.ErrStoreClosed)
}
