package checkpoint

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"

	"github.com/davidvella/timerstate/timers"
	"github.com/davidvella/timerstate/typeutils"
)

var (
	ErrNotFound    = errors.New("checkpoint: not found")
	ErrStoreClosed = errors.New("checkpoint: store is closed")
)

// Key identifies the timers of one timer service within one checkpoint.
type Key struct {
	CheckpointID int64
	Service      string
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%d", k.Service, k.CheckpointID)
}

// Compare orders keys by checkpoint id, then by service name.
func (k Key) Compare(o Key) int {
	if c := cmp.Compare(k.CheckpointID, o.CheckpointID); c != 0 {
		return c
	}
	return cmp.Compare(k.Service, o.Service)
}

// Store defines the interface for durable checkpoint storage.
type Store interface {
	// Save stores data under key, replacing any previous value.
	Save(ctx context.Context, key Key, data []byte) error

	// Load returns the data stored under key or ErrNotFound.
	Load(ctx context.Context, key Key) ([]byte, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key Key) error

	// List returns all keys in ascending order.
	List(ctx context.Context) ([]Key, error)

	Close() error
}

// Latest returns the key with the highest checkpoint id stored for service.
func Latest(ctx context.Context, store Store, service string) (Key, error) {
	keys, err := store.List(ctx)
	if err != nil {
		return Key{}, err
	}
	for i := len(keys) - 1; i >= 0; i-- {
		if keys[i].Service == service {
			return keys[i], nil
		}
	}
	return Key{}, fmt.Errorf("%w: no checkpoint for service %q", ErrNotFound, service)
}

// Save encodes snap and stores it under key. It returns the encoded size.
func Save[K, N comparable](
	ctx context.Context,
	store Store,
	key Key,
	snap *timers.Snapshot[K, N],
	keySerializer typeutils.TypeSerializer[K],
	namespaceSerializer typeutils.TypeSerializer[N],
) (int, error) {
	var buf bytes.Buffer
	if err := Write(&buf, snap, keySerializer, namespaceSerializer); err != nil {
		return 0, fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := store.Save(ctx, key, buf.Bytes()); err != nil {
		return 0, fmt.Errorf("failed to save %s: %w", key, err)
	}
	return buf.Len(), nil
}

// Load reads the snapshot stored under key.
func Load[K, N comparable](ctx context.Context, store Store, key Key, registry *typeutils.Registry) (*timers.Snapshot[K, N], error) {
	data, err := store.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	snap, err := Read[K, N](bytes.NewReader(data), registry)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return snap, nil
}
