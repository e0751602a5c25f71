package typeutils

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/davidvella/timerstate/recordio"
)

// Registry maps snapshot identifiers to factories producing empty snapshots,
// so a snapshot can be instantiated by name when it is read back.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]func() any
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]func() any),
	}
}

// Register adds factory under the identifier of the snapshots it produces.
// A later registration for the same identifier replaces the earlier one.
func Register[T any](r *Registry, factory func() TypeSerializerSnapshot[T]) {
	id := factory().Identifier()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[id] = func() any { return factory() }
}

// RegisterBuiltins registers the string and int64 serializer snapshots.
func RegisterBuiltins(r *Registry) {
	Register(r, func() TypeSerializerSnapshot[string] { return &StringSerializerSnapshot{} })
	Register(r, func() TypeSerializerSnapshot[int64] { return &Int64SerializerSnapshot{} })
}

func (r *Registry) lookup(id string) (func() any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[id]
	return f, ok
}

// WriteVersionedSnapshot writes the identifier, the current version and the
// snapshot payload of snap.
func WriteVersionedSnapshot[T any](w io.Writer, snap TypeSerializerSnapshot[T]) error {
	var payload bytes.Buffer
	if err := snap.WriteSnapshot(&payload); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", snap.Identifier(), err)
	}

	bw := recordio.NewBinaryWriter(w)
	if _, err := bw.WriteString(snap.Identifier()); err != nil {
		return fmt.Errorf("error writing snapshot identifier: %w", err)
	}
	if _, err := bw.WriteInt64(int64(snap.CurrentVersion())); err != nil {
		return fmt.Errorf("error writing snapshot version: %w", err)
	}
	if _, err := bw.WriteBytes(payload.Bytes()); err != nil {
		return fmt.Errorf("error writing snapshot payload: %w", err)
	}
	return nil
}

// ReadVersionedSnapshot reads a snapshot written by WriteVersionedSnapshot,
// instantiating it through the registry.
func ReadVersionedSnapshot[T any](r io.Reader, registry *Registry) (TypeSerializerSnapshot[T], error) {
	br := recordio.NewBinaryReader(r)

	id, err := br.ReadString()
	if err != nil {
		return nil, fmt.Errorf("error reading snapshot identifier: %w", err)
	}
	version, err := br.ReadInt64()
	if err != nil {
		return nil, fmt.Errorf("error reading snapshot version: %w", err)
	}
	payload, err := br.ReadBytes()
	if err != nil {
		return nil, fmt.Errorf("error reading snapshot payload: %w", err)
	}

	factory, ok := registry.lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSnapshot, id)
	}
	snap, ok := factory().(TypeSerializerSnapshot[T])
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSnapshotTypeMismatch, id)
	}
	if version < 1 || version > int64(snap.CurrentVersion()) {
		return nil, fmt.Errorf("%w: %q version %d", ErrUnsupportedVersion, id, version)
	}
	if err := snap.ReadSnapshot(int(version), bytes.NewReader(payload)); err != nil {
		return nil, fmt.Errorf("failed to read snapshot %q: %w", id, err)
	}
	return snap, nil
}
