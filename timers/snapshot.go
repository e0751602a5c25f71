package timers

import (
	"errors"
	"fmt"

	"github.com/davidvella/timerstate/typeutils"
)

var (
	ErrInvalidArgument = errors.New("timers: invalid argument")
	// ErrIncompleteSnapshot is returned by consumers handed a snapshot whose
	// serializer snapshots were never populated.
	ErrIncompleteSnapshot = errors.New("timers: snapshot has no serializer snapshots")
)

// Snapshot is the state of a keyed timer service captured for a checkpoint:
// the pending event-time and processing-time timers plus the serializer
// snapshots needed to read them back.
//
// A Snapshot is built either with NewSnapshot while checkpointing, or with
// NewRestoringSnapshot followed by the four setters while restoring. The
// setters are only meant for that population step; once populated, readers
// treat the snapshot as immutable. Until both serializer snapshots are set the
// snapshot is not usable, see Complete.
//
// The timer sets are shared with the caller, not copied. The caller must not
// modify them while a checkpoint writer is still reading the snapshot, and
// must publish a populated snapshot to other goroutines through a
// synchronizing operation.
//
// Snapshots have identity semantics: two snapshots with the same content are
// different snapshots. Compare *Snapshot pointers, or use Equal.
type Snapshot[K, N comparable] struct {
	keySerializerSnapshot       typeutils.TypeSerializerSnapshot[K]
	namespaceSerializerSnapshot typeutils.TypeSerializerSnapshot[N]

	eventTimeTimers      Set[K, N]
	processingTimeTimers Set[K, N]
}

// NewSnapshot snapshots the given timers. Both serializers are required; either
// timer set may be nil when no timers of that kind exist.
func NewSnapshot[K, N comparable](
	keySerializer typeutils.TypeSerializer[K],
	namespaceSerializer typeutils.TypeSerializer[N],
	eventTimeTimers Set[K, N],
	processingTimeTimers Set[K, N],
) (*Snapshot[K, N], error) {
	if keySerializer == nil {
		return nil, fmt.Errorf("%w: key serializer is nil", ErrInvalidArgument)
	}
	if namespaceSerializer == nil {
		return nil, fmt.Errorf("%w: namespace serializer is nil", ErrInvalidArgument)
	}

	return &Snapshot[K, N]{
		keySerializerSnapshot:       typeutils.SnapshotBackwardsCompatible(keySerializer),
		namespaceSerializerSnapshot: typeutils.SnapshotBackwardsCompatible(namespaceSerializer),
		eventTimeTimers:             eventTimeTimers,
		processingTimeTimers:        processingTimeTimers,
	}, nil
}

// NewRestoringSnapshot returns an empty snapshot to be populated while reading
// a checkpoint.
func NewRestoringSnapshot[K, N comparable]() *Snapshot[K, N] {
	return &Snapshot[K, N]{}
}

func (s *Snapshot[K, N]) KeySerializerSnapshot() typeutils.TypeSerializerSnapshot[K] {
	return s.keySerializerSnapshot
}

func (s *Snapshot[K, N]) SetKeySerializerSnapshot(snap typeutils.TypeSerializerSnapshot[K]) {
	s.keySerializerSnapshot = snap
}

func (s *Snapshot[K, N]) NamespaceSerializerSnapshot() typeutils.TypeSerializerSnapshot[N] {
	return s.namespaceSerializerSnapshot
}

func (s *Snapshot[K, N]) SetNamespaceSerializerSnapshot(snap typeutils.TypeSerializerSnapshot[N]) {
	s.namespaceSerializerSnapshot = snap
}

// EventTimeTimers returns the event-time timers, nil if none were captured.
func (s *Snapshot[K, N]) EventTimeTimers() Set[K, N] {
	return s.eventTimeTimers
}

func (s *Snapshot[K, N]) SetEventTimeTimers(timers Set[K, N]) {
	s.eventTimeTimers = timers
}

// ProcessingTimeTimers returns the processing-time timers, nil if none were captured.
func (s *Snapshot[K, N]) ProcessingTimeTimers() Set[K, N] {
	return s.processingTimeTimers
}

func (s *Snapshot[K, N]) SetProcessingTimeTimers(timers Set[K, N]) {
	s.processingTimeTimers = timers
}

// Complete reports whether both serializer snapshots are set.
func (s *Snapshot[K, N]) Complete() bool {
	return s.keySerializerSnapshot != nil && s.namespaceSerializerSnapshot != nil
}

// Equal reports whether other is the same snapshot as s. Content is not compared.
func (s *Snapshot[K, N]) Equal(other *Snapshot[K, N]) bool {
	return s == other
}
