// Package timerservice keeps the event-time and processing-time timers of a
// keyed operator, fires them as time advances, and moves them in and out of
// timers.Snapshot values at checkpoint and restore time.
package timerservice

import (
	"errors"
	"fmt"
	"math"

	"github.com/davidvella/timerstate/metrics"
	"github.com/davidvella/timerstate/timers"
	"github.com/davidvella/timerstate/typeutils"
	"go.uber.org/zap"
)

var ErrIncompatibleSerializer = errors.New("timerservice: stored serializer is incompatible")

// Service manages the timers of one keyed operator. It is not safe for
// concurrent use; snapshots it returns do not share state with it.
type Service[K, N comparable] struct {
	keySerializer       typeutils.TypeSerializer[K]
	namespaceSerializer typeutils.TypeSerializer[N]

	eventTimeTimers      *timers.Heap[K, N]
	processingTimeTimers *timers.Heap[K, N]
	watermark            int64

	name    string
	logger  *zap.Logger
	metrics *metrics.Collector
}

// New creates a timer service encoding keys and namespaces with the given
// serializers.
func New[K, N comparable](
	keySerializer typeutils.TypeSerializer[K],
	namespaceSerializer typeutils.TypeSerializer[N],
	opts ...Option,
) (*Service[K, N], error) {
	if keySerializer == nil || namespaceSerializer == nil {
		return nil, fmt.Errorf("%w: serializers are required", timers.ErrInvalidArgument)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Service[K, N]{
		keySerializer:        keySerializer,
		namespaceSerializer:  namespaceSerializer,
		eventTimeTimers:      timers.NewHeap[K, N](),
		processingTimeTimers: timers.NewHeap[K, N](),
		watermark:            math.MinInt64,
		name:                 o.name,
		logger:               o.logger.With(zap.String("service", o.name)),
		metrics:              o.metrics,
	}, nil
}

func (s *Service[K, N]) Name() string {
	return s.name
}

func (s *Service[K, N]) KeySerializer() typeutils.TypeSerializer[K] {
	return s.keySerializer
}

func (s *Service[K, N]) NamespaceSerializer() typeutils.TypeSerializer[N] {
	return s.namespaceSerializer
}

// CurrentWatermark returns the last watermark passed to AdvanceWatermark.
func (s *Service[K, N]) CurrentWatermark() int64 {
	return s.watermark
}

// RegisterEventTimeTimer schedules a timer that fires once the watermark
// reaches ts. Registering an existing timer is a no-op.
func (s *Service[K, N]) RegisterEventTimeTimer(key K, namespace N, ts int64) {
	if s.eventTimeTimers.Add(timers.Timer[K, N]{Timestamp: ts, Key: key, Namespace: namespace}) {
		s.logger.Debug("event-time head changed", zap.Int64("timestamp", ts))
	}
	s.metrics.TimerRegistered(metrics.EventTime)
	s.metrics.SetPending(metrics.EventTime, s.eventTimeTimers.Len())
}

func (s *Service[K, N]) DeleteEventTimeTimer(key K, namespace N, ts int64) {
	s.eventTimeTimers.Remove(timers.Timer[K, N]{Timestamp: ts, Key: key, Namespace: namespace})
	s.metrics.SetPending(metrics.EventTime, s.eventTimeTimers.Len())
}

// RegisterProcessingTimeTimer schedules a timer that fires once processing
// time reaches ts.
func (s *Service[K, N]) RegisterProcessingTimeTimer(key K, namespace N, ts int64) {
	if s.processingTimeTimers.Add(timers.Timer[K, N]{Timestamp: ts, Key: key, Namespace: namespace}) {
		s.logger.Debug("processing-time head changed", zap.Int64("timestamp", ts))
	}
	s.metrics.TimerRegistered(metrics.ProcessingTime)
	s.metrics.SetPending(metrics.ProcessingTime, s.processingTimeTimers.Len())
}

func (s *Service[K, N]) DeleteProcessingTimeTimer(key K, namespace N, ts int64) {
	s.processingTimeTimers.Remove(timers.Timer[K, N]{Timestamp: ts, Key: key, Namespace: namespace})
	s.metrics.SetPending(metrics.ProcessingTime, s.processingTimeTimers.Len())
}

// NextProcessingTime returns the timestamp of the earliest processing-time timer.
func (s *Service[K, N]) NextProcessingTime() (int64, bool) {
	t, ok := s.processingTimeTimers.Peek()
	return t.Timestamp, ok
}

// NumEventTimeTimers returns the number of pending event-time timers.
func (s *Service[K, N]) NumEventTimeTimers() int {
	return s.eventTimeTimers.Len()
}

// NumProcessingTimeTimers returns the number of pending processing-time timers.
func (s *Service[K, N]) NumProcessingTimeTimers() int {
	return s.processingTimeTimers.Len()
}

// AdvanceWatermark fires, in timestamp order, every event-time timer whose
// timestamp is at or before watermark. A timer is removed before onTimer is
// called; if onTimer fails the remaining timers stay pending.
func (s *Service[K, N]) AdvanceWatermark(watermark int64, onTimer func(timers.Timer[K, N]) error) error {
	s.watermark = watermark
	return s.fire(s.eventTimeTimers, watermark, metrics.EventTime, onTimer)
}

// AdvanceProcessingTime fires every processing-time timer due at now.
func (s *Service[K, N]) AdvanceProcessingTime(now int64, onTimer func(timers.Timer[K, N]) error) error {
	return s.fire(s.processingTimeTimers, now, metrics.ProcessingTime, onTimer)
}

func (s *Service[K, N]) fire(h *timers.Heap[K, N], upTo int64, domain string, onTimer func(timers.Timer[K, N]) error) error {
	defer func() { s.metrics.SetPending(domain, h.Len()) }()

	for {
		t, ok := h.Peek()
		if !ok || t.Timestamp > upTo {
			return nil
		}
		h.Poll()
		s.metrics.TimerFired(domain)
		if err := onTimer(t); err != nil {
			return fmt.Errorf("timer %v: %w", t, err)
		}
	}
}

// Snapshot captures the pending timers. A kind with no pending timers is
// recorded as absent.
func (s *Service[K, N]) Snapshot() (*timers.Snapshot[K, N], error) {
	var eventTime, processingTime timers.Set[K, N]
	if s.eventTimeTimers.Len() > 0 {
		eventTime = s.eventTimeTimers.Timers()
	}
	if s.processingTimeTimers.Len() > 0 {
		processingTime = s.processingTimeTimers.Timers()
	}

	snap, err := timers.NewSnapshot(s.keySerializer, s.namespaceSerializer, eventTime, processingTime)
	if err != nil {
		return nil, err
	}

	s.metrics.SnapshotTaken()
	s.logger.Info("snapshotted timers",
		zap.Int("event_time_timers", eventTime.Len()),
		zap.Int("processing_time_timers", processingTime.Len()))
	return snap, nil
}

// Restore replaces the pending timers with those of snap after checking that
// the serializers snap was written with can be read by the live ones.
func (s *Service[K, N]) Restore(snap *timers.Snapshot[K, N]) error {
	if !snap.Complete() {
		s.metrics.RestoreFailed("incomplete")
		return timers.ErrIncompleteSnapshot
	}

	keySerializer, err := resolve(s.logger, "key", snap.KeySerializerSnapshot(), s.keySerializer)
	if err != nil {
		s.metrics.RestoreFailed("incompatible_key")
		return err
	}
	namespaceSerializer, err := resolve(s.logger, "namespace", snap.NamespaceSerializerSnapshot(), s.namespaceSerializer)
	if err != nil {
		s.metrics.RestoreFailed("incompatible_namespace")
		return err
	}

	s.keySerializer = keySerializer
	s.namespaceSerializer = namespaceSerializer
	s.eventTimeTimers = timers.HeapOf(snap.EventTimeTimers())
	s.processingTimeTimers = timers.HeapOf(snap.ProcessingTimeTimers())

	s.metrics.SetPending(metrics.EventTime, s.eventTimeTimers.Len())
	s.metrics.SetPending(metrics.ProcessingTime, s.processingTimeTimers.Len())
	s.logger.Info("restored timers",
		zap.Int("event_time_timers", s.eventTimeTimers.Len()),
		zap.Int("processing_time_timers", s.processingTimeTimers.Len()))
	return nil
}

// resolve picks the serializer to continue with after a restore.
func resolve[T any](
	logger *zap.Logger,
	what string,
	stored typeutils.TypeSerializerSnapshot[T],
	live typeutils.TypeSerializer[T],
) (typeutils.TypeSerializer[T], error) {
	compat := stored.ResolveSchemaCompatibility(live)
	logger.Debug("resolved serializer compatibility",
		zap.String("serializer", what),
		zap.String("snapshot", stored.Identifier()),
		zap.Stringer("result", compat.Kind))

	switch compat.Kind {
	case typeutils.CompatibleAsIs:
		return live, nil
	case typeutils.CompatibleAfterMigration:
		// Restored timers are already decoded; the next snapshot rewrites
		// them with the live serializer.
		logger.Info("migrating serializer", zap.String("serializer", what), zap.String("snapshot", stored.Identifier()))
		return live, nil
	case typeutils.CompatibleWithReconfiguredSerializer:
		if compat.Reconfigured == nil {
			return nil, fmt.Errorf("%w: %s serializer reconfiguration returned nothing", ErrIncompatibleSerializer, what)
		}
		return compat.Reconfigured, nil
	default:
		return nil, fmt.Errorf("%w: %s serializer %s", ErrIncompatibleSerializer, what, stored.Identifier())
	}
}
