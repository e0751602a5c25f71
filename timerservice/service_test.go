package timerservice_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/davidvella/timerstate/checkpoint"
	"github.com/davidvella/timerstate/checkpoint/memory"
	"github.com/davidvella/timerstate/metrics"
	"github.com/davidvella/timerstate/timers"
	"github.com/davidvella/timerstate/timerservice"
	"github.com/davidvella/timerstate/typeutils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type timer = timers.Timer[string, string]

func newService(t *testing.T, opts ...timerservice.Option) *timerservice.Service[string, string] {
	t.Helper()
	opts = append([]timerservice.Option{timerservice.WithLogger(zaptest.NewLogger(t))}, opts...)
	s, err := timerservice.New[string, string](typeutils.StringSerializer{}, typeutils.StringSerializer{}, opts...)
	require.NoError(t, err)
	return s
}

func collect(fired *[]timer) func(timer) error {
	return func(t timer) error {
		*fired = append(*fired, t)
		return nil
	}
}

func TestNew_RequiresSerializers(t *testing.T) {
	_, err := timerservice.New[string, string](nil, typeutils.StringSerializer{})
	assert.ErrorIs(t, err, timers.ErrInvalidArgument)

	_, err = timerservice.New[string, string](typeutils.StringSerializer{}, nil)
	assert.ErrorIs(t, err, timers.ErrInvalidArgument)
}

func TestAdvanceWatermark(t *testing.T) {
	s := newService(t)

	s.RegisterEventTimeTimer("b", "x", 20)
	s.RegisterEventTimeTimer("a", "x", 10)
	s.RegisterEventTimeTimer("c", "x", 30)
	s.RegisterEventTimeTimer("a", "x", 10)
	s.DeleteEventTimeTimer("c", "x", 30)
	assert.Equal(t, 2, s.NumEventTimeTimers())

	var fired []timer
	require.NoError(t, s.AdvanceWatermark(15, collect(&fired)))
	assert.Equal(t, []timer{{Timestamp: 10, Key: "a", Namespace: "x"}}, fired)
	assert.Equal(t, int64(15), s.CurrentWatermark())

	require.NoError(t, s.AdvanceWatermark(20, collect(&fired)))
	assert.Len(t, fired, 2)
	assert.Equal(t, 0, s.NumEventTimeTimers())
}

func TestAdvanceProcessingTime(t *testing.T) {
	s := newService(t)

	_, ok := s.NextProcessingTime()
	assert.False(t, ok)

	s.RegisterProcessingTimeTimer("k", "n", 300)
	s.RegisterProcessingTimeTimer("k", "n", 100)
	s.RegisterProcessingTimeTimer("k", "m", 200)
	s.DeleteProcessingTimeTimer("k", "m", 200)

	next, ok := s.NextProcessingTime()
	require.True(t, ok)
	assert.Equal(t, int64(100), next)

	var fired []timer
	require.NoError(t, s.AdvanceProcessingTime(1000, collect(&fired)))
	assert.Equal(t, []timer{
		{Timestamp: 100, Key: "k", Namespace: "n"},
		{Timestamp: 300, Key: "k", Namespace: "n"},
	}, fired)
	assert.Equal(t, 0, s.NumProcessingTimeTimers())
}

func TestAdvance_CallbackError(t *testing.T) {
	s := newService(t)
	s.RegisterEventTimeTimer("a", "x", 1)
	s.RegisterEventTimeTimer("b", "x", 2)

	errBoom := errors.New("boom")
	err := s.AdvanceWatermark(10, func(timer) error { return errBoom })
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, s.NumEventTimeTimers())
}

func TestSnapshot(t *testing.T) {
	s := newService(t)

	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Nil(t, snap.EventTimeTimers())
	assert.Nil(t, snap.ProcessingTimeTimers())
	assert.True(t, snap.Complete())

	s.RegisterEventTimeTimer("a", "x", 100)
	snap, err = s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, timers.SetOf(timer{Timestamp: 100, Key: "a", Namespace: "x"}), snap.EventTimeTimers())
	assert.Nil(t, snap.ProcessingTimeTimers())

	// the service hands out its own copy, later registrations do not leak in
	s.RegisterEventTimeTimer("b", "x", 200)
	assert.Equal(t, 1, snap.EventTimeTimers().Len())
}

func TestSnapshotRestore_ThroughStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	defer store.Close()

	registry := typeutils.NewRegistry()
	typeutils.RegisterBuiltins(registry)

	src := newService(t, timerservice.WithName("window-timers"))
	src.RegisterEventTimeTimer("a", "x", 100)
	src.RegisterProcessingTimeTimer("b", "y", 50)

	snap, err := src.Snapshot()
	require.NoError(t, err)

	key := checkpoint.Key{CheckpointID: 1, Service: src.Name()}
	_, err = checkpoint.Save(ctx, store, key, snap, src.KeySerializer(), src.NamespaceSerializer())
	require.NoError(t, err)

	restored, err := checkpoint.Load[string, string](ctx, store, key, registry)
	require.NoError(t, err)

	dst := newService(t)
	require.NoError(t, dst.Restore(restored))
	assert.Equal(t, 1, dst.NumEventTimeTimers())
	assert.Equal(t, 1, dst.NumProcessingTimeTimers())

	var fired []timer
	require.NoError(t, dst.AdvanceWatermark(100, collect(&fired)))
	require.NoError(t, dst.AdvanceProcessingTime(50, collect(&fired)))
	assert.Equal(t, []timer{
		{Timestamp: 100, Key: "a", Namespace: "x"},
		{Timestamp: 50, Key: "b", Namespace: "y"},
	}, fired)
}

func TestRestore_Incomplete(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)
	s := newService(t, timerservice.WithMetrics(c))
	s.RegisterEventTimeTimer("a", "x", 1)

	err := s.Restore(timers.NewRestoringSnapshot[string, string]())
	assert.ErrorIs(t, err, timers.ErrIncompleteSnapshot)
	assert.Equal(t, 1, s.NumEventTimeTimers())

	count, err := testutil.GatherAndCount(reg, "timer_restore_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRestore_Compatibility(t *testing.T) {
	legacyGob := func(t *testing.T) typeutils.TypeSerializerSnapshot[string] {
		t.Helper()
		registry := typeutils.NewRegistry()
		typeutils.RegisterGob[string](registry)

		var buf bytes.Buffer
		require.NoError(t, typeutils.WriteVersionedSnapshot(&buf, typeutils.NewGobSerializer[string]().SnapshotConfiguration()))
		// rewrite the version field to 1 and drop the payload
		raw := buf.Bytes()
		idLen := 8 + len("gob:string")
		raw[idLen] = 1
		legacy := append(append([]byte(nil), raw[:idLen+8]...), make([]byte, 8)...)

		snap, err := typeutils.ReadVersionedSnapshot[string](bytes.NewReader(legacy), registry)
		require.NoError(t, err)
		return snap
	}

	tests := []struct {
		name       string
		keySnap    func(t *testing.T) typeutils.TypeSerializerSnapshot[string]
		liveKey    typeutils.TypeSerializer[string]
		wantErr    error
		wantKeySer typeutils.TypeSerializer[string]
	}{
		{
			name:       "as is",
			keySnap:    func(*testing.T) typeutils.TypeSerializerSnapshot[string] { return &typeutils.StringSerializerSnapshot{} },
			liveKey:    typeutils.StringSerializer{},
			wantKeySer: typeutils.StringSerializer{},
		},
		{
			name:    "incompatible",
			keySnap: func(*testing.T) typeutils.TypeSerializerSnapshot[string] { return &typeutils.StringSerializerSnapshot{} },
			liveKey: typeutils.NewGobSerializer[string](),
			wantErr: timerservice.ErrIncompatibleSerializer,
		},
		{
			name:       "after migration",
			keySnap:    legacyGob,
			liveKey:    typeutils.NewGobSerializer[string](),
			wantKeySer: typeutils.NewGobSerializer[string](),
		},
		{
			name:       "reconfigured",
			keySnap:    func(*testing.T) typeutils.TypeSerializerSnapshot[string] { return &reconfiguringSnapshot{} },
			liveKey:    typeutils.StringSerializer{},
			wantKeySer: upperSerializer{},
		},
		{
			name:    "reconfigured without serializer",
			keySnap: func(*testing.T) typeutils.TypeSerializerSnapshot[string] { return &reconfiguringSnapshot{broken: true} },
			liveKey: typeutils.StringSerializer{},
			wantErr: timerservice.ErrIncompatibleSerializer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := timerservice.New[string, string](tt.liveKey, typeutils.StringSerializer{}, timerservice.WithLogger(zaptest.NewLogger(t)))
			require.NoError(t, err)

			snap := timers.NewRestoringSnapshot[string, string]()
			snap.SetKeySerializerSnapshot(tt.keySnap(t))
			snap.SetNamespaceSerializerSnapshot(&typeutils.StringSerializerSnapshot{})
			snap.SetEventTimeTimers(timers.SetOf(timer{Timestamp: 5, Key: "k", Namespace: "n"}))

			err = s.Restore(snap)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 0, s.NumEventTimeTimers())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKeySer, s.KeySerializer())
			assert.Equal(t, 1, s.NumEventTimeTimers())
		})
	}
}

// upperSerializer stands in for a reconfigured string serializer.
type upperSerializer struct {
	typeutils.StringSerializer
}

type reconfiguringSnapshot struct {
	typeutils.StringSerializerSnapshot
	broken bool
}

func (r *reconfiguringSnapshot) Identifier() string { return "reconfiguring" }

func (r *reconfiguringSnapshot) ResolveSchemaCompatibility(typeutils.TypeSerializer[string]) typeutils.SchemaCompatibility[string] {
	if r.broken {
		return typeutils.WithReconfiguredSerializer[string](nil)
	}
	return typeutils.WithReconfiguredSerializer[string](upperSerializer{})
}
