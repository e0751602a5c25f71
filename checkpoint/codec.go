package checkpoint

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/davidvella/timerstate/recordio"
	"github.com/davidvella/timerstate/timers"
	"github.com/davidvella/timerstate/typeutils"
	"github.com/google/btree"
)

// FormatVersion is the version of the layout written by Write.
const FormatVersion = 1

var (
	// MagicBytes identify a timer checkpoint (TMR).
	MagicBytes = []byte{0x54, 0x4D, 0x52}

	ErrUnsupportedFormat = errors.New("checkpoint: unsupported format version")
)

// encodedTimer is a timer whose key and namespace are already serialized.
type encodedTimer struct {
	timestamp int64
	key       []byte
	namespace []byte
}

func (e encodedTimer) less(o encodedTimer) bool {
	if e.timestamp != o.timestamp {
		return e.timestamp < o.timestamp
	}
	if c := bytes.Compare(e.key, o.key); c != 0 {
		return c < 0
	}
	return bytes.Compare(e.namespace, o.namespace) < 0
}

// Write encodes snap to w. Timers are serialized with keySerializer and
// namespaceSerializer, which must be the serializers snap was taken with.
func Write[K, N comparable](
	w io.Writer,
	snap *timers.Snapshot[K, N],
	keySerializer typeutils.TypeSerializer[K],
	namespaceSerializer typeutils.TypeSerializer[N],
) error {
	if !snap.Complete() {
		return timers.ErrIncompleteSnapshot
	}

	bw := recordio.NewBinaryWriter(w)
	if _, err := bw.WriteMagic(MagicBytes); err != nil {
		return err
	}
	if _, err := bw.WriteInt64(FormatVersion); err != nil {
		return fmt.Errorf("error writing format version: %w", err)
	}

	if err := typeutils.WriteVersionedSnapshot(w, snap.KeySerializerSnapshot()); err != nil {
		return fmt.Errorf("key serializer snapshot: %w", err)
	}
	if err := typeutils.WriteVersionedSnapshot(w, snap.NamespaceSerializerSnapshot()); err != nil {
		return fmt.Errorf("namespace serializer snapshot: %w", err)
	}

	if err := writeTimers(bw, snap.EventTimeTimers(), keySerializer, namespaceSerializer); err != nil {
		return fmt.Errorf("event-time timers: %w", err)
	}
	if err := writeTimers(bw, snap.ProcessingTimeTimers(), keySerializer, namespaceSerializer); err != nil {
		return fmt.Errorf("processing-time timers: %w", err)
	}
	return nil
}

func writeTimers[K, N comparable](
	bw recordio.BinaryWriter,
	set timers.Set[K, N],
	keySerializer typeutils.TypeSerializer[K],
	namespaceSerializer typeutils.TypeSerializer[N],
) error {
	if _, err := bw.WriteBool(set != nil); err != nil {
		return err
	}
	if set == nil {
		return nil
	}

	sorted := btree.NewG[encodedTimer](2, encodedTimer.less)
	for t := range set {
		key, err := keySerializer.SerializeValue(t.Key)
		if err != nil {
			return fmt.Errorf("failed to serialize key of %v: %w", t, err)
		}
		ns, err := namespaceSerializer.SerializeValue(t.Namespace)
		if err != nil {
			return fmt.Errorf("failed to serialize namespace of %v: %w", t, err)
		}
		sorted.ReplaceOrInsert(encodedTimer{timestamp: t.Timestamp, key: key, namespace: ns})
	}

	if _, err := bw.WriteInt64(int64(sorted.Len())); err != nil {
		return err
	}

	var writeErr error
	sorted.Ascend(func(e encodedTimer) bool {
		if _, writeErr = bw.WriteInt64(e.timestamp); writeErr != nil {
			return false
		}
		if _, writeErr = bw.WriteBytes(e.key); writeErr != nil {
			return false
		}
		_, writeErr = bw.WriteBytes(e.namespace)
		return writeErr == nil
	})
	return writeErr
}

// Read decodes a snapshot written by Write. Serializer snapshots are
// instantiated through registry.
func Read[K, N comparable](r io.Reader, registry *typeutils.Registry) (*timers.Snapshot[K, N], error) {
	br := recordio.NewBinaryReader(r)
	if err := br.ExpectMagic(MagicBytes); err != nil {
		return nil, err
	}
	version, err := br.ReadInt64()
	if err != nil {
		return nil, fmt.Errorf("error reading format version: %w", err)
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, version)
	}

	snap := timers.NewRestoringSnapshot[K, N]()

	keySnap, err := typeutils.ReadVersionedSnapshot[K](r, registry)
	if err != nil {
		return nil, fmt.Errorf("key serializer snapshot: %w", err)
	}
	snap.SetKeySerializerSnapshot(keySnap)

	nsSnap, err := typeutils.ReadVersionedSnapshot[N](r, registry)
	if err != nil {
		return nil, fmt.Errorf("namespace serializer snapshot: %w", err)
	}
	snap.SetNamespaceSerializerSnapshot(nsSnap)

	keySerializer := keySnap.RestoreSerializer()
	namespaceSerializer := nsSnap.RestoreSerializer()

	eventTime, err := readTimers(br, keySerializer, namespaceSerializer)
	if err != nil {
		return nil, fmt.Errorf("event-time timers: %w", err)
	}
	snap.SetEventTimeTimers(eventTime)

	processingTime, err := readTimers(br, keySerializer, namespaceSerializer)
	if err != nil {
		return nil, fmt.Errorf("processing-time timers: %w", err)
	}
	snap.SetProcessingTimeTimers(processingTime)

	return snap, nil
}

// maxPrealloc caps the capacity reserved from an untrusted count.
const maxPrealloc = 1024

func readTimers[K, N comparable](
	br recordio.BinaryReader,
	keySerializer typeutils.TypeSerializer[K],
	namespaceSerializer typeutils.TypeSerializer[N],
) (timers.Set[K, N], error) {
	present, err := br.ReadBool()
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}

	count, err := br.ReadInt64()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("negative timer count %d", count)
	}

	set := make(timers.Set[K, N], min(count, maxPrealloc))
	for i := int64(0); i < count; i++ {
		ts, err := br.ReadInt64()
		if err != nil {
			return nil, err
		}
		keyBytes, err := br.ReadBytes()
		if err != nil {
			return nil, err
		}
		nsBytes, err := br.ReadBytes()
		if err != nil {
			return nil, err
		}

		key, err := keySerializer.DeserializeValue(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize key: %w", err)
		}
		ns, err := namespaceSerializer.DeserializeValue(nsBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize namespace: %w", err)
		}
		set.Add(timers.Timer[K, N]{Timestamp: ts, Key: key, Namespace: ns})
	}
	return set, nil
}
