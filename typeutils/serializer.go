package typeutils

import (
	"errors"
	"io"
)

var (
	ErrUnknownSnapshot      = errors.New("typeutils: unknown serializer snapshot")
	ErrUnsupportedVersion   = errors.New("typeutils: unsupported snapshot version")
	ErrSnapshotTypeMismatch = errors.New("typeutils: snapshot does not describe the requested type")
)

// TypeSerializer defines how to serialize/deserialize specific types.
type TypeSerializer[T any] interface {
	SerializeValue(value T) ([]byte, error)
	DeserializeValue(data []byte) (T, error)
	// SnapshotConfiguration captures the current configuration of the serializer.
	SnapshotConfiguration() TypeSerializerSnapshot[T]
}

// BackwardsCompatibleSerializer is implemented by serializers that can emit a
// snapshot readable by older releases in addition to their regular one.
type BackwardsCompatibleSerializer[T any] interface {
	TypeSerializer[T]
	SnapshotBackwardsCompatible() TypeSerializerSnapshot[T]
}

// TypeSerializerSnapshot is a versioned, self-describing record of a
// serializer's configuration.
type TypeSerializerSnapshot[T any] interface {
	// Identifier names the snapshot implementation in a Registry.
	Identifier() string
	CurrentVersion() int
	WriteSnapshot(w io.Writer) error
	// ReadSnapshot populates the snapshot from bytes written at the given version.
	ReadSnapshot(version int, r io.Reader) error
	// RestoreSerializer returns a serializer able to read data written under
	// this snapshot.
	RestoreSerializer() TypeSerializer[T]
	ResolveSchemaCompatibility(newSerializer TypeSerializer[T]) SchemaCompatibility[T]
}

// SnapshotBackwardsCompatible derives the snapshot to persist for s, preferring
// the backwards compatible form when s offers one.
func SnapshotBackwardsCompatible[T any](s TypeSerializer[T]) TypeSerializerSnapshot[T] {
	if bc, ok := s.(BackwardsCompatibleSerializer[T]); ok {
		return bc.SnapshotBackwardsCompatible()
	}
	return s.SnapshotConfiguration()
}

// Compatibility is the outcome of comparing a stored snapshot with a new serializer.
type Compatibility int

const (
	// CompatibleAsIs means the new serializer reads the old data unchanged.
	CompatibleAsIs Compatibility = iota
	// CompatibleAfterMigration means the data must be read with the restored
	// serializer and rewritten with the new one.
	CompatibleAfterMigration
	// CompatibleWithReconfiguredSerializer means a reconfigured instance of the
	// new serializer must be used instead.
	CompatibleWithReconfiguredSerializer
	Incompatible
)

func (c Compatibility) String() string {
	switch c {
	case CompatibleAsIs:
		return "COMPATIBLE_AS_IS"
	case CompatibleAfterMigration:
		return "COMPATIBLE_AFTER_MIGRATION"
	case CompatibleWithReconfiguredSerializer:
		return "COMPATIBLE_WITH_RECONFIGURED_SERIALIZER"
	case Incompatible:
		return "INCOMPATIBLE"
	default:
		return "UNKNOWN"
	}
}

// SchemaCompatibility carries a Compatibility and, for
// CompatibleWithReconfiguredSerializer, the serializer to use.
type SchemaCompatibility[T any] struct {
	Kind         Compatibility
	Reconfigured TypeSerializer[T]
}

func AsIs[T any]() SchemaCompatibility[T] {
	return SchemaCompatibility[T]{Kind: CompatibleAsIs}
}

func AfterMigration[T any]() SchemaCompatibility[T] {
	return SchemaCompatibility[T]{Kind: CompatibleAfterMigration}
}

func WithReconfiguredSerializer[T any](s TypeSerializer[T]) SchemaCompatibility[T] {
	return SchemaCompatibility[T]{Kind: CompatibleWithReconfiguredSerializer, Reconfigured: s}
}

func NotCompatible[T any]() SchemaCompatibility[T] {
	return SchemaCompatibility[T]{Kind: Incompatible}
}
