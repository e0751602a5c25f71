package typeutils

import (
	"encoding/binary"
	"fmt"
	"io"
)

// StringSerializer encodes strings as their raw UTF-8 bytes.
type StringSerializer struct{}

func (StringSerializer) SerializeValue(value string) ([]byte, error) {
	return []byte(value), nil
}

func (StringSerializer) DeserializeValue(data []byte) (string, error) {
	return string(data), nil
}

func (StringSerializer) SnapshotConfiguration() TypeSerializerSnapshot[string] {
	return &StringSerializerSnapshot{}
}

// StringSerializerSnapshot has no configuration; its payload is empty.
type StringSerializerSnapshot struct{}

func (*StringSerializerSnapshot) Identifier() string { return "string" }
func (*StringSerializerSnapshot) CurrentVersion() int { return 1 }
func (*StringSerializerSnapshot) WriteSnapshot(io.Writer) error { return nil }
func (*StringSerializerSnapshot) ReadSnapshot(int, io.Reader) error { return nil }
func (*StringSerializerSnapshot) RestoreSerializer() TypeSerializer[string] {
	return StringSerializer{}
}

func (*StringSerializerSnapshot) ResolveSchemaCompatibility(s TypeSerializer[string]) SchemaCompatibility[string] {
	if _, ok := s.(StringSerializer); ok {
		return AsIs[string]()
	}
	return NotCompatible[string]()
}

// Int64Serializer encodes int64 values as 8 big-endian bytes, which keeps
// their byte order consistent with numeric order for non-negative values.
type Int64Serializer struct{}

func (Int64Serializer) SerializeValue(value int64) ([]byte, error) {
	return binary.BigEndian.AppendUint64(nil, uint64(value)), nil
}

func (Int64Serializer) DeserializeValue(data []byte) (int64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("typeutils: int64 needs 8 bytes, got %d", len(data))
	}
	return int64(binary.BigEndian.Uint64(data)), nil
}

func (Int64Serializer) SnapshotConfiguration() TypeSerializerSnapshot[int64] {
	return &Int64SerializerSnapshot{}
}

type Int64SerializerSnapshot struct{}

func (*Int64SerializerSnapshot) Identifier() string { return "int64" }
func (*Int64SerializerSnapshot) CurrentVersion() int { return 1 }
func (*Int64SerializerSnapshot) WriteSnapshot(io.Writer) error { return nil }
func (*Int64SerializerSnapshot) ReadSnapshot(int, io.Reader) error { return nil }
func (*Int64SerializerSnapshot) RestoreSerializer() TypeSerializer[int64] {
	return Int64Serializer{}
}

func (*Int64SerializerSnapshot) ResolveSchemaCompatibility(s TypeSerializer[int64]) SchemaCompatibility[int64] {
	if _, ok := s.(Int64Serializer); ok {
		return AsIs[int64]()
	}
	return NotCompatible[int64]()
}
