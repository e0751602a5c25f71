package typeutils

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"reflect"

	"github.com/davidvella/timerstate/recordio"
)

// GobSerializer implements TypeSerializer using Gob encoding.
type GobSerializer[T any] struct{}

func NewGobSerializer[T any]() *GobSerializer[T] {
	return &GobSerializer[T]{}
}

func (s *GobSerializer[T]) SerializeValue(value T) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *GobSerializer[T]) DeserializeValue(data []byte) (T, error) {
	var value T
	buf := bytes.NewBuffer(data)
	dec := gob.NewDecoder(buf)
	if err := dec.Decode(&value); err != nil {
		return value, err
	}
	return value, nil
}

func (s *GobSerializer[T]) SnapshotConfiguration() TypeSerializerSnapshot[T] {
	return &GobSerializerSnapshot[T]{typeName: gobTypeName[T]()}
}

// RegisterGob registers the snapshot of GobSerializer[T] in r.
func RegisterGob[T any](r *Registry) {
	Register(r, func() TypeSerializerSnapshot[T] { return &GobSerializerSnapshot[T]{} })
}

// GobSerializerSnapshot records the Go type name encoded by a GobSerializer.
//
// Version 1 carried no payload. Version 2 stores the type name so that a
// restore under a different type is rejected rather than decoded blindly.
type GobSerializerSnapshot[T any] struct {
	typeName string
}

const gobSnapshotVersion = 2

func gobTypeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

func (g *GobSerializerSnapshot[T]) Identifier() string {
	return "gob:" + gobTypeName[T]()
}

func (g *GobSerializerSnapshot[T]) CurrentVersion() int {
	return gobSnapshotVersion
}

// TypeName returns the recorded type name, empty for version 1 snapshots.
func (g *GobSerializerSnapshot[T]) TypeName() string {
	return g.typeName
}

func (g *GobSerializerSnapshot[T]) WriteSnapshot(w io.Writer) error {
	_, err := recordio.NewBinaryWriter(w).WriteString(g.typeName)
	return err
}

func (g *GobSerializerSnapshot[T]) ReadSnapshot(version int, r io.Reader) error {
	switch version {
	case 1:
		g.typeName = ""
		return nil
	case gobSnapshotVersion:
		name, err := recordio.NewBinaryReader(r).ReadString()
		if err != nil {
			return fmt.Errorf("error reading type name: %w", err)
		}
		g.typeName = name
		return nil
	default:
		return fmt.Errorf("%w: gob version %d", ErrUnsupportedVersion, version)
	}
}

func (g *GobSerializerSnapshot[T]) RestoreSerializer() TypeSerializer[T] {
	return NewGobSerializer[T]()
}

func (g *GobSerializerSnapshot[T]) ResolveSchemaCompatibility(s TypeSerializer[T]) SchemaCompatibility[T] {
	if _, ok := s.(*GobSerializer[T]); !ok {
		return NotCompatible[T]()
	}
	switch g.typeName {
	case "":
		// Written before type names were recorded; the data has to be
		// rewritten under the current snapshot.
		return AfterMigration[T]()
	case gobTypeName[T]():
		return AsIs[T]()
	default:
		return NotCompatible[T]()
	}
}
