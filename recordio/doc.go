// Package recordio implements the little-endian binary primitives used by the
// checkpoint format and by versioned serializer snapshots. Variable length
// fields are prefixed with their length as a uint64, fixed width integers are
// written as-is, and sections can be tagged with magic bytes for format
// validation.
//
// Basic usage:
//
//	var buf bytes.Buffer
//	bw := recordio.NewBinaryWriter(&buf)
//	if _, err := bw.WriteString("key-serializer"); err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := bw.WriteInt64(42); err != nil {
//	    log.Fatal(err)
//	}
//
//	br := recordio.NewBinaryReader(&buf)
//	name, _ := br.ReadString()
//	version, _ := br.ReadInt64()
package recordio
