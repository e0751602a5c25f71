package recordio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	Uint64Size = int64(binary.Size(uint64(0)))
	Int64Size  = int64(binary.Size(int64(0)))
	BoolSize   = int64(1)

	// MaxFieldLength bounds a single length-prefixed field so a corrupt
	// length cannot trigger an unbounded allocation.
	MaxFieldLength uint64 = 64 << 20

	ErrInvalidMagicBytes = errors.New("invalid magic bytes")
	ErrFieldTooLarge     = errors.New("field length exceeds limit")
)

// BinaryWriter handles writing binary data with error handling.
type BinaryWriter struct {
	w io.Writer
}

func NewBinaryWriter(w io.Writer) BinaryWriter {
	return BinaryWriter{w: w}
}

// WriteMagic writes the raw magic bytes without a length prefix.
func (bw BinaryWriter) WriteMagic(magic []byte) (int64, error) {
	n, err := bw.w.Write(magic)
	if err != nil {
		return int64(n), fmt.Errorf("failed to write magic bytes: %w", err)
	}
	return int64(n), nil
}

func (bw BinaryWriter) WriteString(s string) (int64, error) {
	return bw.WriteBytes([]byte(s))
}

func (bw BinaryWriter) WriteInt64(i int64) (int64, error) {
	if err := binary.Write(bw.w, binary.LittleEndian, i); err != nil {
		return 0, err
	}
	return Int64Size, nil
}

func (bw BinaryWriter) WriteBool(b bool) (int64, error) {
	var v byte
	if b {
		v = 1
	}
	if _, err := bw.w.Write([]byte{v}); err != nil {
		return 0, err
	}
	return BoolSize, nil
}

func (bw BinaryWriter) WriteBytes(b []byte) (int64, error) {
	if err := binary.Write(bw.w, binary.LittleEndian, uint64(len(b))); err != nil {
		return 0, fmt.Errorf("error writing length: %w", err)
	}

	n, err := bw.w.Write(b)
	if err != nil {
		return Uint64Size, fmt.Errorf("error writing content: %w", err)
	}

	return Uint64Size + int64(n), nil
}

// BinaryReader handles reading binary data with error handling.
type BinaryReader struct {
	r io.Reader
}

func NewBinaryReader(r io.Reader) BinaryReader {
	return BinaryReader{r: r}
}

// ExpectMagic reads len(magic) bytes and fails with ErrInvalidMagicBytes if
// they differ.
func (br BinaryReader) ExpectMagic(magic []byte) error {
	got := make([]byte, len(magic))
	if _, err := io.ReadFull(br.r, got); err != nil {
		return fmt.Errorf("failed to read magic bytes: %w", err)
	}
	if !bytes.Equal(got, magic) {
		return ErrInvalidMagicBytes
	}
	return nil
}

func (br BinaryReader) ReadString() (string, error) {
	b, err := br.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (br BinaryReader) ReadInt64() (int64, error) {
	var value int64
	err := binary.Read(br.r, binary.LittleEndian, &value)
	return value, err
}

func (br BinaryReader) ReadBool() (bool, error) {
	var b [1]byte
	if _, err := io.ReadFull(br.r, b[:]); err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

func (br BinaryReader) ReadBytes() ([]byte, error) {
	var length uint64
	if err := binary.Read(br.r, binary.LittleEndian, &length); err != nil {
		return nil, fmt.Errorf("error reading length: %w", err)
	}
	if length > MaxFieldLength {
		return nil, fmt.Errorf("%w: %d", ErrFieldTooLarge, length)
	}

	b := make([]byte, length)
	if _, err := io.ReadFull(br.r, b); err != nil {
		return nil, fmt.Errorf("error reading content: %w", err)
	}
	return b, nil
}
