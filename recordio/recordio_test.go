package recordio_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/davidvella/timerstate/recordio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errWrite = errors.New("its a me errorio")

type mockWriter struct {
	errorCounter int
	counter      int
}

func (w *mockWriter) Write(p []byte) (n int, err error) {
	w.counter++
	if w.counter == w.errorCounter {
		return 0, errWrite
	}
	return len(p), nil
}

func TestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	bw := recordio.NewBinaryWriter(&buf)

	var total int64
	n, err := bw.WriteMagic([]byte("TMR"))
	require.NoError(t, err)
	total += n
	n, err = bw.WriteString("hello")
	require.NoError(t, err)
	total += n
	n, err = bw.WriteInt64(-42)
	require.NoError(t, err)
	total += n
	n, err = bw.WriteBool(true)
	require.NoError(t, err)
	total += n
	n, err = bw.WriteBytes(nil)
	require.NoError(t, err)
	total += n

	assert.Equal(t, int64(buf.Len()), total)
	assert.Equal(t, int64(3+8+5+8+1+8), total)

	br := recordio.NewBinaryReader(&buf)
	require.NoError(t, br.ExpectMagic([]byte("TMR")))

	s, err := br.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	i, err := br.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(-42), i)

	b, err := br.ReadBool()
	require.NoError(t, err)
	assert.True(t, b)

	raw, err := br.ReadBytes()
	require.NoError(t, err)
	assert.Empty(t, raw)

	_, err = br.ReadInt64()
	assert.ErrorIs(t, err, io.EOF)
}

func TestWriteErrors(t *testing.T) {
	tests := []struct {
		name  string
		write func(bw recordio.BinaryWriter) (int64, error)
		fail  int
		want  int64
	}{
		{
			name:  "string length",
			write: func(bw recordio.BinaryWriter) (int64, error) { return bw.WriteString("abc") },
			fail:  1,
			want:  0,
		},
		{
			name:  "string content",
			write: func(bw recordio.BinaryWriter) (int64, error) { return bw.WriteString("abc") },
			fail:  2,
			want:  recordio.Uint64Size,
		},
		{
			name:  "magic",
			write: func(bw recordio.BinaryWriter) (int64, error) { return bw.WriteMagic([]byte("X")) },
			fail:  1,
			want:  0,
		},
		{
			name:  "bool",
			write: func(bw recordio.BinaryWriter) (int64, error) { return bw.WriteBool(false) },
			fail:  1,
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bw := recordio.NewBinaryWriter(&mockWriter{errorCounter: tt.fail})
			n, err := tt.write(bw)
			assert.ErrorIs(t, err, errWrite)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestExpectMagic(t *testing.T) {
	br := recordio.NewBinaryReader(bytes.NewReader([]byte("ABC")))
	assert.ErrorIs(t, br.ExpectMagic([]byte("XYZ")), recordio.ErrInvalidMagicBytes)

	br = recordio.NewBinaryReader(bytes.NewReader([]byte("A")))
	assert.ErrorIs(t, br.ExpectMagic([]byte("XYZ")), io.ErrUnexpectedEOF)
}

func TestReadBytesTooLarge(t *testing.T) {
	var buf bytes.Buffer
	_, err := recordio.NewBinaryWriter(&buf).WriteInt64(int64(recordio.MaxFieldLength + 1))
	require.NoError(t, err)

	_, err = recordio.NewBinaryReader(&buf).ReadBytes()
	assert.ErrorIs(t, err, recordio.ErrFieldTooLarge)
}

func TestReadTruncated(t *testing.T) {
	var buf bytes.Buffer
	_, err := recordio.NewBinaryWriter(&buf).WriteString("truncated")
	require.NoError(t, err)
	buf.Truncate(buf.Len() - 2)

	_, err = recordio.NewBinaryReader(&buf).ReadString()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
