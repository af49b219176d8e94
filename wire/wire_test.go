package wire

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterFramesWithSentinel(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.WriteFrame([]byte(`{"id":1}`)))
	require.NoError(t, w.WriteFrame([]byte(`{"id":2}`)))

	frames := bytes.Split(buf.Bytes(), []byte{Sentinel})
	require.Len(t, frames, 3) // trailing sentinel produces an empty tail
	assert.Equal(t, `{"id":1}`, string(frames[0]))
	assert.Equal(t, `{"id":2}`, string(frames[1]))
	assert.Empty(t, frames[2])
}

func TestWriterFlushesEachFrame(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.WriteFrame([]byte("hello")))
	// Visible without any explicit flush call.
	assert.Equal(t, "hello\x00", buf.String())
}

type failingWriter struct{ err error }

func (f *failingWriter) Write([]byte) (int, error) { return 0, f.err }

func TestWriterPoisonedAfterFailure(t *testing.T) {
	wantErr := errors.New("broken pipe")
	w := NewWriter(&failingWriter{err: wantErr})

	assert.ErrorIs(t, w.WriteFrame([]byte("x")), wantErr)
	assert.ErrorIs(t, w.WriteFrame([]byte("y")), wantErr)
}

func TestReaderSplitsLines(t *testing.T) {
	r := NewReader(strings.NewReader("one\ntwo\r\n\nthree"))

	frame, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, "one", string(frame))

	frame, err = r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, "two", string(frame))

	frame, err = r.ReadFrame()
	require.NoError(t, err)
	assert.Empty(t, frame)

	// Unterminated final line is still delivered.
	frame, err = r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, "three", string(frame))

	_, err = r.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderEmptyStream(t *testing.T) {
	r := NewReader(strings.NewReader(""))
	_, err := r.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)
}
