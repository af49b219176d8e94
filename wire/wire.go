// Package wire implements the framed byte channel between a backend process
// and its host. Outbound messages are delimited by a single NUL sentinel and
// flushed immediately; inbound messages arrive newline-delimited. The
// asymmetry matches the host's parser, which writes commands line by line but
// splits backend output on the sentinel.
package wire

import (
	"bufio"
	"io"
	"sync"
)

// Sentinel terminates every outbound frame. The codec guarantees it never
// appears inside an encoded message (JSON escapes control characters), so a
// reader on the other end can split on it unconditionally.
const Sentinel byte = 0x00

// Writer frames outbound messages onto a byte stream. It is safe for
// concurrent use: backends may push events from their own goroutines while
// the receive loop writes responses.
type Writer struct {
	mu  sync.Mutex
	bw  *bufio.Writer
	err error
}

// NewWriter wraps w in a sentinel-framing writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

// WriteFrame writes payload followed by the sentinel and flushes so the host
// observes the message without additional buffering latency. After the first
// write failure the writer is poisoned and every call returns that error.
func (w *Writer) WriteFrame(payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return w.err
	}
	if _, err := w.bw.Write(payload); err != nil {
		w.err = err
		return err
	}
	if err := w.bw.WriteByte(Sentinel); err != nil {
		w.err = err
		return err
	}
	if err := w.bw.Flush(); err != nil {
		w.err = err
		return err
	}
	return nil
}

// Reader splits an inbound byte stream into newline-delimited messages.
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps r in a line-framing reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReader(r)}
}

// ReadFrame returns the next input line without its terminator. It blocks
// until a full line is available and returns io.EOF once the stream is
// closed. A final unterminated line is still returned as a frame, with io.EOF
// on the following call.
func (r *Reader) ReadFrame() ([]byte, error) {
	line, err := r.br.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) > 0 {
			return line, nil
		}
		return nil, err
	}
	// Strip the newline and an optional carriage return.
	line = line[:len(line)-1]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line, nil
}
