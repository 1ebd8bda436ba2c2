// SPDX-License-Identifier: EPL-2.0

// Package sink defines where the drainer sends PCM bytes and provides the
// in-process sinks. Device backends live in sink/portaudio and sink/oto.
package sink

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

var (
	ErrClosed = errors.New("sink closed")

	// ErrUnsupportedParams is returned by backends that cannot play the
	// requested framing.
	ErrUnsupportedParams = errors.New("unsupported audio parameters for sink")
)

// Forever makes Write wait as long as needed.
const Forever time.Duration = -1

// Sink is a PCM output. Write may accept fewer bytes than offered and
// returns (0, nil) when nothing could be accepted within timeout.
type Sink interface {
	Write(p []byte, timeout time.Duration) (int, error)
	Close() error
}

// Writer adapts an io.Writer. Every Write hands the whole slice to the
// underlying writer, so the timeout is not enforced.
type Writer struct {
	w io.Writer

	mtx    sync.Mutex
	closed bool
}

// NewWriter wraps w. Close does not close w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Discard accepts and drops everything.
func Discard() *Writer {
	return NewWriter(io.Discard)
}

func (s *Writer) Write(p []byte, _ time.Duration) (int, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	n, err := s.w.Write(p)
	if err != nil {
		return n, fmt.Errorf("sink write: %w", err)
	}
	return n, nil
}

func (s *Writer) Close() error {
	s.mtx.Lock()
	s.closed = true
	s.mtx.Unlock()
	return nil
}
