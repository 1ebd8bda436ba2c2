// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"errors"
	"io"
	"sync"
	"time"
)

// ErrInjected is the default error returned by failing mocks.
var ErrInjected = errors.New("audiotest: injected failure")

// Pattern returns n bytes of a deterministic sequence starting at position
// start. The period is prime so a shifted or dropped slice never matches.
func Pattern(start, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte((start + i) % 251)
	}
	return b
}

// PatternReader yields Pattern(0, size) in reads of at most MaxRead bytes.
type PatternReader struct {
	Size    int
	MaxRead int // 0 means unlimited

	pos int
}

func NewPatternReader(size int) *PatternReader {
	return &PatternReader{Size: size}
}

func (r *PatternReader) Read(p []byte) (int, error) {
	if r.pos >= r.Size {
		return 0, io.EOF
	}

	n := min(len(p), r.Size-r.pos)
	if r.MaxRead > 0 {
		n = min(n, r.MaxRead)
	}
	for i := range n {
		p[i] = byte((r.pos + i) % 251)
	}
	r.pos += n
	return n, nil
}

// SlowReader sleeps Delay before every read of R.
type SlowReader struct {
	R     io.Reader
	Delay time.Duration
}

func (r *SlowReader) Read(p []byte) (int, error) {
	time.Sleep(r.Delay)
	return r.R.Read(p)
}

// FailingReader passes After bytes of R through and then fails with Err.
type FailingReader struct {
	R     io.Reader
	After int
	Err   error

	read int
}

func (r *FailingReader) Read(p []byte) (int, error) {
	if r.read >= r.After {
		if r.Err == nil {
			return 0, ErrInjected
		}
		return 0, r.Err
	}

	n, err := r.R.Read(p[:min(len(p), r.After-r.read)])
	r.read += n
	return n, err
}

// MockSink records everything written to it. It satisfies the sink
// interface used by the drainer without importing it.
type MockSink struct {
	// MaxChunk caps the bytes accepted per call; 0 accepts everything.
	MaxChunk int
	// Delay is slept before each accepted write.
	Delay time.Duration
	// StallAfter makes every write past this many bytes accept nothing.
	// Negative disables stalling.
	StallAfter int
	// FailAfter makes every write past this many bytes fail with
	// ErrInjected. Negative disables failing.
	FailAfter int

	mtx    sync.Mutex
	data   []byte
	calls  int
	closed bool
}

func NewMockSink() *MockSink {
	return &MockSink{StallAfter: -1, FailAfter: -1}
}

func (s *MockSink) Write(p []byte, timeout time.Duration) (int, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.calls++

	if s.FailAfter >= 0 && len(s.data) >= s.FailAfter {
		return 0, ErrInjected
	}
	if s.StallAfter >= 0 && len(s.data) >= s.StallAfter {
		if timeout > 0 {
			time.Sleep(timeout)
		}
		return 0, nil
	}

	n := len(p)
	if s.MaxChunk > 0 {
		n = min(n, s.MaxChunk)
	}
	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}

	s.data = append(s.data, p[:n]...)
	return n, nil
}

func (s *MockSink) Close() error {
	s.mtx.Lock()
	s.closed = true
	s.mtx.Unlock()
	return nil
}

// Bytes returns a copy of everything accepted so far.
func (s *MockSink) Bytes() []byte {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return append([]byte(nil), s.data...)
}

func (s *MockSink) Len() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return len(s.data)
}

func (s *MockSink) Calls() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.calls
}

func (s *MockSink) Closed() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.closed
}
