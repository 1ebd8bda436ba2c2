// SPDX-License-Identifier: EPL-2.0

package ringbuf

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// MinCapacity is the smallest arena New accepts.
const MinCapacity = 4

const (
	// Forever blocks until the call can make progress.
	Forever time.Duration = -1
	// NoWait never blocks.
	NoWait time.Duration = 0
)

// alignMask rounds short reads down to whole 4-byte frames.
const alignMask = ^3

// RingBuffer is a fixed-capacity byte FIFO shared by exactly one writer and
// one reader.
type RingBuffer struct {
	mu   sync.Mutex
	buf  []byte
	size int
	r    int
	w    int
	fill atomic.Int64

	canRead  chan struct{}
	canWrite chan struct{}

	doneWriting   bool
	abortRead     bool
	abortWrite    bool
	unblockReader bool
	closed        bool

	readPending  bool
	readLen      int
	writePending bool
	writeLen     int

	placement Placement
	owners    ownerTags
}

// New creates a ring buffer with an arena of capacity bytes.
func New(capacity int, opts ...Option) (*RingBuffer, error) {
	if capacity < MinCapacity {
		return nil, ErrInvalidCapacity
	}

	cfg := config{alloc: defaultAlloc}
	for _, opt := range opts {
		opt(&cfg)
	}

	buf, err := cfg.alloc(capacity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAllocation, err)
	}
	if len(buf) < capacity {
		return nil, fmt.Errorf("%w: arena has %d bytes, want %d", ErrAllocation, len(buf), capacity)
	}

	return &RingBuffer{
		buf:       buf[:capacity],
		size:      capacity,
		canRead:   make(chan struct{}, 1),
		canWrite:  make(chan struct{}, 1),
		placement: cfg.placement,
	}, nil
}

// Close releases the arena. No reader or writer may be blocked inside rb;
// abort first.
func (rb *RingBuffer) Close() error {
	rb.mu.Lock()
	if rb.closed {
		rb.mu.Unlock()
		return nil
	}
	rb.closed = true
	rb.buf = nil
	rb.mu.Unlock()

	release(rb.canRead)
	release(rb.canWrite)
	return nil
}

// Reset empties the buffer and clears the done, abort and unblock flags.
// It must not race with an in-flight Read or Write.
func (rb *RingBuffer) Reset() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.r, rb.w = 0, 0
	rb.fill.Store(0)
	rb.doneWriting = false
	rb.abortRead = false
	rb.abortWrite = false
	rb.unblockReader = false
	rb.readPending, rb.readLen = false, 0
	rb.writePending, rb.writeLen = false, 0

	drain(rb.canRead)
	drain(rb.canWrite)
}

// ResetDoneWriting clears the done flag so the buffer can carry another stream.
func (rb *RingBuffer) ResetDoneWriting() {
	rb.mu.Lock()
	rb.doneWriting = false
	rb.mu.Unlock()
}

func (rb *RingBuffer) Size() int            { return rb.size }
func (rb *RingBuffer) Placement() Placement { return rb.placement }

// BytesFilled is a snapshot of the unread byte count.
func (rb *RingBuffer) BytesFilled() int { return int(rb.fill.Load()) }

// BytesFree is a snapshot of the writable byte count.
func (rb *RingBuffer) BytesFree() int { return rb.size - int(rb.fill.Load()) }

func (rb *RingBuffer) IsFull() bool { return rb.BytesFree() == 0 }

func (rb *RingBuffer) IsDoneWriting() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.doneWriting
}

// IsAborted reports whether Abort was called since the last Reset.
func (rb *RingBuffer) IsAborted() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.abortRead || rb.abortWrite
}

// DoneWriting marks the end of the stream and wakes a blocked reader. The
// reader observes it only once every byte written before it has been read.
func (rb *RingBuffer) DoneWriting() {
	rb.mu.Lock()
	rb.doneWriting = true
	rb.mu.Unlock()

	release(rb.canRead)
}

// Abort wakes a blocked reader and writer. Both, and every later call,
// return ErrAborted until Reset. Safe to call from any goroutine.
func (rb *RingBuffer) Abort() {
	rb.mu.Lock()
	rb.abortRead = true
	rb.abortWrite = true
	rb.mu.Unlock()

	release(rb.canRead)
	release(rb.canWrite)
}

// UnblockReader forces the next Read that would block to return ErrTimedOut.
func (rb *RingBuffer) UnblockReader() {
	rb.mu.Lock()
	rb.unblockReader = true
	rb.mu.Unlock()

	release(rb.canRead)
}

// Write copies p into the buffer, blocking while it is full. It returns the
// number of bytes committed; n < len(p) always comes with an error.
func (rb *RingBuffer) Write(p []byte, timeout time.Duration) (int, error) {
	if len(p) == 0 {
		rb.mu.Lock()
		defer rb.mu.Unlock()
		return 0, rb.writeBlockedLocked()
	}

	deadline := deadlineFor(timeout)
	total := 0

	for total < len(p) {
		rb.mu.Lock()
		if err := rb.writeBlockedLocked(); err != nil {
			rb.mu.Unlock()
			return total, err
		}
		if rb.writePending {
			rb.mu.Unlock()
			return total, ErrAcquirePending
		}

		free := rb.size - int(rb.fill.Load())
		if free == 0 {
			rb.mu.Unlock()
			// let the reader run before we sleep
			release(rb.canRead)
			if !wait(rb.canWrite, timeout, deadline) {
				return total, ErrTimedOut
			}
			continue
		}

		n := min(free, len(p)-total)
		rb.copyInLocked(p[total : total+n])
		rb.mu.Unlock()

		total += n
		release(rb.canRead)
	}

	return total, nil
}

// Read copies up to len(p) bytes out of the buffer. It blocks only while
// nothing can be returned. A short read is rounded down to whole 4-byte
// frames unless the writer is done. (0, nil) means the writer is done and
// the buffer is empty.
func (rb *RingBuffer) Read(p []byte, timeout time.Duration) (int, error) {
	return rb.read(p, len(p), timeout)
}

// Discard advances the read cursor by up to n bytes without copying. It
// follows the same blocking and alignment rules as Read.
func (rb *RingBuffer) Discard(n int, timeout time.Duration) (int, error) {
	return rb.read(nil, n, timeout)
}

func (rb *RingBuffer) read(p []byte, want int, timeout time.Duration) (int, error) {
	if want <= 0 {
		return 0, nil
	}
	deadline := deadlineFor(timeout)

	for {
		rb.mu.Lock()
		if err := rb.readBlockedLocked(); err != nil {
			rb.mu.Unlock()
			return 0, err
		}
		if rb.readPending {
			rb.mu.Unlock()
			return 0, ErrAcquirePending
		}

		n := rb.readableLocked(want)
		if n == 0 {
			if stop, err := rb.readEmptyLocked(); stop {
				rb.mu.Unlock()
				return 0, err
			}
			rb.mu.Unlock()
			release(rb.canWrite)
			if !wait(rb.canRead, timeout, deadline) {
				rb.clearUnblock()
				return 0, ErrTimedOut
			}
			continue
		}

		rb.copyOutLocked(p, n)
		rb.unblockReader = false
		rb.mu.Unlock()

		release(rb.canWrite)
		return n, nil
	}
}

func (rb *RingBuffer) writeBlockedLocked() error {
	switch {
	case rb.closed:
		return ErrClosed
	case rb.abortWrite:
		return ErrAborted
	case rb.doneWriting:
		return ErrWriterDone
	}
	return nil
}

func (rb *RingBuffer) readBlockedLocked() error {
	switch {
	case rb.closed:
		return ErrClosed
	case rb.abortRead:
		rb.unblockReader = false
		return ErrAborted
	}
	return nil
}

// readEmptyLocked decides what an empty read does instead of blocking.
func (rb *RingBuffer) readEmptyLocked() (bool, error) {
	switch {
	case rb.doneWriting:
		rb.unblockReader = false
		return true, nil
	case rb.unblockReader:
		rb.unblockReader = false
		return true, ErrTimedOut
	}
	return false, nil
}

func (rb *RingBuffer) clearUnblock() {
	rb.mu.Lock()
	rb.unblockReader = false
	rb.mu.Unlock()
}

// readableLocked applies the alignment policy to a request of want bytes.
func (rb *RingBuffer) readableLocked(want int) int {
	fill := int(rb.fill.Load())
	if fill >= want {
		return want
	}
	if rb.doneWriting {
		return fill
	}
	return fill & alignMask
}

func (rb *RingBuffer) copyInLocked(p []byte) {
	n := len(p)
	first := min(n, rb.size-rb.w)
	copy(rb.buf[rb.w:], p[:first])
	copy(rb.buf, p[first:])

	rb.w = (rb.w + n) % rb.size
	rb.fill.Add(int64(n))
}

// copyOutLocked moves n bytes out; a nil p only advances the cursor.
func (rb *RingBuffer) copyOutLocked(p []byte, n int) {
	if p != nil {
		first := min(n, rb.size-rb.r)
		copy(p, rb.buf[rb.r:rb.r+first])
		copy(p[first:n], rb.buf[:n-first])
	}

	rb.r = (rb.r + n) % rb.size
	rb.fill.Add(-int64(n))
}

func defaultAlloc(n int) ([]byte, error) {
	return make([]byte, n), nil
}

// release gives a binary signal; a signal already pending is kept as is.
func release(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func drain(ch chan struct{}) {
	select {
	case <-ch:
	default:
	}
}

func deadlineFor(timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}

// wait takes a binary signal, giving up at deadline.
func wait(ch chan struct{}, timeout time.Duration, deadline time.Time) bool {
	if timeout < 0 {
		<-ch
		return true
	}

	remaining := time.Until(deadline)
	if timeout == 0 || remaining <= 0 {
		select {
		case <-ch:
			return true
		default:
			return false
		}
	}

	t := time.NewTimer(remaining)
	defer t.Stop()

	select {
	case <-ch:
		return true
	case <-t.C:
		return false
	}
}
