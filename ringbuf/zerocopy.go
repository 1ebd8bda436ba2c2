// SPDX-License-Identifier: EPL-2.0

package ringbuf

import "time"

// AcquireWrite returns a writable view of at most limit bytes, blocking while
// the buffer is full. The view stays valid until CompleteWrite. It never
// crosses the end of the arena, so it may be shorter than the free space.
func (rb *RingBuffer) AcquireWrite(limit int, timeout time.Duration) ([]byte, error) {
	if limit <= 0 {
		return nil, ErrInvalidLength
	}
	deadline := deadlineFor(timeout)

	for {
		rb.mu.Lock()
		if err := rb.writeBlockedLocked(); err != nil {
			rb.mu.Unlock()
			return nil, err
		}
		if rb.writePending {
			rb.mu.Unlock()
			return nil, ErrAcquirePending
		}

		free := rb.size - int(rb.fill.Load())
		if free == 0 {
			rb.mu.Unlock()
			release(rb.canRead)
			if !wait(rb.canWrite, timeout, deadline) {
				return nil, ErrTimedOut
			}
			continue
		}

		n := min(free, rb.size-rb.w, limit)
		view := rb.buf[rb.w : rb.w+n : rb.w+n]
		rb.writePending, rb.writeLen = true, n
		rb.mu.Unlock()

		return view, nil
	}
}

// CompleteWrite commits the first n bytes of the view returned by
// AcquireWrite. n may be zero to give the view back unused.
func (rb *RingBuffer) CompleteWrite(n int) error {
	rb.mu.Lock()
	if rb.closed {
		rb.mu.Unlock()
		return ErrClosed
	}
	if !rb.writePending {
		rb.mu.Unlock()
		return ErrNotAcquired
	}
	if n < 0 || n > rb.writeLen {
		rb.mu.Unlock()
		return ErrCommitTooLarge
	}

	rb.w = (rb.w + n) % rb.size
	rb.fill.Add(int64(n))
	rb.writePending, rb.writeLen = false, 0
	rb.mu.Unlock()

	if n > 0 {
		release(rb.canRead)
	}
	return nil
}

// AcquireRead returns a readable view of at most limit bytes under the same
// blocking and alignment rules as Read. A view that would wrap is cut at the
// end of the arena and rounded down to whole frames; only when fewer than 4
// bytes are left before the end is that short tail returned on its own. A
// nil view with a nil error means the writer is done and the buffer is
// drained.
func (rb *RingBuffer) AcquireRead(limit int, timeout time.Duration) ([]byte, error) {
	if limit <= 0 {
		return nil, ErrInvalidLength
	}
	deadline := deadlineFor(timeout)

	for {
		rb.mu.Lock()
		if err := rb.readBlockedLocked(); err != nil {
			rb.mu.Unlock()
			return nil, err
		}
		if rb.readPending {
			rb.mu.Unlock()
			return nil, ErrAcquirePending
		}

		n := rb.readableLocked(limit)
		if n == 0 {
			if stop, err := rb.readEmptyLocked(); stop {
				rb.mu.Unlock()
				return nil, err
			}
			rb.mu.Unlock()
			release(rb.canWrite)
			if !wait(rb.canRead, timeout, deadline) {
				rb.clearUnblock()
				return nil, ErrTimedOut
			}
			continue
		}

		if tail := rb.size - rb.r; n > tail {
			n = tail
			if !rb.doneWriting && n >= 4 {
				n &= alignMask
			}
		}
		view := rb.buf[rb.r : rb.r+n : rb.r+n]
		rb.readPending, rb.readLen = true, n
		rb.unblockReader = false
		rb.mu.Unlock()

		return view, nil
	}
}

// CompleteRead releases the first n bytes of the view returned by
// AcquireRead back to the writer.
func (rb *RingBuffer) CompleteRead(n int) error {
	rb.mu.Lock()
	if rb.closed {
		rb.mu.Unlock()
		return ErrClosed
	}
	if !rb.readPending {
		rb.mu.Unlock()
		return ErrNotAcquired
	}
	if n < 0 || n > rb.readLen {
		rb.mu.Unlock()
		return ErrCommitTooLarge
	}

	rb.r = (rb.r + n) % rb.size
	rb.fill.Add(-int64(n))
	rb.readPending, rb.readLen = false, 0
	rb.mu.Unlock()

	if n > 0 {
		release(rb.canWrite)
	}
	return nil
}
