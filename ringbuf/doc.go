// SPDX-License-Identifier: EPL-2.0

// Package ringbuf implements a fixed-capacity, single-producer/single-consumer
// byte ring buffer with blocking semantics, built for feeding audio sinks that
// consume in fixed quanta.
//
// # Blocking Model
//
// A RingBuffer owns one mutex guarding the cursors and fill count, and two
// binary signals: "data available" and "space available". The mutex is only
// held for bookkeeping and copying. It is never held while waiting, so a
// blocked writer can never starve the reader (and the other way round). A
// writer that finds the buffer full signals the reader before it sleeps.
//
//	rb, err := ringbuf.New(64 * 1024)
//	if err != nil {
//	    // ErrInvalidCapacity or ErrAllocation
//	}
//
//	// producer
//	n, err := rb.Write(slice, ringbuf.Forever)
//	rb.DoneWriting()
//
//	// consumer
//	n, err := rb.Read(buf, ringbuf.Forever)
//	if n == 0 && err == nil {
//	    // writer is done and the buffer is drained
//	}
//
// # Alignment Policy
//
// When fewer bytes than requested are available, Read returns the available
// count rounded down to a multiple of 4 so 16-bit stereo frames are never
// split. Once DoneWriting has been called the remainder is returned as is.
// The policy assumes 4-byte frames; mono or 24-bit streams may see a split
// frame on a short read.
//
// # Cancellation
//
// Abort wakes both sides; every call after it returns ErrAborted until Reset.
// UnblockReader makes the next blocked Read return ErrTimedOut once, without
// aborting the stream.
//
// # Zero Copy
//
// AcquireWrite/CompleteWrite and AcquireRead/CompleteRead expose a contiguous
// view of the arena. A view never crosses the end of the arena; callers
// acquire again for the wrapped part.
//
// # Owner Tags
//
// SetReaderOwner and SetWriterOwner record who holds each side. They are
// diagnostic only and are stored only when built with the ringbufdebug tag.
package ringbuf
