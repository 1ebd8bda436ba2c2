// SPDX-License-Identifier: EPL-2.0

package ringbuf

import "errors"

var (
	// ErrInvalidCapacity is returned by New for capacities below MinCapacity.
	ErrInvalidCapacity = errors.New("ring buffer capacity must be at least 4 bytes")

	// ErrAllocation is returned when the arena cannot be allocated.
	ErrAllocation = errors.New("ring buffer allocation failed")

	// ErrAborted is returned by blocked or subsequent calls after Abort.
	ErrAborted = errors.New("ring buffer aborted")

	// ErrTimedOut is returned when a call ran out of time, or when the
	// reader was woken by UnblockReader.
	ErrTimedOut = errors.New("ring buffer timed out")

	// ErrWriterDone is returned when writing after DoneWriting. It is a
	// programming error, not a runtime condition.
	ErrWriterDone = errors.New("writer already done")

	// ErrClosed is returned by every call made after Close.
	ErrClosed = errors.New("ring buffer closed")

	ErrInvalidLength  = errors.New("length must be positive")
	ErrAcquirePending = errors.New("an acquired view is still pending")
	ErrNotAcquired    = errors.New("no acquired view to complete")
	ErrCommitTooLarge = errors.New("commit length exceeds acquired view")
)
