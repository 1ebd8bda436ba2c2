// SPDX-License-Identifier: EPL-2.0

package pump

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/ik5/wavstream/audio"
	"github.com/ik5/wavstream/ringbuf"
)

// State is the feeder's lifecycle position.
type State int32

const (
	StateInit State = iota
	StateStreaming
	StateFinished
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateStreaming:
		return "streaming"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Feeder copies the PCM payload of one file into a ring buffer.
type Feeder struct {
	rb  *ringbuf.RingBuffer
	src io.Reader
	hdr audio.Header

	quantum   int
	slowRead  time.Duration
	slowWrite time.Duration
	transform Transformer
	loop      bool
	logger    *log.Logger
	id        uuid.UUID

	state atomic.Int32
	stats counters
}

// NewFeeder prepares a feeder for the payload described by hdr. If src is
// an io.Seeker it is positioned at hdr.DataOffset before the first read;
// otherwise it must already be there. A negative hdr.DataLength streams
// until src is exhausted.
func NewFeeder(rb *ringbuf.RingBuffer, src io.Reader, hdr audio.Header, opts ...FeederOption) *Feeder {
	f := &Feeder{
		rb:        rb,
		src:       src,
		hdr:       hdr,
		quantum:   DefaultQuantum,
		slowRead:  DefaultSlowRead,
		slowWrite: DefaultSlowWrite,
		logger:    discardLogger("feeder"),
		id:        uuid.New(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Feeder) ID() uuid.UUID { return f.id }
func (f *Feeder) State() State  { return State(f.state.Load()) }
func (f *Feeder) Stats() Stats  { return f.stats.snapshot() }

// Run streams until the payload is exhausted, a read fails, or the ring is
// aborted. The ring is marked done on every path out. A file that ends
// before its declared length is not an error. With WithLoop the payload is
// replayed from DataOffset until the ring is aborted.
func (f *Feeder) Run(ctx context.Context) (err error) {
	if !f.state.CompareAndSwap(int32(StateInit), int32(StateStreaming)) {
		return ErrAlreadyStarted
	}

	f.rb.SetWriterOwner(f.id)
	stop := context.AfterFunc(ctx, f.rb.Abort)

	defer func() {
		stop()
		f.rb.DoneWriting()
		f.finish(err)
	}()

	seeker, seekable := f.src.(io.Seeker)
	if f.loop && !seekable {
		return fmt.Errorf("%w: %w", ErrFeederFailed, ErrNotSeekable)
	}
	if seekable {
		if _, err := seeker.Seek(f.hdr.DataOffset, io.SeekStart); err != nil {
			return fmt.Errorf("%w: seek to data: %w", ErrFeederFailed, err)
		}
	}

	f.logger.Info("streaming", "id", f.id, "offset", f.hdr.DataOffset, "length", f.hdr.DataLength, "quantum", f.quantum, "loop", f.loop)

	buf := make([]byte, f.quantum)
	var expanded []byte

	remaining := f.hdr.DataLength
	slice := f.firstSlice()
	var read int64

	for {
		if remaining == 0 {
			again, err := f.endOfPass(seeker, read)
			if err != nil || !again {
				return err
			}
			remaining, slice, read = f.hdr.DataLength, f.firstSlice(), 0
			continue
		}

		n := slice
		if remaining > 0 && int64(n) > remaining {
			n = int(remaining)
		}
		slice = f.quantum

		start := time.Now()
		got, rerr := io.ReadFull(f.src, buf[:n])
		if elapsed := time.Since(start); elapsed > f.slowRead {
			f.stats.slowReads.Add(1)
			f.logger.Warn("slow file read", "bytes", got, "elapsed", elapsed)
		}

		eof := errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF)
		if rerr != nil && !eof {
			return fmt.Errorf("%w: read: %w", ErrFeederFailed, rerr)
		}

		if got > 0 {
			out := buf[:got]
			if f.transform != nil {
				expanded = f.transform.Transform(expanded, out)
				out = expanded
			}

			if err := f.write(ctx, out); err != nil {
				return err
			}

			read += int64(got)
			if remaining > 0 {
				remaining -= int64(got)
			}
		}

		if eof {
			if remaining > 0 {
				f.logger.Warn("file shorter than declared", "missing", remaining)
			}
			remaining = 0
		}
	}
}

// firstSlice ends the first read of a pass on a quantum-aligned file offset.
func (f *Feeder) firstSlice() int {
	return f.quantum - int(f.hdr.DataOffset%int64(f.quantum))
}

// endOfPass is called each time the payload is exhausted, with the number
// of bytes the pass read. It reports whether the feeder rewound for another
// pass.
func (f *Feeder) endOfPass(seeker io.Seeker, read int64) (bool, error) {
	if read > 0 {
		f.stats.passes.Add(1)
	}
	if !f.loop {
		return false, nil
	}
	if read == 0 {
		f.logger.Warn("empty payload, not looping")
		return false, nil
	}

	if _, err := seeker.Seek(f.hdr.DataOffset, io.SeekStart); err != nil {
		return false, fmt.Errorf("%w: rewind: %w", ErrFeederFailed, err)
	}
	f.logger.Debug("rewound", "passes", f.stats.passes.Load())
	return true, nil
}

func (f *Feeder) write(ctx context.Context, p []byte) error {
	start := time.Now()
	n, err := f.rb.Write(p, ringbuf.Forever)
	elapsed := time.Since(start)

	f.stats.bytes.Add(int64(n))
	f.stats.slices.Add(1)

	if err != nil {
		if errors.Is(err, ringbuf.ErrAborted) && ctx.Err() != nil {
			return fmt.Errorf("%w: %w", err, context.Cause(ctx))
		}
		return err
	}

	if elapsed > f.slowWrite {
		f.stats.slowWrites.Add(1)
		f.logger.Warn("slow ring write", "bytes", n, "elapsed", elapsed)
	}
	if filled := f.rb.BytesFilled(); filled < lowWater {
		f.stats.lowWater.Add(1)
		f.logger.Warn("ring running low", "filled", filled)
	}
	return nil
}

func (f *Feeder) finish(err error) {
	stats := f.stats.snapshot()

	switch {
	case err == nil:
		f.state.Store(int32(StateFinished))
		f.logger.Info("finished", "bytes", stats.Bytes, "slices", stats.Slices)
	case errors.Is(err, ringbuf.ErrAborted):
		f.state.Store(int32(StateFailed))
		f.logger.Debug("aborted", "bytes", stats.Bytes)
	default:
		f.state.Store(int32(StateFailed))
		f.logger.Error("failed", "err", err, "bytes", stats.Bytes)
	}
}
