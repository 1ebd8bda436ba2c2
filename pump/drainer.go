// SPDX-License-Identifier: EPL-2.0

package pump

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/ik5/wavstream/ringbuf"
	"github.com/ik5/wavstream/sink"
)

// Drainer copies bytes from a ring buffer into a sink until the feeder is
// done and the ring is empty.
type Drainer struct {
	rb   *ringbuf.RingBuffer
	sink sink.Sink

	quantum          int
	prechargeFree    int
	prechargePoll    time.Duration
	prechargeTimeout time.Duration
	sinkTimeout      time.Duration
	maxStalls        int
	starvation       time.Duration
	lockThread       bool
	logger           *log.Logger
	id               uuid.UUID

	started bool
	stats   counters
}

func NewDrainer(rb *ringbuf.RingBuffer, s sink.Sink, opts ...DrainerOption) *Drainer {
	d := &Drainer{
		rb:               rb,
		sink:             s,
		quantum:          DefaultQuantum,
		prechargeFree:    DefaultPrechargeFree,
		prechargePoll:    DefaultPrechargePoll,
		prechargeTimeout: DefaultPrechargeTimeout,
		sinkTimeout:      sink.Forever,
		starvation:       DefaultStarvation,
		logger:           discardLogger("drainer"),
		id:               uuid.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Drainer) ID() uuid.UUID { return d.id }
func (d *Drainer) Stats() Stats  { return d.stats.snapshot() }

// Run precharges, then drains until the ring reports end of stream. It
// returns nil only on that graceful completion; a ring timeout, an abort
// or a sink error ends the loop with an error.
func (d *Drainer) Run(ctx context.Context) error {
	if d.started {
		return ErrAlreadyStarted
	}
	d.started = true

	if d.lockThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	d.rb.SetReaderOwner(d.id)
	stop := context.AfterFunc(ctx, d.rb.Abort)
	defer stop()

	if err := d.precharge(ctx); err != nil {
		return d.fail(ctx, err)
	}

	d.logger.Info("draining", "id", d.id, "filled", d.rb.BytesFilled(), "quantum", d.quantum)

	buf := make([]byte, d.quantum)
	for {
		start := time.Now()
		n, err := d.rb.Read(buf, ringbuf.Forever)
		waited := time.Since(start)

		if err != nil {
			return d.fail(ctx, err)
		}
		if n == 0 {
			stats := d.stats.snapshot()
			d.logger.Info("drain complete", "bytes", stats.Bytes, "starvations", stats.Starvations)
			return nil
		}

		if d.starvation > 0 && waited > d.starvation {
			d.stats.starvations.Add(1)
			d.logger.Warn("ring starved", "waited", waited)
		}
		if n < d.quantum {
			d.stats.shortReads.Add(1)
		}
		d.stats.slices.Add(1)

		if err := d.writeAll(ctx, buf[:n]); err != nil {
			return d.fail(ctx, err)
		}
	}
}

// precharge waits for the ring to fill up to the free-space threshold, or
// for the writer to finish early.
func (d *Drainer) precharge(ctx context.Context) error {
	if d.prechargeTimeout <= 0 || d.prechargePoll <= 0 {
		return nil
	}

	ticker := time.NewTicker(d.prechargePoll)
	defer ticker.Stop()
	deadline := time.Now().Add(d.prechargeTimeout)

	for d.rb.BytesFree() > d.prechargeFree && !d.rb.IsDoneWriting() {
		if d.rb.IsAborted() {
			return ringbuf.ErrAborted
		}
		if time.Now().After(deadline) {
			d.logger.Warn("precharge timed out", "filled", d.rb.BytesFilled())
			return nil
		}

		select {
		case <-ctx.Done():
			return ringbuf.ErrAborted
		case <-ticker.C:
		}
	}
	return nil
}

// writeAll keeps offering the remainder of p until the sink has taken it.
func (d *Drainer) writeAll(ctx context.Context, p []byte) error {
	stalls := 0

	for len(p) > 0 {
		n, err := d.sink.Write(p, d.sinkTimeout)
		d.stats.bytes.Add(int64(n))
		if err != nil {
			return fmt.Errorf("sink write: %w", err)
		}

		if n == 0 {
			d.stats.sinkStalls.Add(1)
			stalls++
			if d.maxStalls > 0 && stalls >= d.maxStalls {
				return fmt.Errorf("%w: %d attempts", ErrSinkStalled, stalls)
			}
			if ctx.Err() != nil {
				return ringbuf.ErrAborted
			}
			continue
		}

		stalls = 0
		if n < len(p) {
			d.stats.partialWrites.Add(1)
		}
		p = p[n:]
	}
	return nil
}

func (d *Drainer) fail(ctx context.Context, err error) error {
	if errors.Is(err, ringbuf.ErrAborted) {
		d.logger.Debug("aborted", "bytes", d.stats.bytes.Load())
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", err, context.Cause(ctx))
		}
		return err
	}

	d.logger.Error("stopped", "err", err, "bytes", d.stats.bytes.Load())
	return err
}
