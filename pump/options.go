// SPDX-License-Identifier: EPL-2.0

package pump

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const (
	// DefaultQuantum is the slice size of one feeder read and one drainer read.
	DefaultQuantum = 8 * 1024

	DefaultSlowRead  = 4 * time.Millisecond
	DefaultSlowWrite = 40 * time.Millisecond

	// DefaultPrechargeFree is the free space at which precharge ends.
	DefaultPrechargeFree    = 1024
	DefaultPrechargePoll    = 5 * time.Millisecond
	DefaultPrechargeTimeout = 2 * time.Second

	// DefaultStarvation is roughly one quantum of 16-bit stereo at 44.1 kHz.
	DefaultStarvation = 46 * time.Millisecond

	// lowWater is the fill level under which the feeder reports that the
	// drainer is catching up.
	lowWater = 4096
)

// Transformer rewrites a slice of file bytes before it enters the ring,
// reusing dst when it can.
type Transformer interface {
	Transform(dst, src []byte) []byte
}

type FeederOption func(*Feeder)

// WithFeederQuantum sets the read slice size. Values below 4 are ignored.
func WithFeederQuantum(n int) FeederOption {
	return func(f *Feeder) {
		if n >= 4 {
			f.quantum = n
		}
	}
}

func WithFeederLogger(l *log.Logger) FeederOption {
	return func(f *Feeder) {
		if l != nil {
			f.logger = l.WithPrefix("feeder")
		}
	}
}

// WithTransformer converts every slice before it is written.
func WithTransformer(t Transformer) FeederOption {
	return func(f *Feeder) { f.transform = t }
}

// WithLoop replays the payload from its start every time it is exhausted,
// without marking the ring done in between. The source must be an
// io.Seeker. Only an abort ends a looping feeder.
func WithLoop() FeederOption {
	return func(f *Feeder) { f.loop = true }
}

// WithSlowThresholds sets the durations above which a file read or a ring
// write is reported as slow.
func WithSlowThresholds(read, write time.Duration) FeederOption {
	return func(f *Feeder) {
		f.slowRead = read
		f.slowWrite = write
	}
}

func WithFeederID(id uuid.UUID) FeederOption {
	return func(f *Feeder) { f.id = id }
}

type DrainerOption func(*Drainer)

// WithDrainerQuantum sets the read slice size. Values below 4 are ignored.
func WithDrainerQuantum(n int) DrainerOption {
	return func(d *Drainer) {
		if n >= 4 {
			d.quantum = n
		}
	}
}

func WithDrainerLogger(l *log.Logger) DrainerOption {
	return func(d *Drainer) {
		if l != nil {
			d.logger = l.WithPrefix("drainer")
		}
	}
}

// WithPrecharge configures the wait before the first read: it ends once
// free space drops to free bytes, polling every poll, giving up after
// timeout. A zero timeout skips precharge.
func WithPrecharge(free int, poll, timeout time.Duration) DrainerOption {
	return func(d *Drainer) {
		d.prechargeFree = free
		d.prechargePoll = poll
		d.prechargeTimeout = timeout
	}
}

// WithSinkTimeout is passed to every sink write. The default is
// sink.Forever.
func WithSinkTimeout(timeout time.Duration) DrainerOption {
	return func(d *Drainer) { d.sinkTimeout = timeout }
}

// WithMaxSinkStalls makes the drainer give up with ErrSinkStalled after n
// consecutive writes that accepted nothing. Zero retries forever.
func WithMaxSinkStalls(n int) DrainerOption {
	return func(d *Drainer) { d.maxStalls = n }
}

// WithStarvationThreshold sets how long a read may wait for data before
// it is counted as starvation. Usually the playback time of one quantum.
func WithStarvationThreshold(d time.Duration) DrainerOption {
	return func(dr *Drainer) { dr.starvation = d }
}

// WithLockOSThread pins the drainer goroutine to its OS thread, the
// nearest thing to a dedicated real-time task.
func WithLockOSThread() DrainerOption {
	return func(d *Drainer) { d.lockThread = true }
}

func WithDrainerID(id uuid.UUID) DrainerOption {
	return func(d *Drainer) { d.id = id }
}

func discardLogger(prefix string) *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Prefix: prefix})
}
