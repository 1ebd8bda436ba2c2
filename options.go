// SPDX-License-Identifier: EPL-2.0

package wavstream

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ik5/wavstream/pump"
	"github.com/ik5/wavstream/ringbuf"
	"github.com/ik5/wavstream/sink"
)

// Options configures a Player. Start from DefaultOptions.
type Options struct {
	RingSize  int
	Quantum   int
	Placement ringbuf.Placement

	PrechargeFree    int
	PrechargePoll    time.Duration
	PrechargeTimeout time.Duration

	SlowRead  time.Duration
	SlowWrite time.Duration

	SinkTimeout   time.Duration
	MaxSinkStalls int

	// LockOSThread pins the drainer to its OS thread.
	LockOSThread bool

	Logger *log.Logger
}

// DefaultOptions returns a 64 KiB ring drained in 8 KiB slices.
func DefaultOptions() Options {
	return Options{
		RingSize:         64 * 1024,
		Quantum:          pump.DefaultQuantum,
		Placement:        ringbuf.PlacementDefault,
		PrechargeFree:    pump.DefaultPrechargeFree,
		PrechargePoll:    pump.DefaultPrechargePoll,
		PrechargeTimeout: pump.DefaultPrechargeTimeout,
		SlowRead:         pump.DefaultSlowRead,
		SlowWrite:        pump.DefaultSlowWrite,
		SinkTimeout:      sink.Forever,
	}
}

func (o Options) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.New(io.Discard)
}
