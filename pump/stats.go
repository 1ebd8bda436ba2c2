// SPDX-License-Identifier: EPL-2.0

package pump

import "sync/atomic"

// Stats is a snapshot of a loop's counters. Fields that do not apply to a
// loop stay zero.
type Stats struct {
	Bytes  int64 // bytes moved into the ring (feeder) or into the sink (drainer)
	Slices int64

	// feeder
	Passes     int64 // times the payload was read to its end
	SlowReads  int64
	SlowWrites int64
	LowWater   int64

	// drainer
	ShortReads    int64
	Starvations   int64
	PartialWrites int64
	SinkStalls    int64
}

type counters struct {
	bytes         atomic.Int64
	slices        atomic.Int64
	passes        atomic.Int64
	slowReads     atomic.Int64
	slowWrites    atomic.Int64
	lowWater      atomic.Int64
	shortReads    atomic.Int64
	starvations   atomic.Int64
	partialWrites atomic.Int64
	sinkStalls    atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Bytes:         c.bytes.Load(),
		Slices:        c.slices.Load(),
		Passes:        c.passes.Load(),
		SlowReads:     c.slowReads.Load(),
		SlowWrites:    c.slowWrites.Load(),
		LowWater:      c.lowWater.Load(),
		ShortReads:    c.shortReads.Load(),
		Starvations:   c.starvations.Load(),
		PartialWrites: c.partialWrites.Load(),
		SinkStalls:    c.sinkStalls.Load(),
	}
}
