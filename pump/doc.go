// SPDX-License-Identifier: EPL-2.0

// Package pump moves PCM bytes from a file into a ring buffer and from the
// ring buffer into a sink.
//
// A Feeder and a Drainer share exactly one ringbuf.RingBuffer and nothing
// else. Each runs on its own goroutine:
//
//	rb, _ := ringbuf.New(64 * 1024)
//	f := pump.NewFeeder(rb, file, hdr)
//	d := pump.NewDrainer(rb, out)
//
//	go f.Run(ctx)
//	err := d.Run(ctx)
//
// Both loops block on the ring without a timeout. Cancelling ctx aborts
// the ring, which wakes whichever side is blocked; both then return an
// error wrapping ringbuf.ErrAborted.
//
// The feeder always marks the ring done before returning, so a drainer is
// never left waiting on a feeder that has gone away.
package pump
