// SPDX-License-Identifier: EPL-2.0

package sink

import (
	"sync"
	"time"
)

// Clocked paces another sink to a fixed byte rate, accepting at most
// maxChunk bytes per call. It stands in for a hardware FIFO that drains at
// the sample clock: data is accepted up to one chunk ahead of real time.
type Clocked struct {
	next     Sink
	rate     int
	maxChunk int
	lead     time.Duration

	mtx   sync.Mutex
	start time.Time
	sent  int64
}

// NewClocked wraps next. bytesPerSecond must be positive; a maxChunk of
// zero or less means no cap.
func NewClocked(next Sink, bytesPerSecond, maxChunk int) *Clocked {
	c := &Clocked{
		next:     next,
		rate:     bytesPerSecond,
		maxChunk: maxChunk,
	}
	if maxChunk > 0 {
		c.lead = c.duration(int64(maxChunk))
	}
	return c
}

func (c *Clocked) Write(p []byte, timeout time.Duration) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	c.mtx.Lock()
	defer c.mtx.Unlock()

	now := time.Now()
	if c.start.IsZero() {
		c.start = now
	}

	due := c.start.Add(c.duration(c.sent) - c.lead)
	if wait := due.Sub(now); wait > 0 {
		if timeout >= 0 && wait > timeout {
			time.Sleep(timeout)
			return 0, nil
		}
		time.Sleep(wait)
	}

	n := len(p)
	if c.maxChunk > 0 {
		n = min(n, c.maxChunk)
	}

	n, err := c.next.Write(p[:n], timeout)
	c.sent += int64(n)
	return n, err
}

// Sent is the number of bytes passed to the wrapped sink.
func (c *Clocked) Sent() int64 {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.sent
}

func (c *Clocked) Close() error {
	return c.next.Close()
}

func (c *Clocked) duration(n int64) time.Duration {
	return time.Duration(n) * time.Second / time.Duration(c.rate)
}
