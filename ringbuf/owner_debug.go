// SPDX-License-Identifier: EPL-2.0

//go:build ringbufdebug

package ringbuf

type ownerTags struct {
	reader any
	writer any
}

// SetReaderOwner records who currently reads from rb. Diagnostic only.
func (rb *RingBuffer) SetReaderOwner(owner any) {
	rb.mu.Lock()
	rb.owners.reader = owner
	rb.mu.Unlock()
}

// SetWriterOwner records who currently writes to rb. Diagnostic only.
func (rb *RingBuffer) SetWriterOwner(owner any) {
	rb.mu.Lock()
	rb.owners.writer = owner
	rb.mu.Unlock()
}

func (rb *RingBuffer) ReaderOwner() any {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.owners.reader
}

func (rb *RingBuffer) WriterOwner() any {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.owners.writer
}
