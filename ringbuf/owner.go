// SPDX-License-Identifier: EPL-2.0

//go:build !ringbufdebug

package ringbuf

// ownerTags is empty unless built with the ringbufdebug tag.
type ownerTags struct{}

func (rb *RingBuffer) SetReaderOwner(owner any) {}
func (rb *RingBuffer) SetWriterOwner(owner any) {}
func (rb *RingBuffer) ReaderOwner() any         { return nil }
func (rb *RingBuffer) WriterOwner() any         { return nil }
