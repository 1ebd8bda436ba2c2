// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// WAVE format codes.
const (
	FormatPCM       uint16 = 1
	FormatIEEEFloat uint16 = 3
	FormatALaw      uint16 = 6
	FormatMULaw     uint16 = 7
)

// Unbounded marks a Header whose payload runs until end of stream.
const Unbounded int64 = -1

// Params describes how PCM bytes are framed.
type Params struct {
	AudioFormat    uint16
	Channels       int
	SampleRate     int
	BitsPerSample  int
	BlockAlign     int // Channels * BitsPerSample / 8
	BytesPerSecond int // SampleRate * BlockAlign
}

// NewParams builds Params and derives BlockAlign and BytesPerSecond.
func NewParams(format uint16, channels, sampleRate, bitsPerSample int) Params {
	p := Params{
		AudioFormat:   format,
		Channels:      channels,
		SampleRate:    sampleRate,
		BitsPerSample: bitsPerSample,
	}
	p.BlockAlign = channels * bitsPerSample / 8
	p.BytesPerSecond = sampleRate * p.BlockAlign
	return p
}

// Validate rejects framing a sink cannot play.
func (p Params) Validate() error {
	switch {
	case p.Channels < 1 || p.Channels > 2:
		return fmt.Errorf("%w: %d channels", ErrInvalidParams, p.Channels)
	case p.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %d", ErrInvalidParams, p.SampleRate)
	}

	switch p.BitsPerSample {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("%w: %d bits per sample", ErrInvalidParams, p.BitsPerSample)
	}

	if p.BlockAlign != p.Channels*p.BitsPerSample/8 {
		return fmt.Errorf("%w: block align %d", ErrInvalidParams, p.BlockAlign)
	}
	return nil
}

// Duration is the playback time of n bytes.
func (p Params) Duration(n int64) time.Duration {
	if p.BytesPerSecond <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(p.BytesPerSecond)
}

func (p Params) String() string {
	return fmt.Sprintf("format=%d channels=%d rate=%dHz bits=%d", p.AudioFormat, p.Channels, p.SampleRate, p.BitsPerSample)
}

// Header is the result of parsing a container: the framing plus where the
// PCM payload lives.
type Header struct {
	Params
	DataOffset int64 // absolute offset of the first PCM byte
	DataLength int64 // payload size in bytes, or Unbounded
}

// Container parses a file header and returns the reader PCM bytes should be
// pulled from. For raw containers this is rs itself; others may convert.
type Container interface {
	Open(rs io.ReadSeeker) (Header, io.Reader, error)
}

// Registry maps file extensions (e.g., "wav", "aiff") to containers.
type Registry struct {
	containers map[string]Container

	mtx *sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		containers: make(map[string]Container),
		mtx:        &sync.Mutex{},
	}
}

func (r *Registry) Register(ext string, c Container) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.containers[normalizeExt(ext)] = c
}

func (r *Registry) Get(ext string) (Container, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	c, ok := r.containers[normalizeExt(ext)]
	return c, ok
}

// Lookup picks a container by the extension of path.
func (r *Registry) Lookup(path string) (Container, error) {
	ext := filepath.Ext(path)
	c, ok := r.Get(ext)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownContainer, ext)
	}
	return c, nil
}

// Extensions lists registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	exts := make([]string, 0, len(r.containers))
	for ext := range r.containers {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
