// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/ik5/wavstream/audio"
)

// framesPerRead bounds the decoder scratch buffer.
const framesPerRead = 2048

type pcmSource interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// Parser opens 16-bit AIFF files. Their big-endian samples are converted on
// the fly, so the returned reader yields little-endian PCM like a WAV
// payload.
type Parser struct {
	Logger *log.Logger
}

// Open implements audio.Container. The header's DataLength is
// audio.Unbounded; the reader ends with io.EOF after the last frame.
func (p Parser) Open(rs io.ReadSeeker) (audio.Header, io.Reader, error) {
	var hdr audio.Header

	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return hdr, nil, ErrNotAiffFile
	}

	dec.ReadInfo()

	if dec.BitDepth != 16 {
		return hdr, nil, fmt.Errorf("%w: %d bits", ErrOnlyPCM16bitSupported, dec.BitDepth)
	}

	format := dec.Format()
	if format == nil {
		return hdr, nil, ErrUnsupportedAiffLayout
	}

	hdr.Params = audio.NewParams(audio.FormatPCM, format.NumChannels, format.SampleRate, 16)
	hdr.DataLength = audio.Unbounded
	if err := hdr.Validate(); err != nil {
		return hdr, nil, fmt.Errorf("%w: %w", ErrUnsupportedAiffLayout, err)
	}

	if p.Logger != nil {
		p.Logger.Info("read aiff header", "channels", hdr.Channels, "rate", hdr.SampleRate)
	}

	return hdr, newPCMReader(dec, format), nil
}

// pcmReader adapts a go-audio decoder to io.Reader.
type pcmReader struct {
	src     pcmSource
	buf     *goaudio.IntBuffer
	pending []byte
	scratch []byte
	err     error
}

func newPCMReader(src pcmSource, format *goaudio.Format) *pcmReader {
	return &pcmReader{
		src: src,
		buf: &goaudio.IntBuffer{
			Format:         format,
			Data:           make([]int, framesPerRead*format.NumChannels),
			SourceBitDepth: 16,
		},
		scratch: make([]byte, 0, 2*framesPerRead*format.NumChannels),
	}
}

func (r *pcmReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for len(r.pending) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		r.fill()
	}

	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

func (r *pcmReader) fill() {
	n, err := r.src.PCMBuffer(r.buf)

	out := r.scratch[:2*n]
	for i, s := range r.buf.Data[:n] {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(s)))
	}
	r.pending = out

	switch {
	case err != nil:
		r.err = err
	case n == 0:
		r.err = io.EOF
	}
}
