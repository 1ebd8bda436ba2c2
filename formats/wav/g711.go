// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"fmt"

	"github.com/ik5/wavstream/audio"
	"github.com/zaf/g711"
)

// Expander turns 8-bit G.711 samples into 16-bit little-endian PCM, so
// companded WAV files can be played by a PCM sink.
type Expander struct {
	decode func(uint8) int16
}

// NewExpander returns the expander for an A-law or u-law format code.
func NewExpander(format uint16) (*Expander, error) {
	switch format {
	case audio.FormatALaw:
		return &Expander{decode: g711.DecodeAlawFrame}, nil
	case audio.FormatMULaw:
		return &Expander{decode: g711.DecodeUlawFrame}, nil
	}
	return nil, fmt.Errorf("%w: format code %d is not G.711", ErrUnsupportedFormat, format)
}

// Transform expands src into dst, reusing dst's storage when it is large
// enough. The result is twice as long as src.
func (e *Expander) Transform(dst, src []byte) []byte {
	if cap(dst) < 2*len(src) {
		dst = make([]byte, 2*len(src))
	}
	dst = dst[:2*len(src)]

	for i, b := range src {
		binary.LittleEndian.PutUint16(dst[2*i:], uint16(e.decode(b)))
	}
	return dst
}

// ExpandedParams is the framing of the expander's output.
func ExpandedParams(p audio.Params) audio.Params {
	return audio.NewParams(audio.FormatPCM, p.Channels, p.SampleRate, 16)
}
