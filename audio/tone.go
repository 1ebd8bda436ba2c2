// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/ik5/wavstream/utils"
)

// Tone is an io.Reader producing a 16-bit sine wave. One period is rendered
// up front and repeated, so the output has no clicks at period boundaries.
type Tone struct {
	params    Params
	period    []byte
	pos       int
	remaining int64
}

// NewTone renders a tone of frequency Hz at amplitude (0..1) and length
// bytes, rounded down to whole frames. params must be 16-bit PCM. The
// frequency actually played is SampleRate / round(SampleRate / frequency).
func NewTone(params Params, frequency, amplitude float64, length int64) (*Tone, error) {
	if params.BitsPerSample != 16 {
		return nil, fmt.Errorf("%w: tone needs 16-bit PCM", ErrInvalidTone)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if frequency <= 0 || amplitude < 0 || amplitude > 1 {
		return nil, fmt.Errorf("%w: frequency %v amplitude %v", ErrInvalidTone, frequency, amplitude)
	}

	periodFrames := int(float64(params.SampleRate)/frequency + 0.5)
	if periodFrames <= 0 {
		return nil, fmt.Errorf("%w: frequency %v above sample rate", ErrInvalidTone, frequency)
	}

	period := make([]byte, periodFrames*params.BlockAlign)
	step := 2 * math.Pi / float64(periodFrames)
	for i := range periodFrames {
		s := utils.Float32ToInt16(float32(amplitude * math.Sin(step*float64(i))))
		for ch := range params.Channels {
			off := i*params.BlockAlign + ch*2
			binary.LittleEndian.PutUint16(period[off:off+2], uint16(s))
		}
	}

	length -= length % int64(params.BlockAlign)

	return &Tone{
		params:    params,
		period:    period,
		remaining: max(length, 0),
	}, nil
}

// Header describes the tone as a stream starting at offset 0.
func (t *Tone) Header() Header {
	return Header{Params: t.params, DataLength: t.remaining}
}

func (t *Tone) Read(p []byte) (int, error) {
	if t.remaining == 0 {
		return 0, io.EOF
	}

	want := len(p)
	if int64(want) > t.remaining {
		want = int(t.remaining)
	}

	n := 0
	for n < want {
		c := copy(p[n:want], t.period[t.pos:])
		n += c
		t.pos = (t.pos + c) % len(t.period)
	}

	t.remaining -= int64(n)
	return n, nil
}
