// SPDX-License-Identifier: EPL-2.0

// Package portaudio plays PCM through the default PortAudio output device.
package portaudio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	pa "github.com/gordonklaus/portaudio"
	"github.com/ik5/wavstream/audio"
	"github.com/ik5/wavstream/sink"
	"github.com/ik5/wavstream/utils"
)

// DefaultFramesPerBuffer matches one 8 KiB quantum of 16-bit stereo.
const DefaultFramesPerBuffer = 2048

// Sink writes 16-bit PCM to a blocking PortAudio stream.
type Sink struct {
	stream   *pa.Stream
	out      []int16
	channels int
	logger   *log.Logger

	mtx    sync.Mutex
	closed bool
}

// New initializes PortAudio and opens the default output for p. Only
// 16-bit mono or stereo PCM is accepted.
func New(p audio.Params, framesPerBuffer int, logger *log.Logger) (*Sink, error) {
	if err := CheckParams(p); err != nil {
		return nil, err
	}
	if framesPerBuffer <= 0 {
		framesPerBuffer = DefaultFramesPerBuffer
	}
	if logger == nil {
		logger = log.Default()
	}

	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}

	s := &Sink{
		out:      make([]int16, framesPerBuffer*p.Channels),
		channels: p.Channels,
		logger:   logger,
	}

	stream, err := pa.OpenDefaultStream(0, p.Channels, float64(p.SampleRate), framesPerBuffer, &s.out)
	if err != nil {
		pa.Terminate()
		return nil, fmt.Errorf("portaudio open stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		pa.Terminate()
		return nil, fmt.Errorf("portaudio start stream: %w", err)
	}

	s.stream = stream
	logger.Info("portaudio output opened", "rate", p.SampleRate, "channels", p.Channels, "frames", framesPerBuffer)
	return s, nil
}

// CheckParams reports whether the sink can play p.
func CheckParams(p audio.Params) error {
	if p.AudioFormat != audio.FormatPCM || p.BitsPerSample != 16 {
		return fmt.Errorf("%w: %v", sink.ErrUnsupportedParams, p)
	}
	if p.Channels < 1 || p.Channels > 2 {
		return fmt.Errorf("%w: %d channels", sink.ErrUnsupportedParams, p.Channels)
	}
	return nil
}

// Write converts up to one device buffer of p and blocks until PortAudio
// has taken it. A trailing partial frame is dropped.
func (s *Sink) Write(p []byte, _ time.Duration) (int, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return 0, sink.ErrClosed
	}

	frameBytes := 2 * s.channels
	frames := min(len(p)/frameBytes, cap(s.out)/s.channels)
	if frames == 0 {
		return len(p), nil
	}

	s.out = s.out[:frames*s.channels]
	utils.Int16s(s.out, p)

	if err := s.stream.Write(); err != nil {
		if errors.Is(err, pa.OutputUnderflowed) {
			s.logger.Warn("portaudio output underflowed")
			return frames * frameBytes, nil
		}
		return 0, fmt.Errorf("portaudio write: %w", err)
	}

	return frames * frameBytes, nil
}

func (s *Sink) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.stream.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := s.stream.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := pa.Terminate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
