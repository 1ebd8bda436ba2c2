// SPDX-License-Identifier: EPL-2.0

// Package oto plays PCM through github.com/ebitengine/oto/v3.
//
// oto pulls samples from an io.Reader on its own goroutine, so the sink
// bridges the push-style drainer to it with an io.Pipe. oto allows one
// context per process, so every Sink shares it.
package oto

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
	"github.com/ik5/wavstream/audio"
	"github.com/ik5/wavstream/sink"
)

// drainPoll is how often Close checks whether the tail has been played.
const drainPoll = 10 * time.Millisecond

// shared is the process-wide oto context, created by the first New.
var shared struct {
	mtx      sync.Mutex
	ctx      *oto.Context
	rate     int
	channels int
}

func sharedContext(p audio.Params) (*oto.Context, error) {
	shared.mtx.Lock()
	defer shared.mtx.Unlock()

	if shared.ctx != nil {
		if shared.rate != p.SampleRate || shared.channels != p.Channels {
			return nil, fmt.Errorf("%w: oto already opened at %dHz, %d channels",
				sink.ErrUnsupportedParams, shared.rate, shared.channels)
		}
		return shared.ctx, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   p.SampleRate,
		ChannelCount: p.Channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("oto context: %w", err)
	}
	<-ready

	shared.ctx, shared.rate, shared.channels = ctx, p.SampleRate, p.Channels
	return ctx, nil
}

// Sink feeds an oto player through a pipe.
type Sink struct {
	player *oto.Player
	pw     *io.PipeWriter
	logger *log.Logger

	mtx    sync.Mutex
	closed bool
}

// New starts a player on the process-wide oto context, creating it for p
// on first use. Later calls must use the same rate and channel count. Only 16-bit mono
// or stereo PCM is accepted.
func New(p audio.Params, logger *log.Logger) (*Sink, error) {
	if p.AudioFormat != audio.FormatPCM || p.BitsPerSample != 16 || p.Channels < 1 || p.Channels > 2 {
		return nil, fmt.Errorf("%w: %v", sink.ErrUnsupportedParams, p)
	}
	if logger == nil {
		logger = log.Default()
	}

	ctx, err := sharedContext(p)
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	player := ctx.NewPlayer(pr)
	player.Play()

	logger.Info("oto output opened", "rate", p.SampleRate, "channels", p.Channels)
	return &Sink{player: player, pw: pw, logger: logger}, nil
}

// Write blocks until the player has pulled all of p. The timeout is not
// enforced.
func (s *Sink) Write(p []byte, _ time.Duration) (int, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return 0, sink.ErrClosed
	}

	n, err := s.pw.Write(p)
	if err != nil {
		return n, fmt.Errorf("oto write: %w", err)
	}
	return n, nil
}

// Close ends the stream and waits for the player to finish what it holds.
func (s *Sink) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.pw.Close()
	for s.player.IsPlaying() {
		time.Sleep(drainPoll)
	}

	if err := s.player.Close(); err != nil {
		return fmt.Errorf("oto close: %w", err)
	}
	s.logger.Debug("oto output closed")
	return nil
}
