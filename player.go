// SPDX-License-Identifier: EPL-2.0

package wavstream

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ik5/wavstream/audio"
	"github.com/ik5/wavstream/formats/aiff"
	"github.com/ik5/wavstream/formats/wav"
	"github.com/ik5/wavstream/pump"
	"github.com/ik5/wavstream/ringbuf"
	"github.com/ik5/wavstream/sink"
	"golang.org/x/sync/errgroup"
)

// Player owns one ring buffer and plays one stream at a time through it.
type Player struct {
	opts     Options
	logger   *log.Logger
	registry *audio.Registry
	rb       *ringbuf.RingBuffer

	mtx     sync.Mutex
	playing bool
	closed  bool

	stopped atomic.Bool
}

// Result summarises one playback.
type Result struct {
	Path    string
	Header  audio.Header // as parsed from the file
	Params  audio.Params // as delivered to the sink
	Feeder  pump.Stats
	Drainer pump.Stats
	Elapsed time.Duration
}

// NewPlayer allocates the ring buffer and registers the WAV and AIFF
// containers.
func NewPlayer(opts Options) (*Player, error) {
	logger := opts.logger()

	rb, err := ringbuf.New(opts.RingSize, ringbuf.WithPlacement(opts.Placement))
	if err != nil {
		return nil, fmt.Errorf("create ring buffer: %w", err)
	}

	registry := audio.NewRegistry()
	wavParser := wav.Parser{Logger: logger.WithPrefix("wav")}
	registry.Register("wav", wavParser)
	registry.Register("wave", wavParser)
	aiffParser := aiff.Parser{Logger: logger.WithPrefix("aiff")}
	registry.Register("aiff", aiffParser)
	registry.Register("aif", aiffParser)

	return &Player{
		opts:     opts,
		logger:   logger.WithPrefix("player"),
		registry: registry,
		rb:       rb,
	}, nil
}

// Registry returns the container registry used by Open.
func (p *Player) Registry() *audio.Registry { return p.registry }

// Stream is one open file ready to be played.
type Stream struct {
	Path   string
	Header audio.Header

	file      *os.File
	src       io.Reader
	transform pump.Transformer
	params    audio.Params
	feeder    atomic.Pointer[pump.Feeder]
}

// Open parses the header of path with the container registered for its
// extension. The caller must Close the stream.
func (p *Player) Open(path string) (*Stream, error) {
	container, err := p.registry.Lookup(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	hdr, src, err := container.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	st := &Stream{
		Path:   path,
		Header: hdr,
		file:   f,
		src:    src,
		params: hdr.Params,
	}

	switch hdr.AudioFormat {
	case audio.FormatALaw, audio.FormatMULaw:
		exp, err := wav.NewExpander(hdr.AudioFormat)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		st.transform = exp
		st.params = wav.ExpandedParams(hdr.Params)
	}

	return st, nil
}

// Params is the framing of the bytes the sink will receive.
func (s *Stream) Params() audio.Params { return s.params }

// Finished reports whether the feeder has stopped, successfully or not.
func (s *Stream) Finished() bool {
	f := s.feeder.Load()
	if f == nil {
		return false
	}
	state := f.State()
	return state == pump.StateFinished || state == pump.StateFailed
}

// Close closes the file. It must only be called once playback returned.
func (s *Stream) Close() error {
	return s.file.Close()
}

// Play opens path and plays it into out, blocking until the drainer has
// finished.
func (p *Player) Play(ctx context.Context, path string, out sink.Sink) (Result, error) {
	p.stopped.Store(false)

	st, err := p.Open(path)
	if err != nil {
		return Result{Path: path}, err
	}
	defer st.Close()

	return p.PlayStream(ctx, st, out)
}

// PlayStream plays an already opened stream.
func (p *Player) PlayStream(ctx context.Context, st *Stream, out sink.Sink) (Result, error) {
	return p.playStream(ctx, st, out)
}

// Loop plays path over and over, with no gap between passes, until Stop is
// called or ctx is done. The error then wraps ringbuf.ErrAborted, like an
// interrupted Play; Result.Feeder.Passes counts the completed passes.
func (p *Player) Loop(ctx context.Context, path string, out sink.Sink) (Result, error) {
	p.stopped.Store(false)

	st, err := p.Open(path)
	if err != nil {
		return Result{Path: path}, err
	}
	defer st.Close()

	return p.LoopStream(ctx, st, out)
}

// LoopStream loops an already opened stream. Only containers that read the
// payload straight from the file, such as WAV, can be looped.
func (p *Player) LoopStream(ctx context.Context, st *Stream, out sink.Sink) (Result, error) {
	if _, ok := st.src.(io.Seeker); !ok {
		return Result{Path: st.Path, Header: st.Header, Params: st.params}, fmt.Errorf("%s: %w", st.Path, pump.ErrNotSeekable)
	}
	return p.playStream(ctx, st, out, pump.WithLoop())
}

func (p *Player) playStream(ctx context.Context, st *Stream, out sink.Sink, fopts ...pump.FeederOption) (Result, error) {
	res := Result{Path: st.Path, Header: st.Header, Params: st.params}

	if st.transform != nil {
		fopts = append(fopts, pump.WithTransformer(st.transform))
	}

	return p.stream(ctx, res, st.src, &st.feeder, out, fopts...)
}

// Scan lists the files in dir that a registered container can open, in
// name order. Subdirectories are not visited.
func (p *Player) Scan(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if _, err := p.registry.Lookup(e.Name()); err != nil {
			p.logger.Debug("not playable", "name", e.Name())
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}

	p.logger.Info("scanned", "dir", dir, "playable", len(paths))
	return paths, nil
}

// PlayAll plays paths in order. A file that cannot be opened or parsed is
// logged and skipped. Playback stops at the first error raised while
// streaming, including Stop.
func (p *Player) PlayAll(ctx context.Context, paths []string, out sink.Sink) ([]Result, error) {
	p.stopped.Store(false)

	results := make([]Result, 0, len(paths))
	for _, path := range paths {
		if p.stopped.Load() {
			return results, ringbuf.ErrAborted
		}
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("%w: %w", ringbuf.ErrAborted, err)
		}

		st, err := p.Open(path)
		if err != nil {
			p.logger.Warn("skipping file", "path", path, "err", err)
			continue
		}

		res, err := p.PlayStream(ctx, st, out)
		st.Close()
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}

	return results, nil
}

// PlayTone plays a sine wave of the given frequency, amplitude (0..1) and
// duration. params must describe 16-bit PCM.
func (p *Player) PlayTone(ctx context.Context, params audio.Params, frequency, amplitude float64, d time.Duration, out sink.Sink) (Result, error) {
	p.stopped.Store(false)

	length := int64(d.Seconds() * float64(params.BytesPerSecond))
	tone, err := audio.NewTone(params, frequency, amplitude, length)
	if err != nil {
		return Result{}, err
	}

	hdr := tone.Header()
	res := Result{Path: fmt.Sprintf("tone:%gHz", frequency), Header: hdr, Params: params}

	var feeder atomic.Pointer[pump.Feeder]
	return p.stream(ctx, res, tone, &feeder, out)
}

// Stop aborts the current playback, and a PlayAll in progress. It is safe
// to call from any goroutine, at any time.
func (p *Player) Stop() {
	p.stopped.Store(true)
	p.rb.Abort()
	p.logger.Debug("stop requested")
}

// Close releases the ring buffer. Playback must have returned.
func (p *Player) Close() error {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.rb.Close()
}

func (p *Player) stream(ctx context.Context, res Result, src io.Reader, slot *atomic.Pointer[pump.Feeder], out sink.Sink, fopts ...pump.FeederOption) (Result, error) {
	if err := p.acquire(); err != nil {
		return res, err
	}
	defer p.release()

	p.prepareRing()
	if p.stopped.Load() {
		return res, ringbuf.ErrAborted
	}

	feeder := pump.NewFeeder(p.rb, src, res.Header, append([]pump.FeederOption{
		pump.WithFeederQuantum(p.opts.Quantum),
		pump.WithFeederLogger(p.logger),
		pump.WithSlowThresholds(p.opts.SlowRead, p.opts.SlowWrite),
	}, fopts...)...)
	slot.Store(feeder)

	dopts := []pump.DrainerOption{
		pump.WithDrainerQuantum(p.opts.Quantum),
		pump.WithDrainerLogger(p.logger),
		pump.WithPrecharge(p.opts.PrechargeFree, p.opts.PrechargePoll, p.opts.PrechargeTimeout),
		pump.WithSinkTimeout(p.opts.SinkTimeout),
		pump.WithMaxSinkStalls(p.opts.MaxSinkStalls),
		pump.WithStarvationThreshold(res.Params.Duration(int64(p.opts.Quantum))),
	}
	if p.opts.LockOSThread {
		dopts = append(dopts, pump.WithLockOSThread())
	}
	drainer := pump.NewDrainer(p.rb, out, dopts...)

	p.logger.Info("playing", "path", res.Path, "params", res.Params.String(), "bytes", res.Header.DataLength)

	start := time.Now()
	var feedErr, drainErr error
	var g errgroup.Group
	g.Go(func() error {
		feedErr = feeder.Run(ctx)
		return feedErr
	})
	g.Go(func() error {
		drainErr = drainer.Run(ctx)
		if drainErr != nil {
			// the feeder may be blocked on a ring nobody reads any more
			p.rb.Abort()
		}
		return drainErr
	})
	_ = g.Wait()

	res.Elapsed = time.Since(start)
	res.Feeder = feeder.Stats()
	res.Drainer = drainer.Stats()

	p.logger.Info("played", "path", res.Path, "bytes", res.Drainer.Bytes, "passes", res.Feeder.Passes, "elapsed", res.Elapsed, "starvations", res.Drainer.Starvations)

	switch {
	case drainErr != nil:
		return res, drainErr
	case feedErr != nil:
		return res, feedErr
	}
	return res, nil
}

// prepareRing gets the ring ready for a new stream. After a clean drain it
// only needs the done flag cleared; anything else gets a full reset.
func (p *Player) prepareRing() {
	if !p.rb.IsAborted() && p.rb.BytesFilled() == 0 {
		p.rb.ResetDoneWriting()
		return
	}
	p.rb.Reset()
}

func (p *Player) acquire() error {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	switch {
	case p.closed:
		return ErrPlayerClosed
	case p.playing:
		return ErrBusy
	}
	p.playing = true
	return nil
}

func (p *Player) release() {
	p.mtx.Lock()
	p.playing = false
	p.mtx.Unlock()
}
