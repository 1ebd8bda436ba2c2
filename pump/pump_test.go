// SPDX-License-Identifier: EPL-2.0

package pump

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ik5/wavstream/audio"
	"github.com/ik5/wavstream/internal/audiotest"
	"github.com/ik5/wavstream/ringbuf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRing(t *testing.T, size int) *ringbuf.RingBuffer {
	t.Helper()

	rb, err := ringbuf.New(size)
	require.NoError(t, err)
	t.Cleanup(func() { rb.Close() })
	return rb
}

func header(offset, length int64) audio.Header {
	return audio.Header{
		Params:     audio.NewParams(audio.FormatPCM, 2, 44100, 16),
		DataOffset: offset,
		DataLength: length,
	}
}

// runBoth runs f and d on their own goroutines and waits for both.
func runBoth(ctx context.Context, f *Feeder, d *Drainer) (feedErr, drainErr error) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		feedErr = f.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		drainErr = d.Run(ctx)
	}()
	wg.Wait()
	return feedErr, drainErr
}

// seekRecorder records the size of every read.
type seekRecorder struct {
	*bytes.Reader

	mtx   sync.Mutex
	reads []int
}

func (r *seekRecorder) Read(p []byte) (int, error) {
	r.mtx.Lock()
	r.reads = append(r.reads, len(p))
	r.mtx.Unlock()
	return r.Reader.Read(p)
}

func TestScenario_StreamsExactBytes(t *testing.T) {
	t.Parallel()

	const size = 200 * 1024

	rb := newRing(t, 64*1024)
	src := audiotest.NewPatternReader(size)
	out := audiotest.NewMockSink()

	f := NewFeeder(rb, src, header(0, size), WithFeederQuantum(8*1024))
	d := NewDrainer(rb, out, WithDrainerQuantum(8*1024), WithLockOSThread())

	feedErr, drainErr := runBoth(context.Background(), f, d)
	require.NoError(t, feedErr)
	require.NoError(t, drainErr)

	assert.Equal(t, size, out.Len())
	assert.True(t, bytes.Equal(audiotest.Pattern(0, size), out.Bytes()), "drained bytes differ from the source pattern")

	assert.Equal(t, StateFinished, f.State())
	assert.EqualValues(t, size, f.Stats().Bytes)
	assert.EqualValues(t, size, d.Stats().Bytes)
	assert.True(t, rb.IsDoneWriting())
}

func TestScenario_AbortMidStream(t *testing.T) {
	t.Parallel()

	rb := newRing(t, 64*1024)
	src := audiotest.NewPatternReader(64 << 20)
	out := audiotest.NewMockSink()
	out.MaxChunk = 1024
	out.Delay = 200 * time.Microsecond

	f := NewFeeder(rb, src, header(0, audio.Unbounded))
	d := NewDrainer(rb, out, WithPrecharge(0, 0, 0))

	done := make(chan struct{})
	var feedErr, drainErr error
	go func() {
		defer close(done)
		feedErr, drainErr = runBoth(context.Background(), f, d)
	}()

	require.Eventually(t, func() bool { return out.Len() >= 50*1024 }, 5*time.Second, time.Millisecond)
	rb.Abort()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loops did not exit after abort")
	}

	assert.ErrorIs(t, feedErr, ringbuf.ErrAborted)
	assert.ErrorIs(t, drainErr, ringbuf.ErrAborted)
	assert.Equal(t, StateFailed, f.State())

	drained := out.Len()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, drained, out.Len(), "sink received bytes after both loops exited")

	// no byte was reordered before the abort
	assert.True(t, bytes.Equal(audiotest.Pattern(0, drained), out.Bytes()))
}

func TestScenario_ContextCancel(t *testing.T) {
	t.Parallel()

	rb := newRing(t, 16*1024)
	src := audiotest.NewPatternReader(64 << 20)
	out := audiotest.NewMockSink()
	out.Delay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	f := NewFeeder(rb, src, header(0, audio.Unbounded))
	d := NewDrainer(rb, out)

	done := make(chan struct{})
	var feedErr, drainErr error
	go func() {
		defer close(done)
		feedErr, drainErr = runBoth(ctx, f, d)
	}()

	require.Eventually(t, func() bool { return out.Len() > 0 }, 5*time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loops did not exit after cancel")
	}

	assert.ErrorIs(t, feedErr, ringbuf.ErrAborted)
	assert.ErrorIs(t, feedErr, context.Canceled)
	assert.ErrorIs(t, drainErr, ringbuf.ErrAborted)
}

func TestFeeder_FirstSliceAligned(t *testing.T) {
	t.Parallel()

	const offset, length, quantum = 44, 20000, 4096

	file := append(make([]byte, offset), audiotest.Pattern(0, length)...)
	src := &seekRecorder{Reader: bytes.NewReader(file)}
	rb := newRing(t, 64*1024)

	f := NewFeeder(rb, src, header(offset, length), WithFeederQuantum(quantum))
	require.NoError(t, f.Run(context.Background()))

	want := []int{quantum - offset, quantum, quantum, quantum, length - (quantum - offset) - 3*quantum}
	assert.Equal(t, want, src.reads)

	got := make([]byte, length)
	n, err := rb.Read(got, ringbuf.NoWait)
	require.NoError(t, err)
	assert.Equal(t, length, n)
	assert.Equal(t, audiotest.Pattern(0, length), got)
}

func TestFeeder_StopsAtDeclaredLength(t *testing.T) {
	t.Parallel()

	// trailing chunk after the payload must not reach the ring
	file := append(audiotest.Pattern(0, 1000), []byte("LIST\x04\x00\x00\x00abcd")...)
	rb := newRing(t, 4096)

	f := NewFeeder(rb, bytes.NewReader(file), header(0, 1000))
	require.NoError(t, f.Run(context.Background()))

	assert.Equal(t, 1000, rb.BytesFilled())
	assert.True(t, rb.IsDoneWriting())
}

func TestFeeder_ShortFileIsNotAnError(t *testing.T) {
	t.Parallel()

	rb := newRing(t, 4096)
	f := NewFeeder(rb, bytes.NewReader(audiotest.Pattern(0, 300)), header(0, 5000))

	require.NoError(t, f.Run(context.Background()))
	assert.Equal(t, StateFinished, f.State())
	assert.Equal(t, 300, rb.BytesFilled())
	assert.True(t, rb.IsDoneWriting())
}

func TestFeeder_ReadErrorStillMarksDone(t *testing.T) {
	t.Parallel()

	rb := newRing(t, 64*1024)
	src := &audiotest.FailingReader{R: audiotest.NewPatternReader(1 << 20), After: 10000}

	f := NewFeeder(rb, src, header(0, audio.Unbounded), WithFeederQuantum(4096))
	err := f.Run(context.Background())

	assert.ErrorIs(t, err, ErrFeederFailed)
	assert.ErrorIs(t, err, audiotest.ErrInjected)
	assert.Equal(t, StateFailed, f.State())
	assert.True(t, rb.IsDoneWriting(), "a failed feeder must still release the reader")
	assert.Equal(t, 8192, rb.BytesFilled())
}

func TestFeeder_SeekErrorStillMarksDone(t *testing.T) {
	t.Parallel()

	rb := newRing(t, 4096)
	f := NewFeeder(rb, bytes.NewReader(nil), header(-1, 10))

	err := f.Run(context.Background())
	assert.ErrorIs(t, err, ErrFeederFailed)
	assert.True(t, rb.IsDoneWriting())
}

func TestFeeder_RunTwice(t *testing.T) {
	t.Parallel()

	rb := newRing(t, 4096)
	f := NewFeeder(rb, bytes.NewReader(nil), header(0, 0))

	require.NoError(t, f.Run(context.Background()))
	assert.ErrorIs(t, f.Run(context.Background()), ErrAlreadyStarted)
}

type doubler struct{}

func (doubler) Transform(dst, src []byte) []byte {
	dst = dst[:0]
	for _, b := range src {
		dst = append(dst, b, b)
	}
	return dst
}

func TestFeeder_Transformer(t *testing.T) {
	t.Parallel()

	rb := newRing(t, 4096)
	f := NewFeeder(rb, bytes.NewReader([]byte{1, 2, 3}), header(0, 3), WithTransformer(doubler{}))
	require.NoError(t, f.Run(context.Background()))

	got := make([]byte, 16)
	n, err := rb.Read(got, ringbuf.NoWait)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 1, 2, 2, 3, 3}, got[:n])
}

func TestFeeder_SlowReadsCounted(t *testing.T) {
	t.Parallel()

	rb := newRing(t, 64*1024)
	src := &audiotest.SlowReader{R: audiotest.NewPatternReader(3 * 1024), Delay: 5 * time.Millisecond}

	var logs bytes.Buffer
	f := NewFeeder(rb, src, header(0, 3*1024),
		WithFeederQuantum(1024),
		WithSlowThresholds(time.Millisecond, time.Hour),
		WithFeederLogger(log.New(&logs)),
	)
	require.NoError(t, f.Run(context.Background()))

	assert.Contains(t, logs.String(), "slow file read")
	assert.Contains(t, logs.String(), "feeder")

	assert.GreaterOrEqual(t, f.Stats().SlowReads, int64(3))
	assert.Zero(t, f.Stats().SlowWrites)
}

func TestDrainer_RetriesPartialWrites(t *testing.T) {
	t.Parallel()

	rb := newRing(t, 4096)
	_, err := rb.Write(audiotest.Pattern(0, 3000), ringbuf.NoWait)
	require.NoError(t, err)
	rb.DoneWriting()

	out := audiotest.NewMockSink()
	out.MaxChunk = 7

	d := NewDrainer(rb, out, WithDrainerQuantum(1024))
	require.NoError(t, d.Run(context.Background()))

	assert.Equal(t, audiotest.Pattern(0, 3000), out.Bytes())
	assert.Positive(t, d.Stats().PartialWrites)
	assert.EqualValues(t, 3, d.Stats().Slices)
	// 3000 = 1024 + 1024 + 952, the last one short
	assert.EqualValues(t, 1, d.Stats().ShortReads)
}

func TestDrainer_SinkStalled(t *testing.T) {
	t.Parallel()

	rb := newRing(t, 4096)
	_, err := rb.Write(audiotest.Pattern(0, 100), ringbuf.NoWait)
	require.NoError(t, err)
	rb.DoneWriting()

	out := audiotest.NewMockSink()
	out.StallAfter = 0

	d := NewDrainer(rb, out, WithMaxSinkStalls(3), WithSinkTimeout(time.Millisecond))
	err = d.Run(context.Background())

	assert.ErrorIs(t, err, ErrSinkStalled)
	assert.EqualValues(t, 3, d.Stats().SinkStalls)
}

func TestDrainer_SinkError(t *testing.T) {
	t.Parallel()

	rb := newRing(t, 4096)
	_, err := rb.Write(audiotest.Pattern(0, 100), ringbuf.NoWait)
	require.NoError(t, err)
	rb.DoneWriting()

	out := audiotest.NewMockSink()
	out.FailAfter = 0

	err = NewDrainer(rb, out).Run(context.Background())
	assert.ErrorIs(t, err, audiotest.ErrInjected)
}

func TestDrainer_ReadTimeoutIsFatal(t *testing.T) {
	t.Parallel()

	rb := newRing(t, 4096)
	d := NewDrainer(rb, audiotest.NewMockSink(), WithPrecharge(0, 0, 0))

	errc := make(chan error, 1)
	go func() { errc <- d.Run(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	rb.UnblockReader()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ringbuf.ErrTimedOut)
	case <-time.After(time.Second):
		t.Fatal("drainer kept waiting after UnblockReader")
	}
}

func TestDrainer_PrechargeEndsWhenWriterDone(t *testing.T) {
	t.Parallel()

	rb := newRing(t, 64*1024)
	_, err := rb.Write(audiotest.Pattern(0, 500), ringbuf.NoWait)
	require.NoError(t, err)
	rb.DoneWriting()

	out := audiotest.NewMockSink()
	d := NewDrainer(rb, out, WithPrecharge(1024, time.Millisecond, time.Minute))

	start := time.Now()
	require.NoError(t, d.Run(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 500, out.Len())
}

func TestDrainer_PrechargeWaitsForFill(t *testing.T) {
	t.Parallel()

	rb := newRing(t, 8192)
	out := audiotest.NewMockSink()
	d := NewDrainer(rb, out, WithDrainerQuantum(1024), WithPrecharge(1024, time.Millisecond, time.Minute))

	errc := make(chan error, 1)
	go func() { errc <- d.Run(context.Background()) }()

	_, err := rb.Write(audiotest.Pattern(0, 4096), ringbuf.Forever)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, out.Len(), "drainer started before precharge completed")

	_, err = rb.Write(audiotest.Pattern(4096, 4096), ringbuf.Forever)
	require.NoError(t, err)
	rb.DoneWriting()

	require.NoError(t, <-errc)
	assert.Equal(t, audiotest.Pattern(0, 8192), out.Bytes())
}

func TestDrainer_StarvationCounted(t *testing.T) {
	t.Parallel()

	rb := newRing(t, 4096)
	out := audiotest.NewMockSink()
	d := NewDrainer(rb, out, WithPrecharge(0, 0, 0), WithStarvationThreshold(5*time.Millisecond))

	errc := make(chan error, 1)
	go func() { errc <- d.Run(context.Background()) }()

	for i := range 3 {
		time.Sleep(20 * time.Millisecond)
		_, err := rb.Write(audiotest.Pattern(i*64, 64), ringbuf.Forever)
		require.NoError(t, err)
	}
	rb.DoneWriting()

	require.NoError(t, <-errc)
	assert.GreaterOrEqual(t, d.Stats().Starvations, int64(2))
	assert.Equal(t, audiotest.Pattern(0, 192), out.Bytes())
}

func TestFeederDrainer_SlowSource(t *testing.T) {
	t.Parallel()

	const size = 32 * 1024

	rb := newRing(t, 8*1024)
	src := &audiotest.SlowReader{R: audiotest.NewPatternReader(size), Delay: time.Millisecond}
	out := audiotest.NewMockSink()

	f := NewFeeder(rb, src, header(0, size), WithFeederQuantum(1024))
	d := NewDrainer(rb, out, WithDrainerQuantum(1024))

	feedErr, drainErr := runBoth(context.Background(), f, d)
	require.NoError(t, feedErr)
	require.NoError(t, drainErr)
	assert.True(t, bytes.Equal(audiotest.Pattern(0, size), out.Bytes()))
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "streaming", StateStreaming.String())
	assert.Equal(t, "state(9)", State(9).String())
}

// repeated returns the first n bytes of payload played back to back.
func repeated(payload []byte, n int) []byte {
	return bytes.Repeat(payload, n/len(payload)+1)[:n]
}

func TestFeeder_LoopReplaysUntilAbort(t *testing.T) {
	t.Parallel()

	const offset, length = 44, 1000

	payload := audiotest.Pattern(5, length)
	file := append(make([]byte, offset), payload...)
	file = append(file, []byte("LIST\x04\x00\x00\x00abcd")...)

	rb := newRing(t, 8*1024)
	out := audiotest.NewMockSink()
	out.MaxChunk = 1024
	out.Delay = 100 * time.Microsecond

	f := NewFeeder(rb, bytes.NewReader(file), header(offset, length), WithFeederQuantum(256), WithLoop())
	d := NewDrainer(rb, out, WithDrainerQuantum(256), WithPrecharge(0, 0, 0))

	done := make(chan struct{})
	var feedErr, drainErr error
	go func() {
		defer close(done)
		feedErr, drainErr = runBoth(context.Background(), f, d)
	}()

	require.Eventually(t, func() bool { return out.Len() >= 3*length+500 }, 5*time.Second, time.Millisecond)
	assert.False(t, rb.IsDoneWriting(), "a looping feeder never marks the ring done")
	rb.Abort()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loops did not exit after abort")
	}

	assert.ErrorIs(t, feedErr, ringbuf.ErrAborted)
	assert.ErrorIs(t, drainErr, ringbuf.ErrAborted)
	assert.GreaterOrEqual(t, f.Stats().Passes, int64(3))

	got := out.Bytes()
	assert.True(t, bytes.Equal(repeated(payload, len(got)), got), "passes are not back to back copies of the payload")
}

func TestFeeder_LoopNeedsSeeker(t *testing.T) {
	t.Parallel()

	rb := newRing(t, 4096)
	f := NewFeeder(rb, audiotest.NewPatternReader(100), header(0, 100), WithLoop())

	err := f.Run(context.Background())
	assert.ErrorIs(t, err, ErrNotSeekable)
	assert.ErrorIs(t, err, ErrFeederFailed)
	assert.True(t, rb.IsDoneWriting())
	assert.Zero(t, rb.BytesFilled())
}

func TestFeeder_LoopEmptyPayloadEnds(t *testing.T) {
	t.Parallel()

	rb := newRing(t, 4096)
	f := NewFeeder(rb, bytes.NewReader(make([]byte, 44)), header(44, 0), WithLoop())

	require.NoError(t, f.Run(context.Background()))
	assert.Equal(t, StateFinished, f.State())
	assert.Zero(t, f.Stats().Passes)
}

func TestFeeder_PassesCounted(t *testing.T) {
	t.Parallel()

	rb := newRing(t, 4096)
	f := NewFeeder(rb, bytes.NewReader(audiotest.Pattern(0, 300)), header(0, 300))

	require.NoError(t, f.Run(context.Background()))
	assert.EqualValues(t, 1, f.Stats().Passes)
}
