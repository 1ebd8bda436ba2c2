// SPDX-License-Identifier: EPL-2.0

package wavstream_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ik5/wavstream"
	"github.com/ik5/wavstream/audio"
	"github.com/ik5/wavstream/formats/wav"
	"github.com/ik5/wavstream/sink"
)

// Example plays a WAV file into an in-memory sink.
func Example() {
	dir, _ := os.MkdirTemp("", "wavstream")
	defer os.RemoveAll(dir)

	samples := make([]int16, 2*4410) // 100ms of 44.1kHz stereo
	file := new(bytes.Buffer)
	wav.WriteWAV16(file, 44100, 2, samples)

	path := filepath.Join(dir, "silence.wav")
	os.WriteFile(path, file.Bytes(), 0o644)

	p, err := wavstream.NewPlayer(wavstream.DefaultOptions())
	if err != nil {
		fmt.Println(err)
		return
	}
	defer p.Close()

	var out bytes.Buffer
	res, err := p.Play(context.Background(), path, sink.NewWriter(&out))
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Printf("played %d bytes of %s\n", out.Len(), res.Params)
	// Output: played 17640 bytes of format=1 channels=2 rate=44100Hz bits=16
}

// Example_tone plays half a second of a 1 kHz tone.
func Example_tone() {
	p, err := wavstream.NewPlayer(wavstream.DefaultOptions())
	if err != nil {
		fmt.Println(err)
		return
	}
	defer p.Close()

	params := audio.NewParams(audio.FormatPCM, 2, 16000, 16)
	res, err := p.PlayTone(context.Background(), params, 1000, 0.25, 500*time.Millisecond, sink.Discard())
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println("bytes:", res.Drainer.Bytes)
	// Output: bytes: 32000
}
