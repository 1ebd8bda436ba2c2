// SPDX-License-Identifier: EPL-2.0

package audio_test

import (
	"fmt"
	"io"

	"github.com/ik5/wavstream/audio"
)

// Example_params shows the derived framing fields.
func Example_params() {
	p := audio.NewParams(audio.FormatPCM, 2, 44100, 16)

	fmt.Printf("Block align: %d bytes\n", p.BlockAlign)
	fmt.Printf("Bytes per second: %d\n", p.BytesPerSecond)
	fmt.Printf("8 KiB plays for: %v\n", p.Duration(8192).Round(1e5))
	// Output:
	// Block align: 4 bytes
	// Bytes per second: 176400
	// 8 KiB plays for: 46.4ms
}

// Example_tone renders one second of a 440 Hz test tone.
func Example_tone() {
	p := audio.NewParams(audio.FormatPCM, 2, 44100, 16)

	tone, err := audio.NewTone(p, 440, 0.25, int64(p.BytesPerSecond))
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	n, _ := io.Copy(io.Discard, tone)
	fmt.Printf("Tone bytes: %d\n", n)
	// Output:
	// Tone bytes: 176400
}
