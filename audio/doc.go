// SPDX-License-Identifier: EPL-2.0

// Package audio holds the types shared by the container parsers, the pump
// loops and the player.
//
// # PCM Framing
//
// Params describes how a PCM byte stream is laid out. BlockAlign and
// BytesPerSecond are always derived from the channel count, sample rate and
// bit depth, never trusted from a file:
//
//	p := audio.NewParams(audio.FormatPCM, 2, 44100, 16)
//	// p.BlockAlign == 4, p.BytesPerSecond == 176400
//
// A Header adds the position of the payload inside its source. DataLength
// may be Unbounded for sources that are read until end of stream.
//
// # Containers
//
// A Container turns a seekable file into a Header and the reader the
// payload should be pulled from. Containers are looked up by extension in a
// Registry:
//
//	reg := audio.NewRegistry()
//	reg.Register("wav", wav.Parser{})
//	reg.Register("aiff", aiff.Parser{})
//
//	c, err := reg.Lookup("/sdcard/track01.wav")
//
// # Test Tones
//
// Tone produces a sine wave as 16-bit little-endian PCM. It is useful for
// checking a sink without storage in the loop.
package audio
