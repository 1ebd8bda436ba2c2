// SPDX-License-Identifier: EPL-2.0

// Package wav reads and writes RIFF/WAVE headers for streaming playback.
//
// ParseHeader walks the chunk list of a seekable file until it reaches the
// data chunk and returns an audio.Header: the PCM framing from the fmt
// chunk plus the absolute offset and size of the payload. The payload
// itself is never read, so the caller can stream it straight from the file:
//
//	f, _ := os.Open("song.wav")
//	hdr, err := wav.ParseHeader(f)
//	if err != nil {
//	    // errors.Is(err, wav.ErrMissingRequiredChunk), ...
//	}
//	f.Seek(hdr.DataOffset, io.SeekStart)
//
// Chunks other than fmt and data are skipped by their declared size, with a
// warning on the Parser's logger. Byte rate and block align are recomputed
// from channels, sample rate and bit depth rather than trusted.
//
// # G.711
//
// A-law and u-law files (format codes 6 and 7) are accepted by Parser.Open.
// NewExpander returns a transform that widens their 8-bit samples into
// 16-bit PCM on the way into the ring buffer.
//
// # Writing
//
// WriteHeader, WritePCM and WriteWAV16 produce canonical 44-byte header
// files, which is what the tone renderer and the tests use.
//
// # Diagnostics
//
// ListChunks enumerates every top-level chunk with github.com/youpy/go-riff,
// including those after the data chunk.
package wav
