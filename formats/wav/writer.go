// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ik5/wavstream/audio"
	"github.com/ik5/wavstream/utils"
)

// HeaderSize is the size of the canonical RIFF + fmt + data header.
const HeaderSize = 44

// WriteHeader writes a canonical 44-byte header announcing dataSize bytes
// of payload framed by p.
func WriteHeader(w io.Writer, p audio.Params, dataSize uint32) error {
	header := make([]byte, HeaderSize)

	// RIFF header (12 bytes)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36+dataSize)
	copy(header[8:12], "WAVE")

	// fmt chunk (24 bytes)
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], minFmtChunkSize)
	binary.LittleEndian.PutUint16(header[20:22], p.AudioFormat)
	binary.LittleEndian.PutUint16(header[22:24], uint16(p.Channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(p.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(p.BytesPerSecond))
	binary.LittleEndian.PutUint16(header[32:34], uint16(p.BlockAlign))
	binary.LittleEndian.PutUint16(header[34:36], uint16(p.BitsPerSample))

	// data chunk header (8 bytes)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// WritePCM writes a complete WAV file holding pcm, which must already be
// framed by p.
func WritePCM(w io.Writer, p audio.Params, pcm []byte) error {
	if err := WriteHeader(w, p, uint32(len(pcm))); err != nil {
		return err
	}
	if _, err := w.Write(pcm); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// WriteWAV16 writes interleaved 16-bit samples as a PCM WAV file.
func WriteWAV16(w io.Writer, sampleRate, channels int, samples []int16) error {
	p := audio.NewParams(audio.FormatPCM, channels, sampleRate, 16)
	if err := WriteHeader(w, p, uint32(len(samples)*2)); err != nil {
		return err
	}

	// write in 8 KiB slices to bound the scratch buffer
	const chunkSamples = 4096
	buf := make([]byte, 2*min(len(samples), chunkSamples))

	for i := 0; i < len(samples); i += chunkSamples {
		chunk := samples[i:min(i+chunkSamples, len(samples))]
		n := utils.PutInt16s(buf, chunk)
		if _, err := w.Write(buf[:n]); err != nil {
			return fmt.Errorf("%w", err)
		}
	}

	return nil
}
