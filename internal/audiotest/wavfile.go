// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
)

// Chunk is a raw RIFF chunk. Bodies are written as is, without a pad byte.
type Chunk struct {
	ID   string
	Body []byte
}

// FmtChunk builds a 16-byte fmt chunk.
func FmtChunk(format uint16, channels, sampleRate, bitsPerSample int) Chunk {
	blockAlign := channels * bitsPerSample / 8

	body := make([]byte, 16)
	binary.LittleEndian.PutUint16(body[0:2], format)
	binary.LittleEndian.PutUint16(body[2:4], uint16(channels))
	binary.LittleEndian.PutUint32(body[4:8], uint32(sampleRate))
	binary.LittleEndian.PutUint32(body[8:12], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(body[12:14], uint16(blockAlign))
	binary.LittleEndian.PutUint16(body[14:16], uint16(bitsPerSample))
	return Chunk{ID: "fmt ", Body: body}
}

// DataChunk wraps a PCM payload.
func DataChunk(pcm []byte) Chunk {
	return Chunk{ID: "data", Body: pcm}
}

// BuildRIFF assembles a RIFF file of the given form type.
func BuildRIFF(form string, chunks ...Chunk) []byte {
	var body bytes.Buffer
	body.WriteString(form)
	for _, c := range chunks {
		body.WriteString(c.ID)
		_ = binary.Write(&body, binary.LittleEndian, uint32(len(c.Body)))
		body.Write(c.Body)
	}

	var out bytes.Buffer
	out.WriteString("RIFF")
	_ = binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

// BuildWAV assembles a WAVE file from chunks in the order given.
func BuildWAV(chunks ...Chunk) []byte {
	return BuildRIFF("WAVE", chunks...)
}

// WriteFile writes data to a new file under dir and returns its path.
func WriteFile(dir, name string, data []byte) (string, error) {
	path := filepath.Join(dir, name)
	return path, os.WriteFile(path, data, 0o644)
}

// EncodeWAVFile writes samples through the go-audio encoder, giving tests a
// file produced by an independent implementation.
func EncodeWAVFile(path string, sampleRate, bitDepth, channels int, samples []int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := gowav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           samples,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}
