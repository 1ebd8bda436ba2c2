// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/ik5/wavstream/audio"
)

const minFmtChunkSize = 16

// Parser reads WAV headers. The zero value is ready to use and logs nothing.
type Parser struct {
	Logger *log.Logger
}

// ParseHeader parses the header of a WAV file with the zero Parser.
func ParseHeader(rs io.ReadSeeker) (audio.Header, error) {
	return Parser{}.ParseHeader(rs)
}

// ParseHeader scans the chunks of rs from offset 0 until the data chunk and
// returns the PCM framing plus the offset and length of the payload. Chunk
// sizes are trusted: unknown chunks are skipped by exactly their declared
// size and nothing past the data chunk header is read.
func (p Parser) ParseHeader(rs io.ReadSeeker) (audio.Header, error) {
	var hdr audio.Header
	logger := p.logger()

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return hdr, fmt.Errorf("%w: seek to start: %w", ErrMalformedContainer, err)
	}

	var id [4]byte
	if err := readTag(rs, &id); err != nil || string(id[:]) != "RIFF" {
		return hdr, ErrNotWavFile
	}
	if _, err := readUint32(rs); err != nil {
		return hdr, fmt.Errorf("%w: RIFF size: %w", ErrMalformedContainer, err)
	}
	if err := readTag(rs, &id); err != nil || string(id[:]) != "WAVE" {
		return hdr, ErrNotWavFile
	}

	var fmtFound, dataFound bool

	for !dataFound {
		if err := readTag(rs, &id); err != nil {
			if errors.Is(err, io.EOF) {
				// clean end of file at a chunk boundary
				break
			}
			return hdr, fmt.Errorf("%w: chunk id: %w", ErrMalformedContainer, err)
		}

		size, err := readUint32(rs)
		if err != nil {
			return hdr, fmt.Errorf("%w: size of chunk %q: %w", ErrMalformedContainer, id[:], err)
		}

		switch string(id[:]) {
		case "fmt ":
			params, err := readFmt(rs, size)
			if err != nil {
				return hdr, err
			}
			hdr.Params = params
			fmtFound = true

		case "data":
			offset, err := rs.Seek(0, io.SeekCurrent)
			if err != nil {
				return hdr, fmt.Errorf("%w: data offset: %w", ErrMalformedContainer, err)
			}
			hdr.DataOffset = offset
			hdr.DataLength = int64(size)
			dataFound = true

		default:
			logger.Warn("skipping unknown chunk", "id", string(id[:]), "size", size)
			if _, err := rs.Seek(int64(size), io.SeekCurrent); err != nil {
				return hdr, fmt.Errorf("%w: skip chunk %q: %w", ErrMalformedContainer, id[:], err)
			}
		}
	}

	if !fmtFound || !dataFound {
		return hdr, fmt.Errorf("%w: fmt found %t, data found %t", ErrMissingRequiredChunk, fmtFound, dataFound)
	}

	logger.Info("read wav header",
		"format", hdr.AudioFormat,
		"channels", hdr.Channels,
		"rate", hdr.SampleRate,
		"bits", hdr.BitsPerSample,
		"block_align", hdr.BlockAlign,
		"bytes_per_sec", hdr.BytesPerSecond,
		"data_offset", hdr.DataOffset,
		"data_size", hdr.DataLength,
	)

	return hdr, nil
}

// Open implements audio.Container. The payload is read from rs itself, so
// the caller seeks to DataOffset before streaming.
func (p Parser) Open(rs io.ReadSeeker) (audio.Header, io.Reader, error) {
	hdr, err := p.ParseHeader(rs)
	if err != nil {
		return hdr, nil, err
	}

	switch hdr.AudioFormat {
	case audio.FormatPCM, audio.FormatALaw, audio.FormatMULaw:
	default:
		return hdr, nil, fmt.Errorf("%w: format code %d", ErrUnsupportedFormat, hdr.AudioFormat)
	}

	if err := hdr.Validate(); err != nil {
		return hdr, nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}

	return hdr, rs, nil
}

// readFmt decodes a fmt chunk body. Byte rate and block align are skipped
// and recomputed from the other fields.
func readFmt(rs io.ReadSeeker, size uint32) (audio.Params, error) {
	if size < minFmtChunkSize {
		return audio.Params{}, fmt.Errorf("%w: %d bytes", ErrInvalidFmtChunk, size)
	}

	var body [minFmtChunkSize]byte
	if _, err := io.ReadFull(rs, body[:]); err != nil {
		return audio.Params{}, fmt.Errorf("%w: fmt chunk: %w", ErrMalformedContainer, err)
	}

	format := binary.LittleEndian.Uint16(body[0:2])
	channels := binary.LittleEndian.Uint16(body[2:4])
	sampleRate := binary.LittleEndian.Uint32(body[4:8])
	bitsPerSample := binary.LittleEndian.Uint16(body[14:16])

	if size > minFmtChunkSize {
		if _, err := rs.Seek(int64(size-minFmtChunkSize), io.SeekCurrent); err != nil {
			return audio.Params{}, fmt.Errorf("%w: skip fmt extension: %w", ErrMalformedContainer, err)
		}
	}

	return audio.NewParams(format, int(channels), int(sampleRate), int(bitsPerSample)), nil
}

func (p Parser) logger() *log.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return log.New(io.Discard)
}

// readTag reads a four byte chunk id. io.EOF is only returned when no byte
// at all could be read.
func readTag(r io.Reader, id *[4]byte) error {
	_, err := io.ReadFull(r, id[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}
