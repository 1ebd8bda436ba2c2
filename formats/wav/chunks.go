// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"

	"github.com/youpy/go-riff"
)

// ChunkInfo is one top-level chunk of a RIFF file.
type ChunkInfo struct {
	ID   string
	Size uint32
}

// ChunkList describes the top-level structure of a RIFF file.
type ChunkList struct {
	FileSize uint32
	FileType string
	Chunks   []ChunkInfo
}

// Has reports whether a chunk with the given id is present.
func (l ChunkList) Has(id string) bool {
	for _, c := range l.Chunks {
		if c.ID == id {
			return true
		}
	}
	return false
}

// ListChunks lists every top-level chunk of a WAV file, including the ones
// past the data chunk that ParseHeader never visits. It is a diagnostic
// companion to ParseHeader, not used on the playback path.
func ListChunks(r riff.RIFFReader) (ChunkList, error) {
	rc, err := riff.NewReader(r).Read()
	if err != nil {
		return ChunkList{}, fmt.Errorf("%w: %w", ErrMalformedContainer, err)
	}

	list := ChunkList{
		FileSize: uint32(rc.FileSize),
		FileType: string(rc.FileType[:]),
		Chunks:   make([]ChunkInfo, 0, len(rc.Chunks)),
	}
	if list.FileType != "WAVE" {
		return list, ErrNotWavFile
	}

	for _, ch := range rc.Chunks {
		list.Chunks = append(list.Chunks, ChunkInfo{
			ID:   string(ch.ChunkID[:]),
			Size: uint32(ch.ChunkSize),
		})
	}

	return list, nil
}
