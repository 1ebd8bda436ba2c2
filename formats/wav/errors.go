// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedContainer is returned for files whose RIFF structure cannot be read.
	ErrMalformedContainer = errors.New("malformed WAV container")

	// ErrMissingRequiredChunk is returned when the fmt or data chunk never shows up.
	ErrMissingRequiredChunk = errors.New("required WAV chunk missing")

	// ErrUnsupportedFormat is returned for format codes the pump cannot play.
	ErrUnsupportedFormat = errors.New("unsupported WAV audio format")

	ErrNotWavFile      = fmt.Errorf("%w: not a WAV file", ErrMalformedContainer)
	ErrInvalidFmtChunk = fmt.Errorf("%w: fmt chunk shorter than 16 bytes", ErrMalformedContainer)
)
