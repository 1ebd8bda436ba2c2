// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidParams    = errors.New("invalid PCM parameters")
	ErrUnknownContainer = errors.New("no container registered for extension")
	ErrInvalidTone      = errors.New("invalid tone settings")
)
