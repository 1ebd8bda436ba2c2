// SPDX-License-Identifier: EPL-2.0

package wavstream

import "errors"

var (
	// ErrBusy is returned when a second playback is started on a Player
	// that is still playing.
	ErrBusy = errors.New("player is already playing")

	ErrPlayerClosed = errors.New("player closed")
)
