// SPDX-License-Identifier: EPL-2.0

package pump

import "errors"

var (
	// ErrSinkStalled is returned when the sink keeps accepting zero bytes
	// past the drainer's stall limit.
	ErrSinkStalled = errors.New("sink accepted no data")

	// ErrFeederFailed wraps the error that ended a feeder in StateFailed.
	ErrFeederFailed = errors.New("feeder failed")

	// ErrNotSeekable is returned when looping is asked of a source that
	// cannot be rewound.
	ErrNotSeekable = errors.New("source cannot be rewound")

	// ErrAlreadyStarted is returned by a second call to Run.
	ErrAlreadyStarted = errors.New("loop already started")
)
