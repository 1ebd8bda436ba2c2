// SPDX-License-Identifier: EPL-2.0

// Package aiff opens 16-bit PCM AIFF files for streaming through the same
// pipeline as WAV files. Decoding is done by github.com/go-audio/aiff and
// samples are converted to little-endian on the way out.
package aiff
