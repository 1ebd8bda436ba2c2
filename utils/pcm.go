// SPDX-License-Identifier: EPL-2.0

// Package utils has small sample conversion helpers shared by sources and
// sinks. All byte layouts are little-endian interleaved, the layout the ring
// buffer carries.
package utils

import "encoding/binary"

// Float32ToInt16 clamps x to [-1, 1] and scales it by 32767, so the output
// is symmetric around zero.
func Float32ToInt16(x float32) int16 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}

	return int16(x * 32767.0)
}

// PutInt16s encodes src into dst and returns the number of bytes written.
// dst must hold 2*len(src) bytes.
func PutInt16s(dst []byte, src []int16) int {
	for i, s := range src {
		binary.LittleEndian.PutUint16(dst[2*i:], uint16(s))
	}
	return 2 * len(src)
}

// Int16s decodes whole samples from src into dst and returns the number of
// samples decoded. A trailing odd byte is ignored.
func Int16s(dst []int16, src []byte) int {
	n := min(len(dst), len(src)/2)
	for i := range n {
		dst[i] = int16(binary.LittleEndian.Uint16(src[2*i:]))
	}
	return n
}
