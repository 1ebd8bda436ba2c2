// SPDX-License-Identifier: EPL-2.0

// Package wavstream plays WAV files by streaming them through a ring
// buffer, the way a microcontroller streams from an SD card to an I2S DAC.
//
// Two loops run concurrently for every file. The feeder reads the PCM
// payload in fixed slices and writes it into a ringbuf.RingBuffer; the
// drainer reads it back and pushes it into a sink.Sink. The ring buffer is
// the only state they share.
//
// # Quick Start
//
//	p, err := wavstream.NewPlayer(wavstream.DefaultOptions())
//	if err != nil {
//	    // the ring buffer could not be allocated
//	}
//	defer p.Close()
//
//	res, err := p.Play(ctx, "song.wav", sink.Discard())
//
// Play blocks until the file has been drained into the sink. Stop, or
// cancelling ctx, aborts both loops.
//
// # Playlists
//
// PlayAll plays files in order. A file whose header cannot be parsed is
// skipped and the next one is played; the ring buffer is reset between
// files so a failed file never leaves stale bytes behind.
//
// Loop repeats one file with no gap between passes until Stop is called or
// ctx is done. Scan lists the files of a directory that can be played.
//
// # Formats
//
// WAV files are parsed by formats/wav and streamed straight from disk.
// A-law and u-law WAV files are expanded to 16-bit PCM by the feeder. AIFF
// files are decoded by formats/aiff. Other containers can be added through
// the player's Registry.
//
// # Sinks
//
// sink.NewWriter and sink.NewClocked cover files, pipes and tests;
// sink/portaudio and sink/oto play on real audio hardware.
package wavstream
