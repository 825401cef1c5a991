package oto

import (
	"math"

	"github.com/meterbridge/jamdeck"
)

// floatBufferTo16BitLE appends the stereo float32 frames to out as 16-bit
// little-endian samples, clipping to the valid range. Callers pass out with
// length zero but retained capacity to avoid reallocating every block.
func floatBufferTo16BitLE(buf jamdeck.AudioBuffer, out []byte) []byte {
	for _, frame := range buf {
		l := pcm16(frame[0])
		r := pcm16(frame[1])
		out = append(out, byte(l), byte(l>>8), byte(r), byte(r>>8))
	}
	return out
}

func pcm16(v float32) int16 {
	if v < -1.0 {
		return -math.MaxInt16
	}
	if v > 1.0 {
		return math.MaxInt16
	}
	return int16(v * math.MaxInt16)
}
