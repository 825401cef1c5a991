package render

import (
	"math"
	"sync/atomic"

	"github.com/meterbridge/jamdeck"
)

type (
	// voice is one song's playback unit on the render goroutine: its samples
	// (possibly none), a varispeed read head, and the mix flags the engine
	// forwarded. Only the render goroutine touches a voice after opAdd; the
	// control side keeps just the shared clock.
	voice struct {
		handle jamdeck.Handle

		samples jamdeck.AudioBuffer
		srcRate float64 // sample rate of samples; output rate when none
		length  float64 // song length in source frames

		head    float64 // read head in source frames
		tempo   float64
		volume  float64
		playing bool
		muted   bool
		soloed  bool

		loopEnabled bool
		loopStart   float64 // source frames
		loopEnd     float64

		clock *voiceClock
	}

	// voiceClock is the RT→control position channel: the render goroutine
	// stores the position once per block, the control side reads it whenever
	// asked. The control side also stores on seek so readback is coherent
	// before the render side has caught up.
	voiceClock struct {
		seconds atomic.Uint64 // math.Float64bits
	}
)

func (c *voiceClock) store(seconds float64) {
	c.seconds.Store(math.Float64bits(seconds))
}

func (c *voiceClock) load() float64 {
	return math.Float64frombits(c.seconds.Load())
}

// newVoice builds a voice from a descriptor. Songs without samples get a
// bare position clock: length from Duration, silence out.
func newVoice(handle jamdeck.Handle, song jamdeck.Song, outputRate int, clock *voiceClock) *voice {
	v := &voice{
		handle:  handle,
		samples: song.Samples,
		srcRate: float64(song.SampleRate),
		tempo:   1.0,
		volume:  jamdeck.ClampVolume(song.Volume),
		clock:   clock,
	}
	if len(v.samples) == 0 || v.srcRate <= 0 {
		v.srcRate = float64(outputRate)
	}
	if len(v.samples) > 0 {
		v.length = float64(len(v.samples))
	} else {
		v.length = song.Duration * v.srcRate
	}
	return v
}

// position returns the head in seconds.
func (v *voice) position() float64 {
	return v.head / v.srcRate
}

// seek moves the head, clamped into the song.
func (v *voice) seek(seconds float64) {
	v.head = seconds * v.srcRate
	if v.head < 0 {
		v.head = 0
	}
	if v.head > v.length {
		v.head = v.length
	}
}

// setLoop stores the loop window, converted to source frames. The engine
// already guarantees end >= start >= 0.
func (v *voice) setLoop(enabled bool, startSec, endSec float64) {
	v.loopEnabled = enabled
	v.loopStart = startSec * v.srcRate
	v.loopEnd = endSec * v.srcRate
}

// render advances the voice through one block and adds its samples into out
// (flat interleaved stereo, len 2*frames) at the given gain. The head steps
// tempo*srcRate/outRate source frames per output frame: varispeed. With the
// loop on and a non-empty window the head wraps; otherwise it pins at the
// song length and the voice goes silent — the engine's flags are not
// touched, a stopped-at-the-end voice is still "playing".
func (v *voice) render(out []float32, frames int, outputRate int, gain float32) {
	if !v.playing {
		return
	}
	step := v.tempo * v.srcRate / float64(outputRate)
	audible := gain > 0 && len(v.samples) > 0
	for i := 0; i < frames; i++ {
		if v.loopEnabled && v.loopEnd > v.loopStart && v.head >= v.loopEnd {
			v.head = v.loopStart + math.Mod(v.head-v.loopEnd, v.loopEnd-v.loopStart)
		}
		if v.head >= v.length {
			v.head = v.length
			break
		}
		if audible {
			l, r := v.sampleAt(v.head)
			out[2*i] += l * gain
			out[2*i+1] += r * gain
		}
		v.head += step
	}
	v.clock.store(v.position())
}

// sampleAt linearly interpolates the source at a fractional frame.
func (v *voice) sampleAt(head float64) (float32, float32) {
	i := int(head)
	if i >= len(v.samples) {
		return 0, 0
	}
	s0 := v.samples[i]
	if i+1 >= len(v.samples) {
		return s0[0], s0[1]
	}
	s1 := v.samples[i+1]
	frac := float32(head - float64(i))
	return s0[0] + (s1[0]-s0[0])*frac, s0[1] + (s1[1]-s0[1])*frac
}
