package render

import (
	"github.com/viterin/vek/vek32"

	"github.com/meterbridge/jamdeck"
)

// mixer owns the voices. Everything in here runs on the render goroutine:
// the AudioContext pulls process, process drains the message queue and then
// mixes. The steady-state path allocates nothing; the scratch buffer grows
// to the largest block seen and stays.
type mixer struct {
	broker     *broker
	outputRate int

	voices       []*voice
	masterVolume float32

	scratch []float32 // flat interleaved stereo mix bus
}

func newMixer(b *broker, outputRate int) *mixer {
	return &mixer{
		broker:       b,
		outputRate:   outputRate,
		masterVolume: 1.0,
	}
}

// process fills one block. This is the AudioContext callback.
func (m *mixer) process(buf jamdeck.AudioBuffer) error {
	m.drainMessages()

	frames := len(buf)
	if cap(m.scratch) < 2*frames {
		m.scratch = make([]float32, 2*frames)
	}
	bus := m.scratch[:2*frames]
	for i := range bus {
		bus[i] = 0
	}

	anySolo := false
	for _, v := range m.voices {
		if v.soloed {
			anySolo = true
			break
		}
	}
	for _, v := range m.voices {
		v.render(bus, frames, m.outputRate, m.gain(v, anySolo))
	}
	if m.masterVolume != 1.0 {
		vek32.MulNumber_Inplace(bus, m.masterVolume)
	}
	// hard clip so one hot voice cannot wrap the device
	vek32.MinimumNumber_Inplace(bus, 1.0)
	vek32.MaximumNumber_Inplace(bus, -1.0)

	for i := 0; i < frames; i++ {
		buf[i] = [2]float32{bus[2*i], bus[2*i+1]}
	}
	return nil
}

// gain folds the forwarded mix flags into one scalar: volume, silenced by
// mute, silenced by someone else's solo. Master volume is applied to the bus
// as a whole.
func (m *mixer) gain(v *voice, anySolo bool) float32 {
	if v.muted {
		return 0
	}
	if anySolo && !v.soloed {
		return 0
	}
	return float32(v.volume)
}

// drainMessages applies queued control mutations at block start. Never
// blocks: when the queue is empty we mix with what we have.
func (m *mixer) drainMessages() {
	for {
		select {
		case msg := <-m.broker.toMixer:
			m.apply(msg)
		default:
			return
		}
	}
}

func (m *mixer) apply(msg mixerMsg) {
	if msg.op == opAdd {
		m.voices = append(m.voices, msg.voice)
		return
	}
	if msg.op == opMasterVolume {
		m.masterVolume = float32(msg.value)
		return
	}
	v := m.find(msg.handle)
	if v == nil {
		return
	}
	switch msg.op {
	case opRemove:
		for i, w := range m.voices {
			if w == v {
				m.voices = append(m.voices[:i], m.voices[i+1:]...)
				break
			}
		}
	case opPlay:
		v.playing = true
	case opPause:
		v.playing = false
	case opSeek:
		v.seek(msg.value)
		v.clock.store(v.position())
	case opTempo:
		v.tempo = msg.value
	case opVolume:
		v.volume = msg.value
	case opMuted:
		v.muted = msg.flag
	case opSoloed:
		v.soloed = msg.flag
	case opLoop:
		v.setLoop(msg.flag, msg.start, msg.end)
	}
}

func (m *mixer) find(handle jamdeck.Handle) *voice {
	for _, v := range m.voices {
		if v.handle == handle {
			return v
		}
	}
	return nil
}
