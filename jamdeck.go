// Package jamdeck implements a synchronized multi-song playback engine: a
// registry of independently loaded songs, tempo coordination between them
// under three sync modes, per-song mix and loop state, and a master transport
// driving all of them at once.
//
// The root package holds the serializable domain types and the interfaces the
// engine consumes. Package engine is the control plane; package render is a
// reference AudioEngine that mixes PCM voices on a real-time goroutine.
package jamdeck

import "strconv"

const (
	// TempoMin and TempoMax bound every tempo in the engine, master and
	// per-song alike. 1.0 is the song's recorded speed.
	TempoMin = 0.5
	TempoMax = 2.0

	VolumeMin = 0.0
	VolumeMax = 1.0
)

// ClampTempo and ClampVolume pull out-of-range control values back into the
// engine-wide ranges. Sliders and knobs always succeed; nothing rejects.
func ClampTempo(value float64) float64 { return clamp(value, TempoMin, TempoMax) }

func ClampVolume(value float64) float64 { return clamp(value, VolumeMin, VolumeMax) }

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Handle identifies one loaded song inside an AudioEngine. Handles are opaque
// to the engine; the adapter chooses them at Load and owns their meaning.
type Handle string

// AudioEngine is the boundary between the control plane and whatever renders
// the actual audio. The engine package never touches samples; it drives one
// of these. All methods except Start and Load are best effort and must not
// block the caller; mute/solo flags are forwarded as-is so the adapter can
// compute the audible mix (gain = volume x mute x solo x master) itself.
type AudioEngine interface {
	Start() error
	Stop()
	Load(song Song) (Handle, error)
	Unload(handle Handle)
	Play(handle Handle)
	Pause(handle Handle)
	Seek(handle Handle, seconds float64)
	SetTempo(handle Handle, tempo float64)
	SetVolume(handle Handle, volume float64)
	SetMuted(handle Handle, muted bool)
	SetSoloed(handle Handle, soloed bool)
	SetLoop(handle Handle, enabled bool, start, end float64)
	SetMasterVolume(volume float64)
	Position(handle Handle) float64
}

// NopEngine is an AudioEngine that renders nothing. It keeps the engine
// drivable headless and in tests; handles are distinct but dead.
type NopEngine struct {
	loads int
}

func (e *NopEngine) Start() error { return nil }
func (e *NopEngine) Stop()        {}

func (e *NopEngine) Load(song Song) (Handle, error) {
	e.loads++
	return Handle("nop-" + strconv.Itoa(e.loads)), nil
}

func (e *NopEngine) Unload(handle Handle)                                    {}
func (e *NopEngine) Play(handle Handle)                                      {}
func (e *NopEngine) Pause(handle Handle)                                     {}
func (e *NopEngine) Seek(handle Handle, seconds float64)                     {}
func (e *NopEngine) SetTempo(handle Handle, tempo float64)                   {}
func (e *NopEngine) SetVolume(handle Handle, volume float64)                 {}
func (e *NopEngine) SetMuted(handle Handle, muted bool)                      {}
func (e *NopEngine) SetSoloed(handle Handle, soloed bool)                    {}
func (e *NopEngine) SetLoop(handle Handle, enabled bool, start, end float64) {}
func (e *NopEngine) SetMasterVolume(volume float64)                          {}
func (e *NopEngine) Position(handle Handle) float64                          { return 0 }
