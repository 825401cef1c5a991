package engine

import (
	"go.uber.org/zap"

	"github.com/meterbridge/jamdeck"
)

// Mixer owns volume, mute and solo. It only maintains and forwards the
// flags; combining volume, mute, solo and master volume into the final gain
// is the adapter's job, on its side of the real-time boundary.
type Mixer Engine

// SetVolume assigns the clamped volume to one slot. No interaction with
// mute or solo.
func (m *Mixer) SetVolume(id jamdeck.SlotID, value float64) {
	e := (*Engine)(m)
	rec := e.lookup(id)
	if rec == nil {
		e.log.Debug("volume for unknown song ignored", zap.Stringer("id", id))
		return
	}
	rec.slot.Volume = jamdeck.ClampVolume(value)
	e.adapter.SetVolume(rec.handle, rec.slot.Volume)
	e.events.publish(Event{Kind: EventMix, Slot: id})
}

// SetMasterVolume stores and forwards the clamped master volume.
func (m *Mixer) SetMasterVolume(value float64) {
	e := (*Engine)(m)
	e.masterVolume = jamdeck.ClampVolume(value)
	e.adapter.SetMasterVolume(e.masterVolume)
	e.events.publish(Event{Kind: EventMix})
}

// ToggleMute flips the slot's mute flag. Mute and solo are orthogonal.
func (m *Mixer) ToggleMute(id jamdeck.SlotID) {
	e := (*Engine)(m)
	rec := e.lookup(id)
	if rec == nil {
		e.log.Debug("mute for unknown song ignored", zap.Stringer("id", id))
		return
	}
	rec.slot.Muted = !rec.slot.Muted
	e.adapter.SetMuted(rec.handle, rec.slot.Muted)
	e.events.publish(Event{Kind: EventMix, Slot: id})
}

// ToggleSolo flips the slot's solo flag, clearing every other slot's when
// turning it on. At most one slot is soloed at any time; toggling an already
// soloed slot just clears it.
func (m *Mixer) ToggleSolo(id jamdeck.SlotID) {
	e := (*Engine)(m)
	rec := e.lookup(id)
	if rec == nil {
		e.log.Debug("solo for unknown song ignored", zap.Stringer("id", id))
		return
	}
	if rec.slot.Soloed {
		rec.slot.Soloed = false
		e.adapter.SetSoloed(rec.handle, false)
		e.events.publish(Event{Kind: EventMix, Slot: id})
		return
	}
	e.forEach(func(other *slotRecord) {
		if other.slot.Soloed {
			other.slot.Soloed = false
			e.adapter.SetSoloed(other.handle, false)
		}
	})
	rec.slot.Soloed = true
	e.adapter.SetSoloed(rec.handle, true)
	e.events.publish(Event{Kind: EventMix, Slot: id})
}

// MasterVolume returns the master volume.
func (m *Mixer) MasterVolume() float64 {
	return m.masterVolume
}
