package engine

import (
	"go.uber.org/zap"

	"github.com/meterbridge/jamdeck"
)

// Transport owns the master and per-song play state.
type Transport Engine

// ToggleMaster flips the master transport. Turning it on broadcasts play to
// every song and marks them all playing; turning it off broadcasts pause.
// It is a broadcast, not a per-song toggle: a song that was already playing
// individually just stays playing.
func (t *Transport) ToggleMaster() {
	e := (*Engine)(t)
	e.masterPlaying = !e.masterPlaying
	e.forEach(func(rec *slotRecord) {
		rec.slot.Playing = e.masterPlaying
		if e.masterPlaying {
			e.adapter.Play(rec.handle)
		} else {
			e.adapter.Pause(rec.handle)
		}
	})
	e.log.Debug("master playback toggled", zap.Bool("playing", e.masterPlaying))
	e.events.publish(Event{Kind: EventTransport})
}

// ToggleSong flips one slot's play state, leaving the master flag and every
// other slot alone. Unknown ids are a no-op.
func (t *Transport) ToggleSong(id jamdeck.SlotID) {
	e := (*Engine)(t)
	rec := e.lookup(id)
	if rec == nil {
		e.log.Debug("playback toggle for unknown song ignored", zap.Stringer("id", id))
		return
	}
	rec.slot.Playing = !rec.slot.Playing
	if rec.slot.Playing {
		e.adapter.Play(rec.handle)
	} else {
		e.adapter.Pause(rec.handle)
	}
	e.events.publish(Event{Kind: EventTransport, Slot: id})
}

// Seek moves one slot's playhead. Negative positions clamp to zero.
func (t *Transport) Seek(id jamdeck.SlotID, seconds float64) {
	e := (*Engine)(t)
	rec := e.lookup(id)
	if rec == nil {
		e.log.Debug("seek for unknown song ignored", zap.Stringer("id", id))
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	rec.slot.Position = seconds
	e.adapter.Seek(rec.handle, seconds)
	e.events.publish(Event{Kind: EventTransport, Slot: id})
}

// EmergencyStop is the panic button: master off, every song stopped, every
// position back to zero, synchronously and unconditionally. The adapter is
// told through the same non-blocking primitives as everything else, so a
// stuck render side can never delay the state reset. Calling it again right
// away is a no-op.
func (t *Transport) EmergencyStop() {
	e := (*Engine)(t)
	e.masterPlaying = false
	e.forEach(func(rec *slotRecord) {
		rec.slot.Playing = false
		rec.slot.Position = 0
		e.adapter.Pause(rec.handle)
		e.adapter.Seek(rec.handle, 0)
	})
	e.log.Info("emergency stop")
	e.events.publish(Event{Kind: EventTransport})
}

// Playing returns the master transport flag.
func (t *Transport) Playing() bool {
	return t.masterPlaying
}
