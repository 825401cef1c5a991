package engine

import (
	"go.uber.org/zap"

	"github.com/meterbridge/jamdeck"
)

// Tempo is the synchronizer: it owns the master tempo, the sync mode, and
// the derivation of every slot's tempo from them. Whatever happens — mode
// changes, master changes, ratio edits, songs added mid-mode — the mode's
// derivation rule holds for every slot before the mutating call returns.
type Tempo Engine

// SetMode switches the sync strategy and synchronously recomputes every
// slot's tempo under the new mode:
//
//   - locked: every tempo becomes the current master tempo.
//   - ratio: every tempo becomes clamp(master * slot ratio).
//   - independent: tempos stay exactly as they stand and become individually
//     mutable again.
//
// Setting the mode it is already in re-asserts the same derivation. Invalid
// mode values are ignored.
func (t *Tempo) SetMode(mode jamdeck.SyncMode) {
	e := (*Engine)(t)
	if !mode.Valid() {
		e.log.Debug("invalid sync mode ignored", zap.Int("mode", int(mode)))
		return
	}
	e.sync = mode
	if mode != jamdeck.SyncIndependent {
		e.forEach(func(rec *slotRecord) {
			e.applyTempo(rec, e.deriveTempo(rec))
		})
	}
	e.log.Debug("sync mode set", zap.Stringer("mode", mode))
	e.events.publish(Event{Kind: EventTempo})
}

// SetMaster stores the clamped master tempo. In locked mode every slot
// follows it immediately; in ratio mode every slot re-derives; in
// independent mode no slot moves.
func (t *Tempo) SetMaster(value float64) {
	e := (*Engine)(t)
	e.masterTempo = jamdeck.ClampTempo(value)
	if e.sync != jamdeck.SyncIndependent {
		e.forEach(func(rec *slotRecord) {
			e.applyTempo(rec, e.deriveTempo(rec))
		})
	}
	e.log.Debug("master tempo set", zap.Float64("tempo", e.masterTempo))
	e.events.publish(Event{Kind: EventTempo})
}

// Set assigns a clamped tempo to one slot, but only in independent mode. In
// locked and ratio modes the mode's derivation is authoritative and the call
// is a no-op; the slider simply doesn't own the value right now. Unknown ids
// are a no-op.
func (t *Tempo) Set(id jamdeck.SlotID, value float64) {
	e := (*Engine)(t)
	rec := e.lookup(id)
	if rec == nil {
		e.log.Debug("tempo for unknown song ignored", zap.Stringer("id", id))
		return
	}
	if e.sync != jamdeck.SyncIndependent {
		e.log.Debug("per-song tempo ignored outside independent mode",
			zap.Stringer("id", id), zap.Stringer("mode", e.sync))
		return
	}
	e.applyTempo(rec, jamdeck.ClampTempo(value))
	e.events.publish(Event{Kind: EventTempo, Slot: id})
}

// SetRatio changes the slot's tempo multiplier relative to the master.
// Values <= 0 are ignored. In ratio mode the slot's tempo re-derives
// immediately; in the other modes the new ratio simply waits to matter.
func (t *Tempo) SetRatio(id jamdeck.SlotID, ratio float64) {
	e := (*Engine)(t)
	rec := e.lookup(id)
	if rec == nil {
		e.log.Debug("ratio for unknown song ignored", zap.Stringer("id", id))
		return
	}
	if ratio <= 0 {
		e.log.Debug("nonpositive tempo ratio ignored",
			zap.Stringer("id", id), zap.Float64("ratio", ratio))
		return
	}
	rec.slot.TempoRatio = ratio
	if e.sync == jamdeck.SyncRatio {
		e.applyTempo(rec, e.deriveTempo(rec))
	}
	e.events.publish(Event{Kind: EventTempo, Slot: id})
}

// Mode returns the active sync mode.
func (t *Tempo) Mode() jamdeck.SyncMode {
	return t.sync
}

// Master returns the master tempo.
func (t *Tempo) Master() float64 {
	return t.masterTempo
}
