package engine

import (
	"go.uber.org/zap"

	"github.com/meterbridge/jamdeck"
)

// Loop owns per-song loop state: the enable flag and the loop window.
type Loop Engine

// Toggle flips the slot's loop enable and forwards the whole loop window so
// the adapter always has a consistent view of it.
func (l *Loop) Toggle(id jamdeck.SlotID) {
	e := (*Engine)(l)
	rec := e.lookup(id)
	if rec == nil {
		e.log.Debug("loop toggle for unknown song ignored", zap.Stringer("id", id))
		return
	}
	rec.slot.LoopEnabled = !rec.slot.LoopEnabled
	e.adapter.SetLoop(rec.handle, rec.slot.LoopEnabled, rec.slot.LoopStart, rec.slot.LoopEnd)
	e.events.publish(Event{Kind: EventLoop, Slot: id})
}

// SetPoints stores the loop window. Negative start clamps to zero; end is
// stored as max(end, start), so LoopEnd >= LoopStart survives any input —
// corrected silently, never rejected.
func (l *Loop) SetPoints(id jamdeck.SlotID, start, end float64) {
	e := (*Engine)(l)
	rec := e.lookup(id)
	if rec == nil {
		e.log.Debug("loop points for unknown song ignored", zap.Stringer("id", id))
		return
	}
	if start < 0 {
		start = 0
	}
	if end < start {
		end = start
	}
	rec.slot.LoopStart = start
	rec.slot.LoopEnd = end
	e.adapter.SetLoop(rec.handle, rec.slot.LoopEnabled, start, end)
	e.events.publish(Event{Kind: EventLoop, Slot: id})
}
