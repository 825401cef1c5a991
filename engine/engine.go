// Package engine is the control plane of jamdeck: one Engine value owns the
// canonical state of every loaded song, the master transport, and the sync
// relationship between tempos, and forwards primitives to an AudioEngine as
// that state changes.
//
// The Engine is a single-writer structure. All mutating entry points must be
// called from one goroutine; multi-field invariants (solo exclusivity,
// mode-derived tempos) update as a unit because one goroutine owns them.
// Readers on other goroutines get deep-copied snapshots through State, never
// references into live state. The entry points are grouped into typed views
// (Registry, Tempo, Mixer, Loop, Transport, Presets, Stats), all windows into
// the same Engine value.
package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/meterbridge/jamdeck"
)

type (
	// Engine holds the canonical state. The arena indexed by SlotID.Index
	// owns the slot records; order holds arena indices in display order.
	// Freed records go on the free list and come back with a bumped
	// generation, so a stale SlotID can never resolve again.
	Engine struct {
		adapter jamdeck.AudioEngine
		log     *zap.Logger
		events  *eventBus

		arena []slotRecord
		order []uint32
		free  []uint32

		masterPlaying bool
		masterTempo   float64
		masterVolume  float64
		sync          jamdeck.SyncMode

		started bool
	}

	slotRecord struct {
		gen    uint32
		live   bool
		slot   jamdeck.SongSlot
		handle jamdeck.Handle

		// memBytes is the stats estimate of what the adapter retains for
		// this song, fixed at load time.
		memBytes int64
	}
)

// New creates an engine driving the given adapter. A nil logger is replaced
// with a nop logger so call sites never have to check.
func New(adapter jamdeck.AudioEngine, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		adapter:      adapter,
		log:          log,
		events:       newEventBus(),
		masterTempo:  1.0,
		masterVolume: 1.0,
		sync:         jamdeck.SyncIndependent,
	}
}

// Views. Each is a typed window into the same Engine value; the casts are
// free and the state is shared.

func (e *Engine) Registry() *Registry   { return (*Registry)(e) }
func (e *Engine) Tempo() *Tempo         { return (*Tempo)(e) }
func (e *Engine) Mixer() *Mixer         { return (*Mixer)(e) }
func (e *Engine) Loop() *Loop           { return (*Loop)(e) }
func (e *Engine) Transport() *Transport { return (*Transport)(e) }
func (e *Engine) Presets() *Presets     { return (*Presets)(e) }
func (e *Engine) Stats() *Stats         { return (*Stats)(e) }

// Start brings up the adapter's render graph. It is idempotent: only the
// first call can fail, later calls are no-ops. An adapter start failure is
// the engine's one fatal error class.
func (e *Engine) Start() error {
	if e.started {
		return nil
	}
	if err := e.adapter.Start(); err != nil {
		return fmt.Errorf("starting audio engine: %w", err)
	}
	e.started = true
	e.log.Info("engine started")
	return nil
}

// Stop tears the render graph down. Idempotent.
func (e *Engine) Stop() {
	if !e.started {
		return
	}
	e.adapter.Stop()
	e.started = false
	e.log.Info("engine stopped")
}

// State returns a deep-copied snapshot of the whole engine, safe to hand to
// any goroutine.
func (e *Engine) State() jamdeck.EngineState {
	songs := make([]jamdeck.SongSlot, 0, len(e.order))
	for _, idx := range e.order {
		songs = append(songs, e.arena[idx].slot.Copy())
	}
	return jamdeck.EngineState{
		Songs:         songs,
		MasterPlaying: e.masterPlaying,
		MasterTempo:   e.masterTempo,
		MasterVolume:  e.masterVolume,
		Sync:          e.sync,
	}
}

// Events returns the engine's change-notification channel. Sends are
// non-blocking: a consumer that falls behind loses coalescable events, it
// never stalls the control plane.
func (e *Engine) Events() <-chan Event {
	return e.events.ch
}

// SyncPositions pulls the adapter's playback clock into every slot's
// Position. Call it from the owning goroutine at UI rate; position events on
// the bus are throttled separately so a tight caller can't flood consumers.
func (e *Engine) SyncPositions() {
	changed := false
	for _, idx := range e.order {
		rec := &e.arena[idx]
		pos := e.adapter.Position(rec.handle)
		if pos != rec.slot.Position {
			rec.slot.Position = pos
			changed = true
		}
	}
	if changed {
		e.events.publishThrottled(Event{Kind: EventPosition})
	}
}

// lookup resolves a SlotID against the arena, nil when the id is stale,
// freed, or never existed. Every per-song entry point goes through here; an
// unknown id makes the operation a no-op, since the UI may race a removal
// against a pending gesture.
func (e *Engine) lookup(id jamdeck.SlotID) *slotRecord {
	if !id.IsValid() || int(id.Index) >= len(e.arena) {
		return nil
	}
	rec := &e.arena[id.Index]
	if !rec.live || rec.gen != id.Gen {
		return nil
	}
	return rec
}

// forEach visits every live slot in display order.
func (e *Engine) forEach(f func(rec *slotRecord)) {
	for _, idx := range e.order {
		f(&e.arena[idx])
	}
}

// deriveTempo computes one slot's tempo under the current sync mode. In
// independent mode the slot's own tempo stands.
func (e *Engine) deriveTempo(rec *slotRecord) float64 {
	switch e.sync {
	case jamdeck.SyncLocked:
		return e.masterTempo
	case jamdeck.SyncRatio:
		return jamdeck.ClampTempo(e.masterTempo * rec.slot.TempoRatio)
	}
	return rec.slot.Tempo
}

// applyTempo stores a derived tempo and forwards it when it changed.
func (e *Engine) applyTempo(rec *slotRecord, tempo float64) {
	if rec.slot.Tempo == tempo {
		return
	}
	rec.slot.Tempo = tempo
	e.adapter.SetTempo(rec.handle, tempo)
}
