package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/meterbridge/jamdeck"
)

// Registry owns the set of loaded song players and their identities.
type Registry Engine

// AddSong registers a new slot for the song and loads it into the adapter.
// The slot starts at tempo 1.0 (immediately re-derived when the engine is in
// locked or ratio mode, so the sync invariant holds across adds too), the
// descriptor's volume clamped into range, not playing, not muted, not soloed,
// loop disabled, position zero. A failed adapter load registers nothing and
// is returned wrapped; it is the only error path.
func (r *Registry) AddSong(song jamdeck.Song) (jamdeck.SlotID, error) {
	e := (*Engine)(r)
	handle, err := e.adapter.Load(song)
	if err != nil {
		return jamdeck.SlotID{}, fmt.Errorf("loading song %q: %w", song.Name, err)
	}
	idx := e.allocRecord()
	rec := &e.arena[idx]
	rec.live = true
	rec.handle = handle
	rec.memBytes = int64(song.Frames(44100)) * 8 // stereo float32 frames
	rec.slot = jamdeck.SongSlot{
		ID:         jamdeck.SlotID{Index: idx, Gen: rec.gen},
		SongName:   song.Name,
		Tempo:      1.0,
		TempoRatio: song.Ratio(),
		Volume:     jamdeck.ClampVolume(song.Volume),
	}
	e.order = append(e.order, idx)
	rec.slot.Tempo = e.deriveTempo(rec)
	e.adapter.SetTempo(handle, rec.slot.Tempo)
	e.adapter.SetVolume(handle, rec.slot.Volume)
	e.log.Debug("song added",
		zap.Stringer("id", rec.slot.ID),
		zap.String("name", song.Name),
		zap.Float64("ratio", rec.slot.TempoRatio))
	e.events.publish(Event{Kind: EventSongs, Slot: rec.slot.ID})
	return rec.slot.ID, nil
}

// RemoveSong drops the slot and unloads it from the adapter. Unknown ids are
// a no-op. The freed record's generation is bumped, so the removed id is dead
// forever.
func (r *Registry) RemoveSong(id jamdeck.SlotID) {
	e := (*Engine)(r)
	rec := e.lookup(id)
	if rec == nil {
		e.log.Debug("remove of unknown song ignored", zap.Stringer("id", id))
		return
	}
	e.adapter.Pause(rec.handle)
	e.adapter.Unload(rec.handle)
	e.freeRecord(id.Index)
	e.log.Debug("song removed", zap.Stringer("id", id))
	e.events.publish(Event{Kind: EventSongs, Slot: id})
}

// RemoveAllSongs clears the registry and forces the master transport off:
// with nothing loaded there is nothing left to play.
func (r *Registry) RemoveAllSongs() {
	e := (*Engine)(r)
	for _, idx := range e.order {
		rec := &e.arena[idx]
		e.adapter.Pause(rec.handle)
		e.adapter.Unload(rec.handle)
		rec.live = false
		rec.gen++
		rec.slot = jamdeck.SongSlot{}
		rec.handle = ""
		rec.memBytes = 0
		e.free = append(e.free, idx)
	}
	e.order = e.order[:0]
	e.masterPlaying = false
	e.log.Debug("all songs removed")
	e.events.publish(Event{Kind: EventSongs})
	e.events.publish(Event{Kind: EventTransport})
}

// Song returns a copy of the slot's current state.
func (r *Registry) Song(id jamdeck.SlotID) (jamdeck.SongSlot, bool) {
	e := (*Engine)(r)
	rec := e.lookup(id)
	if rec == nil {
		return jamdeck.SongSlot{}, false
	}
	return rec.slot.Copy(), true
}

// Songs returns copies of every slot in display (insertion) order.
func (r *Registry) Songs() []jamdeck.SongSlot {
	e := (*Engine)(r)
	ret := make([]jamdeck.SongSlot, 0, len(e.order))
	for _, idx := range e.order {
		ret = append(ret, e.arena[idx].slot.Copy())
	}
	return ret
}

// Count returns the number of loaded songs.
func (r *Registry) Count() int {
	return len(r.order)
}

// allocRecord returns the arena index for a new slot, reusing a freed record
// when one exists. Generations start at 1 so the zero SlotID stays invalid.
func (e *Engine) allocRecord() uint32 {
	if n := len(e.free); n > 0 {
		idx := e.free[n-1]
		e.free = e.free[:n-1]
		return idx
	}
	e.arena = append(e.arena, slotRecord{gen: 1})
	return uint32(len(e.arena) - 1)
}

func (e *Engine) freeRecord(idx uint32) {
	rec := &e.arena[idx]
	rec.live = false
	rec.gen++
	rec.slot = jamdeck.SongSlot{}
	rec.handle = ""
	rec.memBytes = 0
	for i, o := range e.order {
		if o == idx {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	e.free = append(e.free, idx)
}
