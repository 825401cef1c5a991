package engine

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meterbridge/jamdeck"
)

// Presets captures and restores full engine snapshots.
type Presets Engine

// Save snapshots the master fields and every slot's mutable fields under the
// given name. The name is not validated for uniqueness; the preset id is a
// fresh uuid. The returned value shares nothing with live state.
func (p *Presets) Save(name string) jamdeck.Preset {
	e := (*Engine)(p)
	preset := jamdeck.Preset{
		ID:           uuid.New().String(),
		Name:         name,
		CreatedAt:    time.Now().UTC(),
		MasterTempo:  e.masterTempo,
		MasterVolume: e.masterVolume,
		Sync:         e.sync,
		Songs:        make([]jamdeck.PresetSong, 0, len(e.order)),
	}
	e.forEach(func(rec *slotRecord) {
		s := &rec.slot
		preset.Songs = append(preset.Songs, jamdeck.PresetSong{
			ID:          s.ID,
			SongName:    s.SongName,
			Tempo:       s.Tempo,
			TempoRatio:  s.TempoRatio,
			Volume:      s.Volume,
			Playing:     s.Playing,
			Muted:       s.Muted,
			Soloed:      s.Soloed,
			LoopEnabled: s.LoopEnabled,
			LoopStart:   s.LoopStart,
			LoopEnd:     s.LoopEnd,
			Position:    s.Position,
		})
	})
	e.log.Debug("preset saved", zap.String("name", name), zap.String("id", preset.ID))
	return preset
}

// Load restores the master fields, then each recorded song whose id still
// resolves live. Slots the preset doesn't know stay untouched; recorded
// songs that are gone are skipped. It never fails: restore is best effort by
// design, because presets outlive the set of loaded songs.
//
// Presets may come from disk, so the numeric fields clamp on the way in and
// the solo exclusivity invariant is re-enforced (first soloed entry in
// display order wins). Restored values are forwarded to the adapter like any
// other mutation.
func (p *Presets) Load(preset jamdeck.Preset) {
	e := (*Engine)(p)
	e.masterTempo = jamdeck.ClampTempo(preset.MasterTempo)
	e.masterVolume = jamdeck.ClampVolume(preset.MasterVolume)
	e.adapter.SetMasterVolume(e.masterVolume)
	if preset.Sync.Valid() {
		e.sync = preset.Sync
	}
	restored := 0
	for _, ps := range preset.Songs {
		rec := e.lookup(ps.ID)
		if rec == nil {
			continue
		}
		s := &rec.slot
		s.SongName = ps.SongName
		s.Tempo = jamdeck.ClampTempo(ps.Tempo)
		if ps.TempoRatio > 0 {
			s.TempoRatio = ps.TempoRatio
		}
		s.Volume = jamdeck.ClampVolume(ps.Volume)
		s.Playing = ps.Playing
		s.Muted = ps.Muted
		s.Soloed = ps.Soloed
		s.LoopEnabled = ps.LoopEnabled
		s.LoopStart = ps.LoopStart
		if s.LoopStart < 0 {
			s.LoopStart = 0
		}
		s.LoopEnd = ps.LoopEnd
		if s.LoopEnd < s.LoopStart {
			s.LoopEnd = s.LoopStart
		}
		s.Position = ps.Position
		if s.Position < 0 {
			s.Position = 0
		}
		restored++
	}
	// a hand-edited preset may solo more than one song; keep the first
	soloSeen := false
	e.forEach(func(rec *slotRecord) {
		if rec.slot.Soloed {
			if soloSeen {
				rec.slot.Soloed = false
			}
			soloSeen = true
		}
	})
	// mode derivation is authoritative over whatever tempos were recorded
	if e.sync != jamdeck.SyncIndependent {
		e.forEach(func(rec *slotRecord) {
			rec.slot.Tempo = e.deriveTempo(rec)
		})
	}
	e.forEach(func(rec *slotRecord) {
		s := &rec.slot
		e.adapter.SetTempo(rec.handle, s.Tempo)
		e.adapter.SetVolume(rec.handle, s.Volume)
		e.adapter.SetMuted(rec.handle, s.Muted)
		e.adapter.SetSoloed(rec.handle, s.Soloed)
		e.adapter.SetLoop(rec.handle, s.LoopEnabled, s.LoopStart, s.LoopEnd)
		e.adapter.Seek(rec.handle, s.Position)
		if s.Playing {
			e.adapter.Play(rec.handle)
		} else {
			e.adapter.Pause(rec.handle)
		}
	})
	e.log.Debug("preset loaded",
		zap.String("name", preset.Name),
		zap.Int("restored", restored),
		zap.Int("recorded", len(preset.Songs)))
	e.events.publish(Event{Kind: EventPreset})
}
