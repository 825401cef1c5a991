package jamdeck

import "time"

type (
	// Preset is a named snapshot of the engine at a point in time. It is
	// immutable once created: Save deep-copies everything in, Load copies
	// everything back out, and nothing holds a reference into live state.
	Preset struct {
		// ID is a fresh uuid per snapshot. Name is caller-supplied and not
		// validated for uniqueness; two presets may share a name.
		ID        string    `yaml:"id" json:"id"`
		Name      string    `yaml:"name" json:"name"`
		CreatedAt time.Time `yaml:"createdAt" json:"createdAt"`

		MasterTempo  float64  `yaml:"masterTempo" json:"masterTempo"`
		MasterVolume float64  `yaml:"masterVolume" json:"masterVolume"`
		Sync         SyncMode `yaml:"sync" json:"sync"`

		Songs []PresetSong `yaml:"songs" json:"songs"`
	}

	// PresetSong records one slot's mutable fields, keyed by the SlotID the
	// slot had when the snapshot was taken. On restore the id either still
	// resolves, in which case the fields are copied back, or it doesn't and
	// the entry is skipped. Position is recorded so a restore lands on the
	// same spot in every song.
	PresetSong struct {
		ID       SlotID `yaml:"id" json:"id"`
		SongName string `yaml:"songName" json:"songName"`

		Tempo      float64 `yaml:"tempo" json:"tempo"`
		TempoRatio float64 `yaml:"tempoRatio" json:"tempoRatio"`
		Volume     float64 `yaml:"volume" json:"volume"`

		Playing bool `yaml:"playing" json:"playing"`
		Muted   bool `yaml:"muted" json:"muted"`
		Soloed  bool `yaml:"soloed" json:"soloed"`

		LoopEnabled bool    `yaml:"loopEnabled" json:"loopEnabled"`
		LoopStart   float64 `yaml:"loopStart" json:"loopStart"`
		LoopEnd     float64 `yaml:"loopEnd" json:"loopEnd"`

		Position float64 `yaml:"position" json:"position"`
	}
)

// Copy returns a deep copy of the preset.
func (p *Preset) Copy() Preset {
	ret := *p
	ret.Songs = make([]PresetSong, len(p.Songs))
	copy(ret.Songs, p.Songs)
	return ret
}

// FindSong returns the recorded entry for the given slot, if the preset has
// one.
func (p *Preset) FindSong(id SlotID) (PresetSong, bool) {
	for _, s := range p.Songs {
		if s.ID == id {
			return s, true
		}
	}
	return PresetSong{}, false
}
