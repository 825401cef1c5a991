package jamdeck

import (
	"errors"
	"fmt"
)

type (
	// Song is the load-time descriptor handed to AddSong. It carries what the
	// engine needs to register a slot and what the adapter needs to render
	// it. Samples are optional; a Song without them still gets a position
	// clock driven by Duration, so the engine is fully drivable headless.
	Song struct {
		// Name is the display name, arbitrary and mutable; nothing in the
		// engine keys on it.
		Name string `yaml:"name" json:"name"`

		// Path is where the audio came from, informational only. The engine
		// never opens it; loading samples is the caller's job.
		Path string `yaml:"path,omitempty" json:"path,omitempty"`

		// TempoRatio is the song's tempo multiplier relative to the master,
		// applied only in ratio sync mode. Values <= 0 fall back to 1.0.
		TempoRatio float64 `yaml:"tempoRatio,omitempty" json:"tempoRatio,omitempty"`

		// Volume is the initial per-song volume, clamped to [0, 1] on load.
		Volume float64 `yaml:"volume" json:"volume"`

		// Duration in seconds, used for the position clock when Samples are
		// absent. With samples present the sample count wins.
		Duration float64 `yaml:"duration,omitempty" json:"duration,omitempty"`

		// SampleRate of Samples, frames per second.
		SampleRate int `yaml:"sampleRate,omitempty" json:"sampleRate,omitempty"`

		// Samples is the decoded stereo audio. Never serialized; presets and
		// song descriptors carry metadata only.
		Samples AudioBuffer `yaml:"-" json:"-"`
	}

	// SlotID is the generation-checked handle of one loaded SongSlot. The
	// registry is an arena of slot records; removing a song frees its record
	// and bumps the record's generation, so a SlotID held across a removal
	// can never resolve to a record that was reused for a later song. The
	// zero SlotID is never valid: generations start at 1.
	SlotID struct {
		Index uint32 `yaml:"index" json:"index"`
		Gen   uint32 `yaml:"gen" json:"gen"`
	}

	// SongSlot is the canonical state of one loaded song player. The engine
	// owns the live value; accessors hand out copies, so a caller can never
	// mutate engine state behind the controllers' backs.
	SongSlot struct {
		ID       SlotID `yaml:"id" json:"id"`
		SongName string `yaml:"songName" json:"songName"`

		// Tempo is the effective playback-rate multiplier, always within
		// [TempoMin, TempoMax]. Out-of-range writes clamp, never reject.
		Tempo float64 `yaml:"tempo" json:"tempo"`

		// TempoRatio is the multiplier relative to the master tempo, the
		// source of truth for this slot's tempo while in ratio mode.
		TempoRatio float64 `yaml:"tempoRatio" json:"tempoRatio"`

		Volume float64 `yaml:"volume" json:"volume"`

		Playing bool `yaml:"playing" json:"playing"`
		Muted   bool `yaml:"muted" json:"muted"`

		// Soloed is exclusive: at most one slot in the registry has it set.
		Soloed bool `yaml:"soloed" json:"soloed"`

		LoopEnabled bool `yaml:"loopEnabled" json:"loopEnabled"`

		// LoopStart and LoopEnd are seconds; LoopEnd >= LoopStart holds after
		// every mutation.
		LoopStart float64 `yaml:"loopStart" json:"loopStart"`
		LoopEnd   float64 `yaml:"loopEnd" json:"loopEnd"`

		// Position is seconds into the song, owned by the adapter's playback
		// clock and pulled in by SyncPositions; emergency stop resets it.
		Position float64 `yaml:"position" json:"position"`
	}

	// EngineState is a point-in-time snapshot of the whole engine, deep
	// enough that the caller can render or serialize it without holding any
	// reference into live state.
	EngineState struct {
		Songs []SongSlot `yaml:"songs" json:"songs"`

		// MasterPlaying is true iff the last master transport command was
		// "play all".
		MasterPlaying bool `yaml:"masterPlaying" json:"masterPlaying"`

		MasterTempo  float64  `yaml:"masterTempo" json:"masterTempo"`
		MasterVolume float64  `yaml:"masterVolume" json:"masterVolume"`
		Sync         SyncMode `yaml:"sync" json:"sync"`
	}
)

// SyncMode governs how each song's tempo derives from the master tempo. In
// SyncIndependent each song's tempo stands alone; in SyncLocked every song
// follows the master exactly; in SyncRatio every song follows master times
// its own TempoRatio, clamped to the tempo range.
type SyncMode int

const (
	SyncIndependent SyncMode = iota
	SyncLocked
	SyncRatio
)

var syncModeNames = [...]string{"independent", "locked", "ratio"}

// Valid reports whether the mode is one of the three defined modes.
func (m SyncMode) Valid() bool {
	return m >= SyncIndependent && m <= SyncRatio
}

func (m SyncMode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("SyncMode(%d)", int(m))
	}
	return syncModeNames[m]
}

// ParseSyncMode converts the wire form back to a SyncMode.
func ParseSyncMode(s string) (SyncMode, error) {
	for i, name := range syncModeNames {
		if s == name {
			return SyncMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown sync mode %q", s)
}

func (m SyncMode) MarshalYAML() (any, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid sync mode %d", int(m))
	}
	return m.String(), nil
}

func (m *SyncMode) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	mode, err := ParseSyncMode(s)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

func (m SyncMode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid sync mode %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *SyncMode) UnmarshalText(text []byte) error {
	mode, err := ParseSyncMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// IsValid reports whether the id could ever have been issued by a registry.
func (id SlotID) IsValid() bool { return id.Gen > 0 }

func (id SlotID) String() string {
	return fmt.Sprintf("%d.%d", id.Index, id.Gen)
}

// Ratio returns the effective tempo ratio, substituting 1.0 for the unset /
// nonsensical values a descriptor from disk may carry.
func (s *Song) Ratio() float64 {
	if s.TempoRatio <= 0 {
		return 1.0
	}
	return s.TempoRatio
}

// Frames returns the length of the song in sample frames at the given output
// rate: the sample count when samples are present, otherwise derived from
// Duration.
func (s *Song) Frames(outputRate int) int {
	if len(s.Samples) > 0 {
		return len(s.Samples)
	}
	return int(s.Duration * float64(outputRate))
}

// Validate checks a descriptor loaded from disk before it reaches the engine.
func (s *Song) Validate() error {
	if s.Name == "" {
		return errors.New("song has no name")
	}
	if s.Duration < 0 {
		return fmt.Errorf("song %q has negative duration", s.Name)
	}
	if len(s.Samples) > 0 && s.SampleRate <= 0 {
		return fmt.Errorf("song %q has samples but no sample rate", s.Name)
	}
	return nil
}

// Copy returns a deep copy of the slot. SongSlot has no reference fields
// today, so this is a plain value copy kept as a method so callers don't
// depend on that staying true.
func (s *SongSlot) Copy() SongSlot {
	return *s
}

// Copy returns a deep copy of the state.
func (s *EngineState) Copy() EngineState {
	ret := *s
	ret.Songs = make([]SongSlot, len(s.Songs))
	for i := range s.Songs {
		ret.Songs[i] = s.Songs[i].Copy()
	}
	return ret
}
