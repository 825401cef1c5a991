// Package midi turns MIDI input into engine mutations. The driver delivers
// messages on its own goroutine, so nothing here touches the engine
// directly: each message becomes an Action on a buffered channel, and the
// owner of the engine's single-writer loop receives and applies them there.
// A full channel drops the action rather than blocking the driver.
package midi

import (
	"github.com/meterbridge/jamdeck"
	"github.com/meterbridge/jamdeck/engine"
)

// Remote is a source of engine actions. The rtmididrv-backed implementation
// needs cgo; NullRemote serves builds and machines without it.
type Remote interface {
	// Actions is the channel the owning loop drains.
	Actions() <-chan Action
	Close()
}

// Action is one remote-control gesture, applied on the engine's goroutine.
type Action interface {
	Apply(e *engine.Engine)
}

// NullRemote is a Remote with no input behind it.
type NullRemote struct{}

func (NullRemote) Actions() <-chan Action { return nil }
func (NullRemote) Close()                 {}

// The control-change mapping. Controllers 16..23 address songs by display
// index, as do notes from NoteBase up.
const (
	ccMasterTempo  = 1   // mod wheel
	ccMasterVolume = 7   // channel volume
	ccSyncMode     = 80  // 0..41 independent, 42..83 locked, 84..127 ratio
	ccMasterPlay   = 85  // any value > 0 toggles
	ccPanic        = 123 // all notes off
	ccSongVolume   = 16  // 16..23, song index 0..7

	// NoteBase is the note that toggles the first song; each semitone up is
	// the next display index.
	NoteBase = 36
)

type (
	// MasterTempoAction scales a 0..127 controller onto the tempo range.
	MasterTempoAction struct{ Value uint8 }

	MasterVolumeAction struct{ Value uint8 }

	SyncModeAction struct{ Mode jamdeck.SyncMode }

	ToggleMasterAction struct{}

	EmergencyStopAction struct{}

	// ToggleSongAction and SongVolumeAction address songs by display index,
	// resolved against the registry at apply time; an index with no song is
	// a no-op, same as every stale-id gesture.
	ToggleSongAction struct{ Index int }

	SongVolumeAction struct {
		Index int
		Value uint8
	}
)

func (a MasterTempoAction) Apply(e *engine.Engine) {
	t := jamdeck.TempoMin + float64(a.Value)/127*(jamdeck.TempoMax-jamdeck.TempoMin)
	e.Tempo().SetMaster(t)
}

func (a MasterVolumeAction) Apply(e *engine.Engine) {
	e.Mixer().SetMasterVolume(float64(a.Value) / 127)
}

func (a SyncModeAction) Apply(e *engine.Engine) {
	e.Tempo().SetMode(a.Mode)
}

func (ToggleMasterAction) Apply(e *engine.Engine) {
	e.Transport().ToggleMaster()
}

func (EmergencyStopAction) Apply(e *engine.Engine) {
	e.Transport().EmergencyStop()
}

func (a ToggleSongAction) Apply(e *engine.Engine) {
	if id, ok := songAt(e, a.Index); ok {
		e.Transport().ToggleSong(id)
	}
}

func (a SongVolumeAction) Apply(e *engine.Engine) {
	if id, ok := songAt(e, a.Index); ok {
		e.Mixer().SetVolume(id, float64(a.Value)/127)
	}
}

func songAt(e *engine.Engine, index int) (jamdeck.SlotID, bool) {
	songs := e.Registry().Songs()
	if index < 0 || index >= len(songs) {
		return jamdeck.SlotID{}, false
	}
	return songs[index].ID, true
}

// Translate maps one control change to an action; ok is false for
// controllers outside the mapping.
func Translate(controller, value uint8) (Action, bool) {
	switch {
	case controller == ccMasterTempo:
		return MasterTempoAction{Value: value}, true
	case controller == ccMasterVolume:
		return MasterVolumeAction{Value: value}, true
	case controller == ccSyncMode:
		mode := jamdeck.SyncMode(int(value) / 42)
		if mode > jamdeck.SyncRatio {
			mode = jamdeck.SyncRatio
		}
		return SyncModeAction{Mode: mode}, true
	case controller == ccMasterPlay:
		if value == 0 {
			return nil, false
		}
		return ToggleMasterAction{}, true
	case controller == ccPanic:
		return EmergencyStopAction{}, true
	case controller >= ccSongVolume && controller < ccSongVolume+8:
		return SongVolumeAction{Index: int(controller - ccSongVolume), Value: value}, true
	}
	return nil, false
}

// TranslateNote maps a note-on to an action.
func TranslateNote(note uint8) (Action, bool) {
	if note < NoteBase {
		return nil, false
	}
	return ToggleSongAction{Index: int(note - NoteBase)}, true
}
