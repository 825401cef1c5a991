package engine_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/meterbridge/jamdeck"
	"github.com/meterbridge/jamdeck/engine"
)

// fakeAdapter records every primitive the engine forwards, and can be told
// to fail loads.
type fakeAdapter struct {
	loads     int
	failLoad  error
	calls     []string
	positions map[jamdeck.Handle]float64
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{positions: make(map[jamdeck.Handle]float64)}
}

func (a *fakeAdapter) record(format string, args ...any) {
	a.calls = append(a.calls, fmt.Sprintf(format, args...))
}

func (a *fakeAdapter) Start() error { a.record("start"); return nil }
func (a *fakeAdapter) Stop()        { a.record("stop") }

func (a *fakeAdapter) Load(song jamdeck.Song) (jamdeck.Handle, error) {
	if a.failLoad != nil {
		return "", a.failLoad
	}
	a.loads++
	h := jamdeck.Handle(fmt.Sprintf("h%d", a.loads))
	a.record("load %s", h)
	return h, nil
}

func (a *fakeAdapter) Unload(h jamdeck.Handle)         { a.record("unload %s", h) }
func (a *fakeAdapter) Play(h jamdeck.Handle)           { a.record("play %s", h) }
func (a *fakeAdapter) Pause(h jamdeck.Handle)          { a.record("pause %s", h) }
func (a *fakeAdapter) Seek(h jamdeck.Handle, s float64) {
	a.positions[h] = s
	a.record("seek %s %.2f", h, s)
}
func (a *fakeAdapter) SetTempo(h jamdeck.Handle, v float64)  { a.record("tempo %s %.2f", h, v) }
func (a *fakeAdapter) SetVolume(h jamdeck.Handle, v float64) { a.record("volume %s %.2f", h, v) }
func (a *fakeAdapter) SetMuted(h jamdeck.Handle, m bool)     { a.record("muted %s %t", h, m) }
func (a *fakeAdapter) SetSoloed(h jamdeck.Handle, s bool)    { a.record("soloed %s %t", h, s) }
func (a *fakeAdapter) SetLoop(h jamdeck.Handle, e bool, s, n float64) {
	a.record("loop %s %t %.2f %.2f", h, e, s, n)
}
func (a *fakeAdapter) SetMasterVolume(v float64) { a.record("master volume %.2f", v) }
func (a *fakeAdapter) Position(h jamdeck.Handle) float64 {
	return a.positions[h]
}

func newTestEngine(t *testing.T, songs int) (*engine.Engine, []jamdeck.SlotID, *fakeAdapter) {
	t.Helper()
	adapter := newFakeAdapter()
	e := engine.New(adapter, nil)
	ids := make([]jamdeck.SlotID, 0, songs)
	for i := 0; i < songs; i++ {
		id, err := e.Registry().AddSong(jamdeck.Song{
			Name:     fmt.Sprintf("song %d", i),
			Volume:   1.0,
			Duration: 60,
		})
		if err != nil {
			t.Fatalf("AddSong: %v", err)
		}
		ids = append(ids, id)
	}
	return e, ids, adapter
}

// checkInvariants asserts the properties that must hold after any sequence
// of operations.
func checkInvariants(t *testing.T, e *engine.Engine) {
	t.Helper()
	state := e.State()
	if state.MasterTempo < jamdeck.TempoMin || state.MasterTempo > jamdeck.TempoMax {
		t.Errorf("master tempo %v out of range", state.MasterTempo)
	}
	if state.MasterVolume < 0 || state.MasterVolume > 1 {
		t.Errorf("master volume %v out of range", state.MasterVolume)
	}
	solos := 0
	seen := make(map[jamdeck.SlotID]bool)
	for _, s := range state.Songs {
		if seen[s.ID] {
			t.Errorf("duplicate slot id %v", s.ID)
		}
		seen[s.ID] = true
		if s.Tempo < jamdeck.TempoMin || s.Tempo > jamdeck.TempoMax {
			t.Errorf("song %v tempo %v out of range", s.ID, s.Tempo)
		}
		if s.Volume < 0 || s.Volume > 1 {
			t.Errorf("song %v volume %v out of range", s.ID, s.Volume)
		}
		if s.LoopEnd < s.LoopStart {
			t.Errorf("song %v loop end %v before start %v", s.ID, s.LoopEnd, s.LoopStart)
		}
		if s.Soloed {
			solos++
		}
		switch state.Sync {
		case jamdeck.SyncLocked:
			if s.Tempo != state.MasterTempo {
				t.Errorf("locked mode: song %v tempo %v != master %v", s.ID, s.Tempo, state.MasterTempo)
			}
		case jamdeck.SyncRatio:
			want := jamdeck.ClampTempo(state.MasterTempo * s.TempoRatio)
			if s.Tempo != want {
				t.Errorf("ratio mode: song %v tempo %v != derived %v", s.ID, s.Tempo, want)
			}
		}
	}
	if solos > 1 {
		t.Errorf("%d songs soloed at once", solos)
	}
}

func TestAddSongsAssignsDistinctIDs(t *testing.T) {
	e, ids, _ := newTestEngine(t, 6)
	if got := e.Stats().SongCount(); got != 6 {
		t.Fatalf("SongCount = %d, want 6", got)
	}
	seen := make(map[jamdeck.SlotID]bool)
	for _, id := range ids {
		if seen[id] {
			t.Errorf("id %v assigned twice", id)
		}
		seen[id] = true
	}
	checkInvariants(t, e)
}

func TestAddSongLoadFailure(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.failLoad = errors.New("device gone")
	e := engine.New(adapter, nil)
	if _, err := e.Registry().AddSong(jamdeck.Song{Name: "x"}); err == nil {
		t.Fatal("want error from failed load")
	}
	if e.Stats().SongCount() != 0 {
		t.Error("failed load must register nothing")
	}
}

func TestRatioModeDerivation(t *testing.T) {
	adapter := newFakeAdapter()
	e := engine.New(adapter, nil)
	ratios := []float64{0.5, 1.0, 2.0}
	ids := make([]jamdeck.SlotID, len(ratios))
	for i, r := range ratios {
		id, err := e.Registry().AddSong(jamdeck.Song{Name: "s", TempoRatio: r, Volume: 1})
		if err != nil {
			t.Fatal(err)
		}
		ids[i] = id
	}
	e.Tempo().SetMode(jamdeck.SyncRatio)
	e.Tempo().SetMaster(1.5)
	want := []float64{0.75, 1.5, 2.0} // last clamped from 3.0
	for i, id := range ids {
		song, _ := e.Registry().Song(id)
		if song.Tempo != want[i] {
			t.Errorf("song %d tempo = %v, want %v", i, song.Tempo, want[i])
		}
	}
	checkInvariants(t, e)
}

func TestLockedModeFollowsMaster(t *testing.T) {
	e, ids, _ := newTestEngine(t, 3)
	e.Tempo().SetMode(jamdeck.SyncLocked)
	e.Tempo().SetMaster(1.75)
	for _, id := range ids {
		song, _ := e.Registry().Song(id)
		if song.Tempo != 1.75 {
			t.Errorf("song %v tempo = %v, want 1.75", id, song.Tempo)
		}
	}
	checkInvariants(t, e)
}

func TestIndependentModeKeepsTempos(t *testing.T) {
	e, ids, _ := newTestEngine(t, 2)
	e.Tempo().Set(ids[0], 0.8)
	e.Tempo().Set(ids[1], 1.6)
	e.Tempo().SetMaster(2.0) // no song moves in independent mode
	a, _ := e.Registry().Song(ids[0])
	b, _ := e.Registry().Song(ids[1])
	if a.Tempo != 0.8 || b.Tempo != 1.6 {
		t.Errorf("tempos = %v, %v; want 0.8, 1.6", a.Tempo, b.Tempo)
	}
	// entering locked overwrites, leaving for independent keeps the result
	e.Tempo().SetMode(jamdeck.SyncLocked)
	e.Tempo().SetMode(jamdeck.SyncIndependent)
	a, _ = e.Registry().Song(ids[0])
	if a.Tempo != 2.0 {
		t.Errorf("tempo after locked round trip = %v, want 2.0", a.Tempo)
	}
	checkInvariants(t, e)
}

func TestPerSongTempoIgnoredOutsideIndependent(t *testing.T) {
	for _, mode := range []jamdeck.SyncMode{jamdeck.SyncLocked, jamdeck.SyncRatio} {
		t.Run(mode.String(), func(t *testing.T) {
			e, ids, _ := newTestEngine(t, 1)
			e.Tempo().SetMaster(1.5)
			e.Tempo().SetMode(mode)
			before, _ := e.Registry().Song(ids[0])
			e.Tempo().Set(ids[0], 0.6)
			after, _ := e.Registry().Song(ids[0])
			if after.Tempo != before.Tempo {
				t.Errorf("tempo moved from %v to %v in %v mode", before.Tempo, after.Tempo, mode)
			}
			checkInvariants(t, e)
		})
	}
}

func TestTempoClamping(t *testing.T) {
	e, ids, _ := newTestEngine(t, 1)
	for _, tc := range []struct {
		in, want float64
	}{
		{0.2, 0.5},
		{3.0, 2.0},
		{1.3, 1.3},
	} {
		e.Tempo().Set(ids[0], tc.in)
		song, _ := e.Registry().Song(ids[0])
		if song.Tempo != tc.want {
			t.Errorf("Set(%v): tempo = %v, want %v", tc.in, song.Tempo, tc.want)
		}
	}
	e.Tempo().SetMaster(9.9)
	if got := e.Tempo().Master(); got != 2.0 {
		t.Errorf("SetMaster(9.9): master = %v, want 2.0", got)
	}
	e.Tempo().SetMaster(-1)
	if got := e.Tempo().Master(); got != 0.5 {
		t.Errorf("SetMaster(-1): master = %v, want 0.5", got)
	}
}

func TestAddSongUnderActiveMode(t *testing.T) {
	e, _, _ := newTestEngine(t, 1)
	e.Tempo().SetMaster(1.75)
	e.Tempo().SetMode(jamdeck.SyncLocked)
	id, err := e.Registry().AddSong(jamdeck.Song{Name: "late", Volume: 1})
	if err != nil {
		t.Fatal(err)
	}
	song, _ := e.Registry().Song(id)
	if song.Tempo != 1.75 {
		t.Errorf("song added in locked mode has tempo %v, want 1.75", song.Tempo)
	}
	checkInvariants(t, e)
}

func TestSoloExclusivity(t *testing.T) {
	e, ids, _ := newTestEngine(t, 3)
	e.Mixer().ToggleSolo(ids[0])
	e.Mixer().ToggleSolo(ids[1])
	a, _ := e.Registry().Song(ids[0])
	b, _ := e.Registry().Song(ids[1])
	if a.Soloed {
		t.Error("first song still soloed after soloing the second")
	}
	if !b.Soloed {
		t.Error("second song not soloed")
	}
	// toggling the soloed song off leaves no solo
	e.Mixer().ToggleSolo(ids[1])
	b, _ = e.Registry().Song(ids[1])
	if b.Soloed {
		t.Error("solo not cleared by second toggle")
	}
	checkInvariants(t, e)
}

func TestMuteIndependentOfSolo(t *testing.T) {
	e, ids, _ := newTestEngine(t, 2)
	e.Mixer().ToggleMute(ids[0])
	e.Mixer().ToggleSolo(ids[0])
	song, _ := e.Registry().Song(ids[0])
	if !song.Muted || !song.Soloed {
		t.Errorf("muted=%t soloed=%t, want both true", song.Muted, song.Soloed)
	}
	e.Mixer().ToggleMute(ids[0])
	song, _ = e.Registry().Song(ids[0])
	if song.Muted || !song.Soloed {
		t.Errorf("unmuting cleared solo: muted=%t soloed=%t", song.Muted, song.Soloed)
	}
}

func TestVolumeClamping(t *testing.T) {
	e, ids, _ := newTestEngine(t, 1)
	e.Mixer().SetVolume(ids[0], 1.8)
	song, _ := e.Registry().Song(ids[0])
	if song.Volume != 1.0 {
		t.Errorf("volume = %v, want 1.0", song.Volume)
	}
	e.Mixer().SetVolume(ids[0], -0.3)
	song, _ = e.Registry().Song(ids[0])
	if song.Volume != 0.0 {
		t.Errorf("volume = %v, want 0.0", song.Volume)
	}
	e.Mixer().SetMasterVolume(7)
	if got := e.Mixer().MasterVolume(); got != 1.0 {
		t.Errorf("master volume = %v, want 1.0", got)
	}
}

func TestLoopPointsSilentlyCorrected(t *testing.T) {
	e, ids, _ := newTestEngine(t, 1)
	e.Loop().SetPoints(ids[0], 10, 4)
	song, _ := e.Registry().Song(ids[0])
	if song.LoopStart != 10 || song.LoopEnd != 10 {
		t.Errorf("loop = [%v, %v], want [10, 10]", song.LoopStart, song.LoopEnd)
	}
	e.Loop().SetPoints(ids[0], -2, 8)
	song, _ = e.Registry().Song(ids[0])
	if song.LoopStart != 0 || song.LoopEnd != 8 {
		t.Errorf("loop = [%v, %v], want [0, 8]", song.LoopStart, song.LoopEnd)
	}
	e.Loop().Toggle(ids[0])
	song, _ = e.Registry().Song(ids[0])
	if !song.LoopEnabled {
		t.Error("loop not enabled by toggle")
	}
	checkInvariants(t, e)
}

func TestMasterTransportBroadcast(t *testing.T) {
	e, ids, _ := newTestEngine(t, 3)
	e.Transport().ToggleMaster()
	if !e.Transport().Playing() {
		t.Fatal("master not playing after toggle")
	}
	for _, id := range ids {
		song, _ := e.Registry().Song(id)
		if !song.Playing {
			t.Errorf("song %v not playing after master toggle", id)
		}
	}
	e.Transport().ToggleMaster()
	for _, id := range ids {
		song, _ := e.Registry().Song(id)
		if song.Playing {
			t.Errorf("song %v still playing after master off", id)
		}
	}
}

func TestToggleSongLeavesOthersAlone(t *testing.T) {
	e, ids, _ := newTestEngine(t, 2)
	e.Transport().ToggleSong(ids[0])
	a, _ := e.Registry().Song(ids[0])
	b, _ := e.Registry().Song(ids[1])
	if !a.Playing || b.Playing {
		t.Errorf("playing = %t, %t; want true, false", a.Playing, b.Playing)
	}
	if e.Transport().Playing() {
		t.Error("per-song toggle must not flip master")
	}
}

func TestEmergencyStop(t *testing.T) {
	e, ids, adapter := newTestEngine(t, 3)
	e.Transport().ToggleMaster()
	for _, id := range ids {
		e.Transport().Seek(id, 12.5)
	}
	e.Transport().EmergencyStop()
	if e.Transport().Playing() {
		t.Error("master still playing after emergency stop")
	}
	for _, id := range ids {
		song, _ := e.Registry().Song(id)
		if song.Playing {
			t.Errorf("song %v playing after emergency stop", id)
		}
		if song.Position != 0 {
			t.Errorf("song %v position %v, want 0", id, song.Position)
		}
	}
	// idempotent: a second stop changes nothing
	before := e.State()
	e.Transport().EmergencyStop()
	after := e.State()
	if fmt.Sprint(before) != fmt.Sprint(after) {
		t.Error("second emergency stop changed state")
	}
	_ = adapter
}

func TestRemoveSong(t *testing.T) {
	e, ids, _ := newTestEngine(t, 3)
	e.Registry().RemoveSong(ids[1])
	if got := e.Stats().SongCount(); got != 2 {
		t.Fatalf("SongCount = %d, want 2", got)
	}
	if _, ok := e.Registry().Song(ids[1]); ok {
		t.Error("removed song still resolves")
	}
	// removing again is a no-op
	e.Registry().RemoveSong(ids[1])
	if got := e.Stats().SongCount(); got != 2 {
		t.Errorf("SongCount after double remove = %d, want 2", got)
	}
	// display order preserved
	songs := e.Registry().Songs()
	if songs[0].ID != ids[0] || songs[1].ID != ids[2] {
		t.Error("display order broken by removal")
	}
}

func TestStaleIDNeverResolvesAfterReuse(t *testing.T) {
	e, ids, _ := newTestEngine(t, 1)
	stale := ids[0]
	e.Registry().RemoveSong(stale)
	id2, err := e.Registry().AddSong(jamdeck.Song{Name: "reuse", Volume: 1})
	if err != nil {
		t.Fatal(err)
	}
	if id2 == stale {
		t.Fatal("slot id reused")
	}
	if _, ok := e.Registry().Song(stale); ok {
		t.Error("stale id resolves to the new occupant")
	}
	// stale-id mutations are no-ops, not writes to the new song
	e.Mixer().ToggleMute(stale)
	song, _ := e.Registry().Song(id2)
	if song.Muted {
		t.Error("stale id mutation hit the new occupant")
	}
}

func TestRemoveAllSongs(t *testing.T) {
	e, _, _ := newTestEngine(t, 4)
	e.Transport().ToggleMaster()
	e.Registry().RemoveAllSongs()
	if got := e.Stats().SongCount(); got != 0 {
		t.Errorf("SongCount = %d, want 0", got)
	}
	if e.Transport().Playing() {
		t.Error("master playing with no songs loaded")
	}
}

func TestUnknownIDOperationsAreNoOps(t *testing.T) {
	e, _, _ := newTestEngine(t, 1)
	ghost := jamdeck.SlotID{Index: 99, Gen: 7}
	before := e.State()
	e.Tempo().Set(ghost, 1.5)
	e.Tempo().SetRatio(ghost, 2)
	e.Mixer().SetVolume(ghost, 0.5)
	e.Mixer().ToggleMute(ghost)
	e.Mixer().ToggleSolo(ghost)
	e.Loop().Toggle(ghost)
	e.Loop().SetPoints(ghost, 1, 2)
	e.Transport().ToggleSong(ghost)
	e.Transport().Seek(ghost, 3)
	after := e.State()
	if fmt.Sprint(before) != fmt.Sprint(after) {
		t.Error("unknown-id operation mutated state")
	}
}

func TestStats(t *testing.T) {
	adapter := newFakeAdapter()
	e := engine.New(adapter, nil)
	if got := e.Stats().MemoryUsage(); got != 0 {
		t.Errorf("memory usage with no songs = %d, want 0", got)
	}
	var last int64
	for i := 0; i < 3; i++ {
		if _, err := e.Registry().AddSong(jamdeck.Song{Name: "s", Duration: 30, Volume: 1}); err != nil {
			t.Fatal(err)
		}
		usage := e.Stats().MemoryUsage()
		if usage <= last {
			t.Errorf("memory usage %d not above previous %d after add", usage, last)
		}
		last = usage
	}
}

func TestSyncPositions(t *testing.T) {
	e, ids, adapter := newTestEngine(t, 2)
	state := e.State()
	adapter.positions[jamdeck.Handle("h1")] = 4.5
	adapter.positions[jamdeck.Handle("h2")] = 9.25
	e.SyncPositions()
	a, _ := e.Registry().Song(ids[0])
	b, _ := e.Registry().Song(ids[1])
	if a.Position != 4.5 || b.Position != 9.25 {
		t.Errorf("positions = %v, %v; want 4.5, 9.25", a.Position, b.Position)
	}
	// the earlier snapshot is a copy, untouched by the sync
	if state.Songs[0].Position != 0 {
		t.Error("State snapshot aliased live state")
	}
}

func TestEngineStartStopIdempotent(t *testing.T) {
	adapter := newFakeAdapter()
	e := engine.New(adapter, nil)
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	e.Stop()
	e.Stop()
	starts, stops := 0, 0
	for _, c := range adapter.calls {
		switch c {
		case "start":
			starts++
		case "stop":
			stops++
		}
	}
	if starts != 1 || stops != 1 {
		t.Errorf("adapter saw %d starts, %d stops; want 1, 1", starts, stops)
	}
}

func TestEventsPublished(t *testing.T) {
	e, ids, _ := newTestEngine(t, 1)
	// drain whatever the setup produced
	for len(e.Events()) > 0 {
		<-e.Events()
	}
	e.Mixer().ToggleMute(ids[0])
	select {
	case ev := <-e.Events():
		if ev.Kind != engine.EventMix {
			t.Errorf("event kind = %v, want %v", ev.Kind, engine.EventMix)
		}
		if ev.Slot != ids[0] {
			t.Errorf("event slot = %v, want %v", ev.Slot, ids[0])
		}
	default:
		t.Fatal("no event published")
	}
}
