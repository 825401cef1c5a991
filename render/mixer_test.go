package render

import (
	"math"
	"testing"

	"github.com/meterbridge/jamdeck"
)

const testRate = 1000 // low rate keeps the frame math readable

// rampSong returns a song whose left channel counts frames: sample i has
// value i/length, so reads reveal the head position.
func rampSong(frames int) jamdeck.Song {
	samples := make(jamdeck.AudioBuffer, frames)
	for i := range samples {
		v := float32(i) / float32(frames)
		samples[i] = [2]float32{v, -v}
	}
	return jamdeck.Song{Name: "ramp", SampleRate: testRate, Samples: samples, Volume: 1}
}

func testMixer(songs ...jamdeck.Song) (*mixer, []*voice) {
	b := newBroker()
	m := newMixer(b, testRate)
	voices := make([]*voice, len(songs))
	for i, song := range songs {
		v := newVoice(jamdeck.Handle(song.Name), song, testRate, &voiceClock{})
		m.voices = append(m.voices, v)
		voices[i] = v
	}
	return m, voices
}

func processFrames(t *testing.T, m *mixer, frames int) jamdeck.AudioBuffer {
	t.Helper()
	buf := make(jamdeck.AudioBuffer, frames)
	if err := m.process(buf); err != nil {
		t.Fatalf("process: %v", err)
	}
	return buf
}

func TestVarispeedAdvance(t *testing.T) {
	for _, tc := range []struct {
		tempo    float64
		frames   int
		wantHead float64
	}{
		{1.0, 100, 100},
		{2.0, 100, 200},
		{0.5, 100, 50},
	} {
		m, voices := testMixer(rampSong(1000))
		v := voices[0]
		v.playing = true
		v.tempo = tc.tempo
		processFrames(t, m, tc.frames)
		if v.head != tc.wantHead {
			t.Errorf("tempo %v: head = %v after %d frames, want %v", tc.tempo, v.head, tc.frames, tc.wantHead)
		}
		if got := v.clock.load(); got != tc.wantHead/testRate {
			t.Errorf("tempo %v: clock = %v, want %v", tc.tempo, got, tc.wantHead/testRate)
		}
	}
}

func TestPausedVoiceDoesNotAdvance(t *testing.T) {
	m, voices := testMixer(rampSong(1000))
	processFrames(t, m, 100)
	if voices[0].head != 0 {
		t.Errorf("paused voice advanced to %v", voices[0].head)
	}
}

func TestLoopWrap(t *testing.T) {
	m, voices := testMixer(rampSong(1000))
	v := voices[0]
	v.playing = true
	v.setLoop(true, 0.1, 0.2) // frames 100..200 at the test rate
	v.seek(0.19)
	processFrames(t, m, 50)
	if v.head < 100 || v.head >= 200 {
		t.Errorf("head = %v, want inside the loop window [100, 200)", v.head)
	}
}

func TestEOFPinsAndSilences(t *testing.T) {
	m, voices := testMixer(rampSong(200))
	v := voices[0]
	v.playing = true
	v.seek(0.15) // frame 150 of 200
	buf := processFrames(t, m, 100)
	if v.head != 200 {
		t.Errorf("head = %v, want pinned at 200", v.head)
	}
	if !v.playing {
		t.Error("EOF must not flip the playing flag; that belongs to the engine")
	}
	// frames past the end are silent
	if got := buf[80][0]; got != 0 {
		t.Errorf("frame past EOF = %v, want 0", got)
	}
	// and the voice stays silent on later blocks
	buf = processFrames(t, m, 10)
	for i := range buf {
		if buf[i][0] != 0 {
			t.Fatalf("voice still audible after EOF at frame %d", i)
		}
	}
}

func TestClocklessSongStillAdvances(t *testing.T) {
	song := jamdeck.Song{Name: "silent", Duration: 2}
	m, voices := testMixer(song)
	v := voices[0]
	v.playing = true
	buf := processFrames(t, m, 500)
	if got := v.clock.load(); got != 0.5 {
		t.Errorf("clock = %v, want 0.5", got)
	}
	for i := range buf {
		if buf[i][0] != 0 || buf[i][1] != 0 {
			t.Fatal("sampleless song produced audio")
		}
	}
}

func TestGainMuteAndSolo(t *testing.T) {
	m, voices := testMixer(rampSong(1000), rampSong(1000))
	a, b := voices[0], voices[1]
	if g := m.gain(a, false); g != 1.0 {
		t.Errorf("plain gain = %v, want 1", g)
	}
	a.muted = true
	if g := m.gain(a, false); g != 0 {
		t.Errorf("muted gain = %v, want 0", g)
	}
	a.muted = false
	b.soloed = true
	if g := m.gain(a, true); g != 0 {
		t.Errorf("non-soloed gain with solo active = %v, want 0", g)
	}
	if g := m.gain(b, true); g != 1.0 {
		t.Errorf("soloed gain = %v, want 1", g)
	}
	// muted wins even when soloed
	b.muted = true
	if g := m.gain(b, true); g != 0 {
		t.Errorf("muted+soloed gain = %v, want 0", g)
	}
	a.volume = 0.25
	if g := m.gain(a, false); g != 0.25 {
		t.Errorf("volume gain = %v, want 0.25", g)
	}
}

func TestMasterVolumeAndClip(t *testing.T) {
	loud := jamdeck.Song{
		Name:       "loud",
		SampleRate: testRate,
		Volume:     1,
		Samples:    make(jamdeck.AudioBuffer, 100),
	}
	for i := range loud.Samples {
		loud.Samples[i] = [2]float32{0.9, 0.9}
	}
	m, voices := testMixer(loud, loud)
	for _, v := range voices {
		v.playing = true
	}
	buf := processFrames(t, m, 50)
	// two 0.9 voices sum to 1.8, the clip holds it at 1.0
	if got := buf[10][0]; got != 1.0 {
		t.Errorf("clipped sample = %v, want 1.0", got)
	}

	m2, voices2 := testMixer(loud, loud)
	for _, v := range voices2 {
		v.playing = true
	}
	m2.masterVolume = 0.5
	buf = processFrames(t, m2, 50)
	if got := buf[10][0]; math.Abs(float64(got)-0.9) > 1e-6 {
		t.Errorf("master-scaled sample = %v, want 0.9", got)
	}
}

func TestMessagesApplyAtBlockStart(t *testing.T) {
	b := newBroker()
	m := newMixer(b, testRate)
	song := rampSong(1000)
	clock := &voiceClock{}
	v := newVoice("h", song, testRate, clock)

	msgs := []mixerMsg{
		{op: opAdd, handle: "h", voice: v},
		{op: opPlay, handle: "h"},
		{op: opTempo, handle: "h", value: 2.0},
		{op: opVolume, handle: "h", value: 0.5},
		{op: opMuted, handle: "h", flag: true},
		{op: opLoop, handle: "h", flag: true, start: 0.0, end: 0.5},
		{op: opSeek, handle: "h", value: 0.1},
		{op: opMasterVolume, value: 0.75},
		{op: opSoloed, handle: "nobody", flag: true}, // unknown handle: dropped
	}
	for _, msg := range msgs {
		if !b.trySend(msg) {
			t.Fatal("queue full")
		}
	}
	processFrames(t, m, 10)
	if len(m.voices) != 1 {
		t.Fatalf("voices = %d, want 1", len(m.voices))
	}
	if !v.playing || v.tempo != 2.0 || v.volume != 0.5 || !v.muted || !v.loopEnabled {
		t.Errorf("voice state after messages: %+v", v)
	}
	if m.masterVolume != 0.75 {
		t.Errorf("master volume = %v, want 0.75", m.masterVolume)
	}
	// seek landed before the block rendered: head = 100 + 10 frames * 2.0
	if v.head != 120 {
		t.Errorf("head = %v, want 120", v.head)
	}

	if !b.trySend(mixerMsg{op: opRemove, handle: "h"}) {
		t.Fatal("queue full")
	}
	processFrames(t, m, 10)
	if len(m.voices) != 0 {
		t.Errorf("voices = %d after remove, want 0", len(m.voices))
	}
}

func TestTrySendNeverBlocks(t *testing.T) {
	b := newBroker()
	for i := 0; i < cap(b.toMixer); i++ {
		if !b.trySend(mixerMsg{op: opPlay}) {
			t.Fatalf("send %d failed below capacity", i)
		}
	}
	if b.trySend(mixerMsg{op: opPlay}) {
		t.Error("send into a full queue reported success")
	}
}
