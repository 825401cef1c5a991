package render

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meterbridge/jamdeck"
)

// Adapter is the control side of the reference AudioEngine. The engine calls
// it from its single-writer goroutine; every mutation becomes a non-blocking
// message to the render goroutine, and every Position call is an atomic read
// of the clock that goroutine publishes. The one thing Adapter keeps for
// itself is the handle table, guarded by a mutex so the device teardown in
// Stop can race nothing.
type Adapter struct {
	context    jamdeck.AudioContext
	broker     *broker
	mixer      *mixer
	log        *zap.Logger
	outputRate int

	mu      sync.Mutex
	clocks  map[jamdeck.Handle]*voiceClock
	playing jamdeck.CloserWaiter
	started bool
}

var _ jamdeck.AudioEngine = (*Adapter)(nil)

// NewAdapter builds an adapter that renders into the given context at the
// given output rate. A nil logger is replaced with a nop logger.
func NewAdapter(context jamdeck.AudioContext, outputRate int, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	b := newBroker()
	return &Adapter{
		context:    context,
		broker:     b,
		mixer:      newMixer(b, outputRate),
		log:        log,
		outputRate: outputRate,
		clocks:     make(map[jamdeck.Handle]*voiceClock),
	}
}

// Start begins pulling blocks from the mixer through the context.
func (a *Adapter) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return nil
	}
	if a.context == nil {
		return fmt.Errorf("starting render adapter: no audio context")
	}
	a.playing = a.context.Play(a.mixer.process)
	a.started = true
	a.log.Info("render adapter started", zap.Int("rate", a.outputRate))
	return nil
}

// Stop stops pulling. Voices stay loaded; Start picks them back up.
func (a *Adapter) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return
	}
	a.playing.Close()
	a.playing = nil
	a.started = false
	a.log.Info("render adapter stopped")
}

// Load registers a voice for the song and hands back its handle. The voice
// itself crosses to the render goroutine in the add message; the control
// side keeps only the shared clock.
func (a *Adapter) Load(song jamdeck.Song) (jamdeck.Handle, error) {
	if len(song.Samples) > 0 && song.SampleRate <= 0 {
		return "", fmt.Errorf("loading %q: samples without a sample rate", song.Name)
	}
	handle := jamdeck.Handle(uuid.New().String())
	clock := &voiceClock{}
	v := newVoice(handle, song, a.outputRate, clock)
	a.mu.Lock()
	a.clocks[handle] = clock
	a.mu.Unlock()
	a.send(mixerMsg{op: opAdd, handle: handle, voice: v})
	a.log.Debug("voice loaded",
		zap.String("handle", string(handle)),
		zap.String("name", song.Name),
		zap.Int("frames", len(song.Samples)))
	return handle, nil
}

func (a *Adapter) Unload(handle jamdeck.Handle) {
	a.mu.Lock()
	delete(a.clocks, handle)
	a.mu.Unlock()
	a.send(mixerMsg{op: opRemove, handle: handle})
}

func (a *Adapter) Play(handle jamdeck.Handle) {
	a.send(mixerMsg{op: opPlay, handle: handle})
}

func (a *Adapter) Pause(handle jamdeck.Handle) {
	a.send(mixerMsg{op: opPause, handle: handle})
}

// Seek stores the position on the shared clock right away, so a Position
// read between this call and the next rendered block already sees it.
func (a *Adapter) Seek(handle jamdeck.Handle, seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	a.mu.Lock()
	if clock, ok := a.clocks[handle]; ok {
		clock.store(seconds)
	}
	a.mu.Unlock()
	a.send(mixerMsg{op: opSeek, handle: handle, value: seconds})
}

func (a *Adapter) SetTempo(handle jamdeck.Handle, tempo float64) {
	a.send(mixerMsg{op: opTempo, handle: handle, value: tempo})
}

func (a *Adapter) SetVolume(handle jamdeck.Handle, volume float64) {
	a.send(mixerMsg{op: opVolume, handle: handle, value: volume})
}

func (a *Adapter) SetMuted(handle jamdeck.Handle, muted bool) {
	a.send(mixerMsg{op: opMuted, handle: handle, flag: muted})
}

func (a *Adapter) SetSoloed(handle jamdeck.Handle, soloed bool) {
	a.send(mixerMsg{op: opSoloed, handle: handle, flag: soloed})
}

func (a *Adapter) SetLoop(handle jamdeck.Handle, enabled bool, start, end float64) {
	a.send(mixerMsg{op: opLoop, handle: handle, flag: enabled, start: start, end: end})
}

func (a *Adapter) SetMasterVolume(volume float64) {
	a.send(mixerMsg{op: opMasterVolume, value: volume})
}

// Position reads the clock the render goroutine last published for the
// handle. Unknown handles read zero.
func (a *Adapter) Position(handle jamdeck.Handle) float64 {
	a.mu.Lock()
	clock, ok := a.clocks[handle]
	a.mu.Unlock()
	if !ok {
		return 0
	}
	return clock.load()
}

func (a *Adapter) send(msg mixerMsg) {
	if !a.broker.trySend(msg) {
		a.log.Warn("render queue full, message dropped",
			zap.String("handle", string(msg.handle)))
	}
}
