//go:build cgo

package midi

import (
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"go.uber.org/zap"
)

// RTMIDIRemote listens to one MIDI input through rtmididrv and translates
// its messages. The driver calls HandleMessage on its own goroutine; the
// translated actions cross to the engine's goroutine through the buffered
// channel, dropped when full.
type RTMIDIRemote struct {
	driver  *rtmididrv.Driver
	in      drivers.In
	actions chan Action
	log     *zap.Logger
}

// NewRemote opens the MIDI driver and the first input whose name starts
// with namePrefix (any input when the prefix is empty). A machine with no
// driver or no matching input still gets a working Remote; it just never
// produces actions.
func NewRemote(namePrefix string, log *zap.Logger) *RTMIDIRemote {
	if log == nil {
		log = zap.NewNop()
	}
	r := &RTMIDIRemote{
		actions: make(chan Action, 256),
		log:     log,
	}
	var err error
	if r.driver, err = rtmididrv.New(); err != nil {
		// no driver means no MIDI, not a fatal condition
		log.Warn("no MIDI driver available", zap.Error(err))
		return r
	}
	ins, err := r.driver.Ins()
	if err != nil {
		log.Warn("cannot list MIDI inputs", zap.Error(err))
		return r
	}
	for _, in := range ins {
		if namePrefix != "" && !strings.HasPrefix(in.String(), namePrefix) {
			continue
		}
		if err := in.Open(); err != nil {
			log.Warn("cannot open MIDI input", zap.String("port", in.String()), zap.Error(err))
			continue
		}
		if _, err := midi.ListenTo(in, r.handleMessage); err != nil {
			in.Close()
			log.Warn("cannot listen to MIDI input", zap.String("port", in.String()), zap.Error(err))
			continue
		}
		r.in = in
		log.Info("MIDI remote listening", zap.String("port", in.String()))
		break
	}
	if r.in == nil {
		log.Info("no MIDI input opened", zap.String("prefix", namePrefix))
	}
	return r
}

func (r *RTMIDIRemote) Actions() <-chan Action { return r.actions }

func (r *RTMIDIRemote) Close() {
	if r.in != nil && r.in.IsOpen() {
		r.in.Close()
	}
	if r.driver != nil {
		r.driver.Close()
	}
}

func (r *RTMIDIRemote) handleMessage(msg midi.Message, timestampms int32) {
	var channel, key, velocity, controller, value uint8
	var action Action
	var ok bool
	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		if velocity == 0 {
			return
		}
		action, ok = TranslateNote(key)
	case msg.GetControlChange(&channel, &controller, &value):
		action, ok = Translate(controller, value)
	}
	if !ok {
		return
	}
	select {
	case r.actions <- action:
	default:
		// full queue: drop, never block the driver callback
	}
}
