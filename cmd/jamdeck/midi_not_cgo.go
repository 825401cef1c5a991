//go:build !cgo

package main

import (
	"go.uber.org/zap"

	"github.com/meterbridge/jamdeck/config"
	"github.com/meterbridge/jamdeck/midi"
)

func newRemote(cfg config.MIDIConfig, log *zap.Logger) midi.Remote {
	// without cgo there is no rtmidi driver; the deck still runs, just
	// without the remote
	if cfg.Enabled {
		log.Warn("MIDI enabled in config but this build has no cgo")
	}
	return midi.NullRemote{}
}
