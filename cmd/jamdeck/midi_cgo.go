//go:build cgo

package main

import (
	"go.uber.org/zap"

	"github.com/meterbridge/jamdeck/config"
	"github.com/meterbridge/jamdeck/midi"
)

func newRemote(cfg config.MIDIConfig, log *zap.Logger) midi.Remote {
	if !cfg.Enabled {
		return midi.NullRemote{}
	}
	return midi.NewRemote(cfg.PortPrefix, log)
}
