package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meterbridge/jamdeck"
	"github.com/meterbridge/jamdeck/config"
	"github.com/meterbridge/jamdeck/engine"
	"github.com/meterbridge/jamdeck/oto"
	"github.com/meterbridge/jamdeck/render"
	"github.com/meterbridge/jamdeck/version"
)

var startPreset string

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Load the configured songs and run the deck until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()
		return runPlay(cfg, log)
	},
}

func init() {
	playCmd.Flags().StringVar(&startPreset, "preset", "", "preset to restore after loading")
}

func runPlay(cfg *config.Config, log *zap.Logger) error {
	log.Info("jamdeck", zap.String("version", version.VersionOrHash))

	var context jamdeck.AudioContext
	if cfg.Audio.Headless {
		context = render.NewNullContext(cfg.Audio.SampleRate, cfg.Audio.BufferFrames)
	} else {
		otoContext, err := oto.NewContext(cfg.Audio.SampleRate)
		if err != nil {
			return fmt.Errorf("opening audio device: %w", err)
		}
		context = otoContext
	}
	defer context.Close()

	adapter := render.NewAdapter(context, cfg.Audio.SampleRate, log)
	e := engine.New(adapter, log)
	if err := e.Start(); err != nil {
		return err
	}
	defer e.Stop()

	for _, sc := range cfg.Songs {
		song, err := loadSong(sc)
		if err != nil {
			log.Warn("skipping song", zap.String("name", sc.Name), zap.Error(err))
			continue
		}
		if _, err := e.Registry().AddSong(song); err != nil {
			log.Warn("skipping song", zap.String("name", sc.Name), zap.Error(err))
		}
	}

	bank := engine.LoadBank(cfg.Presets.Dir, log)
	if startPreset != "" {
		if preset, ok := bank.Find(startPreset); ok {
			e.Presets().Load(preset)
		} else {
			log.Warn("preset not found", zap.String("name", startPreset))
		}
	}

	remote := newRemote(cfg.MIDI, log)
	defer remote.Close()

	bankChanged := watchPresets(cfg, log)

	if !e.Transport().Playing() {
		e.Transport().ToggleMaster()
	}

	// Everything below mutates the engine, and it all happens on this one
	// goroutine: midi actions, position sync, preset reloads, shutdown.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	positions := time.NewTicker(time.Second / 30)
	defer positions.Stop()

	for {
		select {
		case <-sigs:
			log.Info("shutting down")
			e.Transport().EmergencyStop()
			return nil
		case action, ok := <-remote.Actions():
			if ok {
				action.Apply(e)
			}
		case <-bankChanged:
			bank.Reload()
		case <-positions.C:
			e.SyncPositions()
		}
	}
}

// loadSong turns a config entry into a descriptor, reading wav samples when
// a path is given.
func loadSong(sc config.SongConfig) (jamdeck.Song, error) {
	song := jamdeck.Song{
		Name:       sc.Name,
		Path:       sc.Path,
		TempoRatio: sc.TempoRatio,
		Volume:     sc.Volume,
		Duration:   sc.Duration,
	}
	if song.Name == "" && sc.Path != "" {
		base := filepath.Base(sc.Path)
		song.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if sc.Path != "" {
		data, err := os.ReadFile(sc.Path)
		if err != nil {
			return jamdeck.Song{}, fmt.Errorf("reading %s: %w", sc.Path, err)
		}
		samples, rate, err := render.ReadWav(data)
		if err != nil {
			return jamdeck.Song{}, fmt.Errorf("parsing %s: %w", sc.Path, err)
		}
		song.Samples = samples
		song.SampleRate = rate
		song.Duration = float64(len(samples)) / float64(rate)
	}
	return song, song.Validate()
}

// watchPresets sets up fsnotify on the preset directory when hot reload is
// on. The returned channel fires when the bank should re-walk; a nil channel
// (no watcher) just never fires.
func watchPresets(cfg *config.Config, log *zap.Logger) <-chan struct{} {
	if !cfg.Presets.HotReload {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("preset hot reload unavailable", zap.Error(err))
		return nil
	}
	if err := watcher.Add(cfg.Presets.Dir); err != nil {
		log.Warn("cannot watch preset directory", zap.String("dir", cfg.Presets.Dir), zap.Error(err))
		watcher.Close()
		return nil
	}
	changed := make(chan struct{}, 1)
	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					select {
					case changed <- struct{}{}:
					default:
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("preset watcher error", zap.Error(err))
			}
		}
	}()
	return changed
}
