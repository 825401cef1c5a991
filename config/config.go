// Package config loads jamdeck's configuration: an embedded default, an
// optional TOML file over it, a .env file if one is present, and JAMDECK_*
// environment variables over everything.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed default.toml
var defaultConf []byte

// Config is the whole application configuration.
type Config struct {
	Audio   AudioConfig  `toml:"audio"`
	Log     LogConfig    `toml:"log"`
	Presets PresetConfig `toml:"presets"`
	MIDI    MIDIConfig   `toml:"midi"`
	Songs   []SongConfig `toml:"songs"`
}

// AudioConfig selects the output device parameters.
type AudioConfig struct {
	SampleRate   int  `toml:"sample_rate"`
	BufferFrames int  `toml:"buffer_frames"`
	Headless     bool `toml:"headless"`
}

// LogConfig mirrors logger.Config.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSize    int    `toml:"max_size"`
	MaxBackups int    `toml:"max_backups"`
	MaxAge     int    `toml:"max_age"`
	Compress   bool   `toml:"compress"`
}

// PresetConfig locates the preset bank.
type PresetConfig struct {
	Dir       string `toml:"dir"`
	HotReload bool   `toml:"hot_reload"`
}

// MIDIConfig controls the remote-control surface.
type MIDIConfig struct {
	Enabled    bool   `toml:"enabled"`
	PortPrefix string `toml:"port_prefix"`
}

// SongConfig is one song to load at startup: either a wav file at Path or a
// silent clock of Duration seconds.
type SongConfig struct {
	Name       string  `toml:"name"`
	Path       string  `toml:"path"`
	Volume     float64 `toml:"volume"`
	TempoRatio float64 `toml:"tempo_ratio"`
	Duration   float64 `toml:"duration"`
}

// Default returns the embedded default configuration.
func Default() *Config {
	var cfg Config
	if err := toml.Unmarshal(defaultConf, &cfg); err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	return &cfg
}

// Load builds the effective configuration: defaults, then the TOML file at
// path when given, then .env, then JAMDECK_* variables. A missing file at an
// explicitly given path is an error; empty path just means "no file".
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	// .env is optional and only seeds the process environment
	godotenv.Load()
	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overrides single fields from the environment. Only the knobs
// worth flipping per invocation are exposed this way.
func applyEnv(cfg *Config) {
	if v := os.Getenv("JAMDECK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("JAMDECK_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	if v := os.Getenv("JAMDECK_PRESET_DIR"); v != "" {
		cfg.Presets.Dir = v
	}
	if v := os.Getenv("JAMDECK_SAMPLE_RATE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Audio.SampleRate = n
		}
	}
	if v := os.Getenv("JAMDECK_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Audio.Headless = b
		}
	}
	if v := os.Getenv("JAMDECK_MIDI_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.MIDI.Enabled = b
		}
	}
	if v := os.Getenv("JAMDECK_MIDI_PORT"); v != "" {
		cfg.MIDI.PortPrefix = v
	}
}
