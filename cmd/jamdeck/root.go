package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meterbridge/jamdeck/config"
	"github.com/meterbridge/jamdeck/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "jamdeck",
	Short: "jamdeck is a synchronized multi-song playback engine.",
	Long: `jamdeck loads a set of songs and plays them under one master transport,
with their tempos independent, locked to the master, or derived from
per-song ratios. Presets snapshot the whole deck and restore it later.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (TOML)")
	rootCmd.AddCommand(playCmd, presetsCmd, bounceCmd, versionCmd)
}

// setup loads config and builds the logger; every subcommand starts here.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("building logger: %w", err)
	}
	return cfg, log, nil
}
