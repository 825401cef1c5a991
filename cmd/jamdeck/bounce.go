package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meterbridge/jamdeck"
	"github.com/meterbridge/jamdeck/render"
)

var (
	bounceSeconds float64
	bouncePCM     bool
)

var bounceCmd = &cobra.Command{
	Use:   "bounce <output.wav>",
	Short: "Render the configured songs offline into one wav file.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		var songs []jamdeck.Song
		longest := bounceSeconds
		for _, sc := range cfg.Songs {
			song, err := loadSong(sc)
			if err != nil {
				log.Warn("skipping song", zap.String("name", sc.Name), zap.Error(err))
				continue
			}
			songs = append(songs, song)
			if bounceSeconds <= 0 && song.Duration > longest {
				longest = song.Duration
			}
		}
		if len(songs) == 0 {
			return fmt.Errorf("no songs to bounce")
		}
		buf, err := render.Bounce(songs, longest, cfg.Audio.SampleRate, cfg.Audio.BufferFrames)
		if err != nil {
			return fmt.Errorf("bouncing: %w", err)
		}
		wav, err := render.WriteWav(buf, cfg.Audio.SampleRate, bouncePCM)
		if err != nil {
			return fmt.Errorf("encoding wav: %w", err)
		}
		if err := os.WriteFile(args[0], wav, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", args[0], err)
		}
		log.Info("bounced", zap.String("file", args[0]), zap.Int("frames", len(buf)))
		return nil
	},
}

func init() {
	bounceCmd.Flags().Float64Var(&bounceSeconds, "seconds", 0, "length to render; 0 means the longest song")
	bounceCmd.Flags().BoolVar(&bouncePCM, "pcm", false, "write 16-bit PCM instead of float32")
}
