package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meterbridge/jamdeck/engine"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the presets in the configured bank directory.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()
		bank := engine.LoadBank(cfg.Presets.Dir, log)
		if bank.Len() == 0 {
			fmt.Printf("no presets in %s\n", cfg.Presets.Dir)
			return nil
		}
		for _, name := range bank.Names() {
			preset, _ := bank.Find(name)
			fmt.Printf("%-24s %d songs, %s, master tempo %.2f\n",
				name, len(preset.Songs), preset.Sync, preset.MasterTempo)
		}
		return nil
	},
}
