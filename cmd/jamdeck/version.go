package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meterbridge/jamdeck/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the jamdeck version.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.VersionOrHash)
	},
}
