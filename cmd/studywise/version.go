package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/studywise"
	"github.com/aretw0/studywise/internal/printer"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of studywise",
	Run: func(cmd *cobra.Command, args []string) {
		printer.Info("studywise version %s\n", studywise.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
