package main

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the vault and its store as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()

		return printJSON(struct {
			Root    string `json:"root"`
			Adapter string `json:"adapter"`
			Service any    `json:"service"`
		}{
			Root:    v.root,
			Adapter: v.cfg.Storage.Adapter,
			Service: v.svc.State(),
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
