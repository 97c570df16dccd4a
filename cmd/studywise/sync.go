package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aretw0/studywise"
	"github.com/aretw0/studywise/internal/printer"
	"github.com/aretw0/studywise/pkg/core"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize vault with remote",
	Long: `Synchronize the local vault with the configured remote repository.
It integrates remote changes and pushes local changes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := resolveRoot()
		if err != nil {
			return fail("Failed to locate vault", err)
		}
		cfg, err := loadConfig(root)
		if err != nil {
			return fail("Invalid configuration", err)
		}
		uri, opts := storeOptions(root, cfg)

		printer.Step("Syncing...\n")
		err = studywise.Sync(uri, opts...)
		if errors.Is(err, core.ErrUnsupported) {
			return fail("Sync failed: this vault has no remote to sync with", err,
				"Only git-versioned fs vaults sync; enable storage.versioning in studywise.yaml")
		}
		if err != nil {
			slog.Debug("sync failed", "error", err)
			return fail("Sync failed", err,
				"Ensure you have a remote configured ('git remote add origin <url>') and you are online",
				"If there are merge conflicts, resolve them manually in the repository")
		}

		printer.Success("Sync completed successfully.\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
