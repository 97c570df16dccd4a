package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/studywise"
	"github.com/aretw0/studywise/internal/config"
	"github.com/aretw0/studywise/internal/printer"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a StudyWise vault",
	Long: `Initialize a new vault in the current directory (or --vault).
Writes studywise.yaml and prepares the store: a git repository for the fs
adapter, the database file for sqlite.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := vaultPath
		if root == "" {
			root = "."
		}
		root, err := filepath.Abs(root)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(root, 0o755); err != nil {
			return fail("Failed to create vault directory", err)
		}

		cfgPath := filepath.Join(root, config.FileName)
		if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
			cfg := config.Default()
			if adapter != "" {
				cfg.Storage.Adapter = adapter
			}
			if nover {
				off := false
				cfg.Storage.Versioning = &off
			}
			if cfg.Storage.Adapter == config.AdapterRedis {
				cfg.Storage.Redis = &config.RedisConfig{Addr: "localhost:6379", Namespace: filepath.Base(root)}
			}
			if err := cfg.Validate(); err != nil {
				return fail("Invalid configuration", err)
			}
			if err := cfg.Save(cfgPath); err != nil {
				return fail("Failed to write configuration", err)
			}
		}

		cfg, err := loadConfig(root)
		if err != nil {
			return fail("Invalid configuration", err)
		}
		uri, opts := storeOptions(root, cfg)
		opts = append(opts, studywise.WithAutoInit(true))
		repo, err := studywise.Init(uri, opts...)
		if err != nil {
			return fail("Failed to initialize vault", err)
		}
		defer studywise.Close(repo)

		printer.Success("Initialized StudyWise vault (%s) in %s\n", cfg.Storage.Adapter, root)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
