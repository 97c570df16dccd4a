package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/studywise/internal/printer"
	"github.com/aretw0/studywise/pkg/study"
)

var (
	exportOut  string
	importMode string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every course, note and tag to a JSON backup",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()

		w := os.Stdout
		if exportOut != "-" {
			f, err := os.Create(exportOut)
			if err != nil {
				return fail("Failed to create backup file", err)
			}
			defer f.Close()
			w = f
		}

		b, err := v.svc.Export(context.Background(), w)
		if err != nil {
			return fail("Export failed", err)
		}
		if exportOut != "-" {
			printer.Success("Exported %d courses, %d notes and %d tags to %s\n",
				len(b.Courses), len(b.Notes), len(b.Tags), exportOut)
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Load a JSON backup into the vault",
	Long: `Load a JSON backup into the vault.

--mode merge (default) adds or overwrites records by id and keeps the rest.
--mode replace clears the vault first, as one change.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := study.ParseImportMode(importMode)
		if err != nil {
			return fail("Invalid import mode", err, "Use --mode merge or --mode replace")
		}
		path := study.BackupFileName
		if len(args) == 1 {
			path = args[0]
		}
		f, err := os.Open(path)
		if err != nil {
			return fail("Failed to open backup", err)
		}
		defer f.Close()

		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()

		stats, err := v.svc.Import(context.Background(), f, mode)
		if err != nil {
			return fail(fmt.Sprintf("Import of %s failed", path), err)
		}
		printer.Success("Imported %d courses, %d notes and %d tags (%s)\n", stats.Courses, stats.Notes, stats.Tags, mode)
		if stats.Removed > 0 {
			printer.Faint("removed %d existing records\n", stats.Removed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd, importCmd)
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", study.BackupFileName, "Backup file ('-' for stdout)")
	importCmd.Flags().StringVar(&importMode, "mode", string(study.ImportMerge), "merge or replace")
}
