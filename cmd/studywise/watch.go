package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/studywise/internal/printer"
	"github.com/aretw0/studywise/pkg/adapters/lifecycle"
	"github.com/aretw0/studywise/pkg/core"
)

var (
	watchPattern     string
	watchCollections []string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print vault changes as they happen",
	Long: `Print vault changes (edits from other tools, other processes or a git pull)
until interrupted. The pattern filters record ids, e.g. "notes/*", and
--collection keeps only changes to the named collections.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()

		ctx, cancel := signalContext()
		defer cancel()

		events, err := v.svc.Watch(ctx, watchPattern)
		if errors.Is(err, core.ErrUnsupported) {
			return fail("This store cannot be watched", err, "Use the fs or redis adapter to watch for changes")
		}
		if err != nil {
			return fail("Failed to watch vault", err)
		}

		src := lifecycle.NewSource(events, lifecycle.WithCollections(watchCollections...))
		if err := src.Start(ctx); err != nil {
			return fail("Failed to watch vault", err)
		}

		printer.Step("Watching %s (Ctrl+C to stop)\n", v.root)
		for ev := range src.Events() {
			printer.Faint("%s ", time.Now().Format(time.TimeOnly))
			printer.Info("%s\n", ev)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&watchPattern, "pattern", "p", "**/*", "Record id pattern")
	watchCmd.Flags().StringSliceVarP(&watchCollections, "collection", "c", nil, "Only changes to these collections (courses, notes, tags)")
}
