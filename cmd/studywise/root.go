package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/studywise/internal/printer"
)

var (
	verbose   bool
	vaultPath string
	adapter   string
	nover     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "studywise",
	Short: "Study notes, courses and flip-card review from the terminal",
	Long: `StudyWise keeps your study notes as a small database of courses, notes and tags.
Notes are Markdown. Review them as flip cards or let Gemini summarize them,
draft practice questions and build flashcards.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// cliError is an error with an explanation and hints for the user.
type cliError struct {
	title       string
	explanation string
	suggestions []string
}

func (e *cliError) Error() string { return e.title }

func fail(title string, err error, suggestions ...string) error {
	explanation := ""
	if err != nil {
		explanation = err.Error()
	}
	return &cliError{title: title, explanation: explanation, suggestions: suggestions}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ce *cliError
		if errors.As(err, &ce) {
			_ = printer.Error(ce.title, ce.explanation, ce.suggestions)
		} else {
			_ = printer.Error("Error: "+err.Error(), "", nil)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&vaultPath, "vault", "", "Vault directory (default: nearest vault above the working directory)")
	rootCmd.PersistentFlags().StringVar(&adapter, "adapter", "", "Storage adapter: fs, sqlite or redis (overrides studywise.yaml)")
	rootCmd.PersistentFlags().BoolVar(&nover, "no-versioning", false, "Do not commit writes to git (fs adapter)")
}
