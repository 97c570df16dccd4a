package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aretw0/studywise/internal/config"
	"github.com/aretw0/studywise/internal/printer"
	"github.com/aretw0/studywise/pkg/adapters/genai"
	"github.com/aretw0/studywise/pkg/flows"
)

var (
	aiJSON  bool
	aiPlain bool
)

// newFlows builds the flow service on a Gemini generator.
func newFlows(ctx context.Context, cfg *config.Config) (*flows.Service, error) {
	gc := genai.Config{
		APIKey: cfg.AI.APIKey,
		Model:  cfg.AI.Model,
		Logger: slog.Default(),
	}
	if cfg.AI.Temperature != nil {
		gc.Temperature = *cfg.AI.Temperature
	}
	gen, err := genai.NewGenerator(ctx, gc)
	if errors.Is(err, genai.ErrNoAPIKey) {
		return nil, fail("No Gemini API key configured", err,
			"Export GEMINI_API_KEY (or GOOGLE_API_KEY)",
			"Set ai.api_key in "+config.FileName)
	}
	if err != nil {
		return nil, fail("Failed to create the AI client", err)
	}
	return flows.New(gen), nil
}

var aiCmd = &cobra.Command{
	Use:   "ai",
	Short: "Summaries, practice questions and flashcards from Gemini",
}

func processCmd(use, short string, action flows.Action) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [note-id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := openVault()
			if err != nil {
				return err
			}
			defer v.Close()

			ctx, cancel := signalContext()
			defer cancel()

			n, err := v.svc.GetNote(ctx, args[0])
			if err != nil {
				return recordError("Failed to read note", "note", args[0], err)
			}
			fs, err := newFlows(ctx, v.cfg)
			if err != nil {
				return err
			}

			out, err := fs.ProcessNote(ctx, flows.ProcessNoteInput{NoteContent: n.Content, Action: action})
			if err != nil {
				return fail("AI request failed", err)
			}
			if aiJSON {
				return printJSON(out)
			}
			r := v.renderer(0, aiPlain)
			printer.Info("%s\n", r.Render(out.ProcessedContent))
			return nil
		},
	}
}

var aiSummarizeCmd = processCmd("summarize", "Summarize a note", flows.ActionSummarize)

var aiQuestionsCmd = processCmd("questions", "Draft practice questions for a note", flows.ActionGenerateQuestions)

var aiFlashcardsCmd = &cobra.Command{
	Use:   "flashcards [note-id]",
	Short: "Generate flashcards for a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()

		ctx, cancel := signalContext()
		defer cancel()

		n, err := v.svc.GetNote(ctx, args[0])
		if err != nil {
			return recordError("Failed to read note", "note", args[0], err)
		}
		fs, err := newFlows(ctx, v.cfg)
		if err != nil {
			return err
		}

		out, err := fs.GenerateFlashcards(ctx, flows.FlashcardsInput{NoteContent: n.Content})
		if err != nil {
			return fail("AI request failed", err)
		}
		if aiJSON {
			return printJSON(out)
		}
		for i, c := range out.Flashcards {
			printer.Step("%d. %s\n", i+1, c.Question)
			printer.Info("   %s\n\n", c.Answer)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(aiCmd)
	aiCmd.AddCommand(aiSummarizeCmd, aiQuestionsCmd, aiFlashcardsCmd)
	aiCmd.PersistentFlags().BoolVar(&aiJSON, "json", false, "Output in JSON format")
	aiCmd.PersistentFlags().BoolVar(&aiPlain, "plain", false, "Print markdown without styling")
}
