package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/studywise/internal/printer"
	"github.com/aretw0/studywise/internal/tui"
	"github.com/aretw0/studywise/pkg/review"
)

var (
	reviewCourse string
	reviewAI     bool
	reviewPlain  bool
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review the notes of a course as flip cards",
	Long: `Review the notes of a course as flip cards: the title on the front,
the rendered note on the back. With --ai the deck is built from Gemini
flashcards for every note of the course instead.

Keys: space/enter flip, right/l next, left/h previous, q quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()

		ctx, cancel := signalContext()
		defer cancel()

		course, err := v.svc.GetCourse(ctx, reviewCourse)
		if err != nil {
			return recordError("Failed to open course", "course", reviewCourse, err)
		}
		notes, err := v.svc.ReviewDeck(ctx, course.ID)
		if err != nil {
			return fail("Failed to build the review deck", err)
		}

		cards := review.FromNotes(notes)
		if reviewAI {
			fs, err := newFlows(ctx, v.cfg)
			if err != nil {
				return err
			}
			printer.Step("Generating flashcards for %d notes...\n", len(notes))
			deck, err := fs.DeckForNotes(ctx, notes, v.cfg.AI.Concurrency)
			if err != nil {
				return fail("AI request failed", err)
			}
			cards = review.FromFlashcards(deck)
		}

		session, err := review.NewSession(cards, nil)
		if err != nil {
			return fail(fmt.Sprintf("Nothing to review in %s", course.Name), err,
				"Add a note with 'studywise note new --course "+course.ID+"'")
		}

		renderer := v.renderer(4, reviewPlain)
		return tui.Run(ctx, tui.New(course.Name, session, renderer))
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	reviewCmd.Flags().StringVarP(&reviewCourse, "course", "c", "", "Course id to review")
	reviewCmd.Flags().BoolVar(&reviewAI, "ai", false, "Review AI-generated flashcards instead of whole notes")
	reviewCmd.Flags().BoolVar(&reviewPlain, "plain", false, "Show markdown without styling")
	_ = reviewCmd.MarkFlagRequired("course")
}
