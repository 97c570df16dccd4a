package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/studywise/pkg/core"
)

var (
	// ErrUnknownAction is returned for a ProcessNote action other than summarize or generate_questions.
	ErrUnknownAction = errors.New("unknown note action")
	// ErrMalformedOutput is returned when the model reply does not decode into the flow output.
	ErrMalformedOutput = errors.New("malformed model output")
)

// Action selects what ProcessNote does with a note.
type Action string

const (
	ActionSummarize         Action = "summarize"
	ActionGenerateQuestions Action = "generate_questions"
)

// ProcessNoteInput is the input of the summarize and question flows.
type ProcessNoteInput struct {
	NoteContent string `json:"noteContent"`
	Action      Action `json:"action"`
}

// ProcessNoteOutput carries markdown: a summary or a numbered question list.
type ProcessNoteOutput struct {
	ProcessedContent string `json:"processedContent"`
}

// FlashcardsInput is the input of the flashcard flow.
type FlashcardsInput struct {
	NoteContent string `json:"noteContent"`
}

// FlashcardsOutput is the generated deck.
type FlashcardsOutput struct {
	Flashcards []core.Flashcard `json:"flashcards"`
}

var processedSchema = &Schema{
	Type: TypeObject,
	Properties: map[string]*Schema{
		"processedContent": {
			Type:        TypeString,
			Description: "The processed content, either a summary or a list of questions in markdown format.",
		},
	},
	Required: []string{"processedContent"},
}

var flashcardsSchema = &Schema{
	Type: TypeObject,
	Properties: map[string]*Schema{
		"flashcards": {
			Type:        TypeArray,
			Description: "An array of generated flashcards.",
			Items: &Schema{
				Type: TypeObject,
				Properties: map[string]*Schema{
					"question": {Type: TypeString, Description: "The question or front side of the flashcard."},
					"answer":   {Type: TypeString, Description: "The answer or back side of the flashcard."},
				},
				Required: []string{"question", "answer"},
			},
		},
	},
	Required: []string{"flashcards"},
}

var (
	summarizeFlow = NewFlow[ProcessNoteInput, ProcessNoteOutput]("summarizeNote", `You are an expert academic assistant. Your task is to summarize the following note content concisely.
Focus on the key points and main ideas. Format the output as clean markdown.

Note Content:
{{.NoteContent}}
`, processedSchema)

	questionsFlow = NewFlow[ProcessNoteInput, ProcessNoteOutput]("generateQuestions", `You are an expert study guide creator. Your task is to generate 5-10 practice questions based on the following note content.
These questions should help a student test their understanding of the material. Include a mix of question types if possible (e.g., definitions, concepts, analysis).
Format the output as a numbered list in clean markdown.

Note Content:
{{.NoteContent}}
`, processedSchema)

	flashcardsFlow = NewFlow[FlashcardsInput, FlashcardsOutput]("generateFlashcards", `You are an expert in creating study materials. Based on the note content provided, generate a set of flashcards. Each flashcard should have a clear question and a concise answer. Focus on key terms, definitions, and core concepts.

Note Content:
{{.NoteContent}}
`, flashcardsSchema)
)

// Service runs the study flows against one generator.
type Service struct {
	gen Generator
}

// New creates a flow service.
func New(gen Generator) *Service {
	return &Service{gen: gen}
}

// ProcessNote summarizes a note or drafts practice questions for it.
func (s *Service) ProcessNote(ctx context.Context, in ProcessNoteInput) (ProcessNoteOutput, error) {
	var flow *Flow[ProcessNoteInput, ProcessNoteOutput]
	switch in.Action {
	case ActionSummarize:
		flow = summarizeFlow
	case ActionGenerateQuestions:
		flow = questionsFlow
	default:
		return ProcessNoteOutput{}, fmt.Errorf("%w: %q", ErrUnknownAction, in.Action)
	}
	if strings.TrimSpace(in.NoteContent) == "" {
		return ProcessNoteOutput{}, core.ErrEmptyContent
	}
	return flow.Run(ctx, s.gen, in)
}

// GenerateFlashcards builds question/answer cards from a note.
func (s *Service) GenerateFlashcards(ctx context.Context, in FlashcardsInput) (FlashcardsOutput, error) {
	if strings.TrimSpace(in.NoteContent) == "" {
		return FlashcardsOutput{}, core.ErrEmptyContent
	}
	out, err := flashcardsFlow.Run(ctx, s.gen, in)
	if err != nil {
		return FlashcardsOutput{}, err
	}
	cards := out.Flashcards[:0]
	for _, c := range out.Flashcards {
		if strings.TrimSpace(c.Question) != "" {
			cards = append(cards, c)
		}
	}
	out.Flashcards = cards
	return out, nil
}

// DeckForNotes generates flashcards for every non-empty note, at most
// concurrency at a time, and concatenates them in note order.
// The first failure cancels the remaining calls.
func (s *Service) DeckForNotes(ctx context.Context, notes []core.Note, concurrency int) ([]core.Flashcard, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([][]core.Flashcard, len(notes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, n := range notes {
		if strings.TrimSpace(n.Content) == "" {
			continue
		}
		g.Go(func() error {
			out, err := s.GenerateFlashcards(gctx, FlashcardsInput{NoteContent: n.Content})
			if err != nil {
				return fmt.Errorf("note %q: %w", n.Title, err)
			}
			results[i] = out.Flashcards
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var deck []core.Flashcard
	for _, cards := range results {
		deck = append(deck, cards...)
	}
	return deck, nil
}
