// Package review runs flip-card review sessions over notes or generated flashcards.
package review

import (
	"errors"
	"math/rand/v2"

	"github.com/aretw0/studywise/pkg/core"
)

// ErrEmptyDeck is returned when a session is started without cards.
var ErrEmptyDeck = errors.New("no cards to review")

// Card is one side-by-side pair: the prompt on the front, the answer on the back.
type Card struct {
	Front string
	Back  string
}

// FromNotes shows each note's title on the front and its markdown on the back.
func FromNotes(notes []core.Note) []Card {
	cards := make([]Card, len(notes))
	for i, n := range notes {
		cards[i] = Card{Front: n.Title, Back: n.Content}
	}
	return cards
}

// FromFlashcards turns generated question/answer pairs into cards.
func FromFlashcards(fcs []core.Flashcard) []Card {
	cards := make([]Card, len(fcs))
	for i, fc := range fcs {
		cards[i] = Card{Front: fc.Question, Back: fc.Answer}
	}
	return cards
}

// Session walks a shuffled deck. It is not safe for concurrent use.
type Session struct {
	cards   []Card
	index   int
	flipped bool
}

// NewSession shuffles a copy of cards with rng (a random source when nil).
// The caller's slice is left untouched.
func NewSession(cards []Card, rng *rand.Rand) (*Session, error) {
	if len(cards) == 0 {
		return nil, ErrEmptyDeck
	}
	deck := make([]Card, len(cards))
	copy(deck, cards)

	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })

	return &Session{cards: deck}, nil
}

// Current returns the card on the table.
func (s *Session) Current() Card {
	return s.cards[s.index]
}

// Flipped reports whether the back is showing.
func (s *Session) Flipped() bool {
	return s.flipped
}

// Flip turns the card over.
func (s *Session) Flip() {
	s.flipped = !s.flipped
}

// Next moves forward, wrapping to the first card, front side up.
func (s *Session) Next() {
	s.flipped = false
	s.index = (s.index + 1) % len(s.cards)
}

// Prev moves back, wrapping to the last card, front side up.
func (s *Session) Prev() {
	s.flipped = false
	s.index = (s.index - 1 + len(s.cards)) % len(s.cards)
}

// Position returns the 1-based index of the current card and the deck size.
func (s *Session) Position() (int, int) {
	return s.index + 1, len(s.cards)
}

// Cards returns the shuffled deck order.
func (s *Session) Cards() []Card {
	out := make([]Card, len(s.cards))
	copy(out, s.cards)
	return out
}
