package study

import (
	"context"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/aretw0/studywise/pkg/core"
)

// ResultKind tells what a search hit points at.
type ResultKind string

const (
	KindCourse ResultKind = "course"
	KindNote   ResultKind = "note"
)

// SearchResult is one command-palette hit.
type SearchResult struct {
	Kind     ResultKind `json:"kind"`
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	CourseID string     `json:"courseId,omitempty"`
	Score    int        `json:"score"`
	// Matched holds the byte offsets of the matched characters in Title.
	Matched []int `json:"matched,omitempty"`
}

// searchIndex adapts courses and notes to fuzzy.Source.
type searchIndex []SearchResult

func (ix searchIndex) String(i int) string { return ix[i].Title }
func (ix searchIndex) Len() int            { return len(ix) }

// Search fuzzy-matches query against course names and note titles, best
// match first. A limit of zero or less returns every hit.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}, nil
	}

	courses, err := s.ListCourses(ctx)
	if err != nil {
		return nil, err
	}
	notes, err := s.ListNotes(ctx, NoteFilter{})
	if err != nil {
		return nil, err
	}

	index := make(searchIndex, 0, len(courses)+len(notes))
	for _, c := range courses {
		index = append(index, SearchResult{Kind: KindCourse, ID: c.ID, Title: c.Name})
	}
	for _, n := range notes {
		index = append(index, SearchResult{Kind: KindNote, ID: n.ID, Title: n.Title, CourseID: n.CourseID})
	}

	matches := fuzzy.FindFrom(query, index)
	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		r := index[m.Index]
		r.Score = m.Score
		r.Matched = m.MatchedIndexes
		results = append(results, r)
		if limit > 0 && len(results) == limit {
			break
		}
	}
	return results, nil
}

// ReviewDeck returns the notes of one course for a review session.
// Review is only offered for a selected course.
func (s *Service) ReviewDeck(ctx context.Context, courseID string) ([]core.Note, error) {
	if courseID == "" || courseID == AllCourses {
		return nil, core.ErrCourseRequired
	}
	if _, err := s.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	notes, err := s.ListNotes(ctx, NoteFilter{CourseID: courseID})
	if err != nil {
		return nil, fmt.Errorf("failed to build review deck: %w", err)
	}
	return notes, nil
}
