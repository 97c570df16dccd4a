// Package core holds the StudyWise domain types and the storage ports
// every adapter implements.
package core

import (
	"fmt"
	"time"
)

// Metadata represents the flexible key-value pairs stored alongside a document.
type Metadata map[string]any

// Document is the storage unit of a vault.
// Every course, note and tag is persisted as one document: the ID is the key,
// the markdown body lives in Content and the structured fields in Metadata.
type Document struct {
	ID       string
	Content  string
	Metadata Metadata
}

// Course is a named grouping of notes.
type Course struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Tag is a user-defined label attached to notes by id reference.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Reactions counts reactions on a note, keyed by reaction name (e.g. "like").
type Reactions map[string]int

// Note is a markdown document belonging to a course.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CourseID  string    `json:"courseId"`
	TagIDs    []string  `json:"tagIds"`
	Pinned    bool      `json:"isPinned,omitempty"`
	VideoURL  string    `json:"videoUrl,omitempty"`
	Reactions Reactions `json:"reactions,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasTag reports whether the note references the given tag id.
func (n Note) HasTag(tagID string) bool {
	for _, id := range n.TagIDs {
		if id == tagID {
			return true
		}
	}
	return false
}

// Flashcard is a single question/answer pair.
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// EventType represents the type of change in the vault.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change in the vault.
type Event struct {
	Type      EventType `json:"type"`
	ID        string    `json:"id"`
	Timestamp int64     `json:"timestamp"` // Unix timestamp
}

// String implements fmt.Stringer (and lifecycle.Event).
func (e Event) String() string {
	return fmt.Sprintf("%s %s", e.Type, e.ID)
}
