package study

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/aretw0/studywise/pkg/core"
)

// DefaultNoteTitle is used when a note is created without a title.
const DefaultNoteTitle = "New Note"

// AllCourses selects every course in a NoteFilter.
const AllCourses = "all"

// ErrInvalidURL is returned by SetVideo and AddImage for anything but an
// absolute http(s) URL.
var ErrInvalidURL = errors.New("url must be an absolute http(s) url")

// NoteDraft holds the fields of a note about to be created.
type NoteDraft struct {
	Title    string
	Content  string
	CourseID string
	TagIDs   []string
	VideoURL string
}

// NoteUpdate is a partial update: nil fields are left untouched.
type NoteUpdate struct {
	Title    *string
	Content  *string
	CourseID *string
	TagIDs   []string
	VideoURL *string
	Pinned   *bool
}

// NoteFilter narrows ListNotes.
type NoteFilter struct {
	// CourseID limits the list to one course; "" or AllCourses lists every course.
	CourseID string
	// TagIDs keeps notes that carry every listed tag.
	TagIDs     []string
	PinnedOnly bool
}

// AddNote creates a note in an existing course.
func (s *Service) AddNote(ctx context.Context, draft NoteDraft) (core.Note, error) {
	if draft.CourseID == "" || draft.CourseID == AllCourses {
		return core.Note{}, core.ErrCourseRequired
	}
	if _, err := s.GetCourse(ctx, draft.CourseID); err != nil {
		return core.Note{}, err
	}
	if err := validateVideo(draft.VideoURL); err != nil {
		return core.Note{}, err
	}

	title := strings.TrimSpace(draft.Title)
	if title == "" {
		title = DefaultNoteTitle
	}
	tagIDs := draft.TagIDs
	if tagIDs == nil {
		tagIDs = []string{}
	}

	now := s.timestamp()
	note := core.Note{
		ID:        s.newID(),
		Title:     title,
		Content:   draft.Content,
		CourseID:  draft.CourseID,
		TagIDs:    tagIDs,
		VideoURL:  draft.VideoURL,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx = withReason(ctx, reason(core.CommitTypeFeat, "notes", fmt.Sprintf("add %q", title)))
	if err := s.saveNote(ctx, note); err != nil {
		return core.Note{}, err
	}
	s.logger.Debug("note added", "id", note.ID, "course", note.CourseID)
	return note, nil
}

// GetNote returns the note with the given id.
func (s *Service) GetNote(ctx context.Context, id string) (core.Note, error) {
	if id == "" {
		return core.Note{}, core.ErrNotFound
	}
	m, err := s.store().notes.Get(ctx, id)
	if err != nil {
		return core.Note{}, fmt.Errorf("note %s: %w", id, err)
	}
	return noteFromModel(m), nil
}

// UpdateNote applies upd to a note and refreshes UpdatedAt.
func (s *Service) UpdateNote(ctx context.Context, id string, upd NoteUpdate) (core.Note, error) {
	note, err := s.GetNote(ctx, id)
	if err != nil {
		return core.Note{}, err
	}

	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return core.Note{}, core.ErrEmptyTitle
		}
		note.Title = title
	}
	if upd.Content != nil {
		note.Content = *upd.Content
	}
	if upd.CourseID != nil && *upd.CourseID != note.CourseID {
		if _, err := s.GetCourse(ctx, *upd.CourseID); err != nil {
			return core.Note{}, err
		}
		note.CourseID = *upd.CourseID
	}
	if upd.TagIDs != nil {
		note.TagIDs = upd.TagIDs
	}
	if upd.VideoURL != nil {
		if err := validateVideo(*upd.VideoURL); err != nil {
			return core.Note{}, err
		}
		note.VideoURL = *upd.VideoURL
	}
	if upd.Pinned != nil {
		note.Pinned = *upd.Pinned
	}
	note.UpdatedAt = s.timestamp()

	ctx = withReason(ctx, reason(core.CommitTypeDocs, "notes", fmt.Sprintf("update %q", note.Title)))
	if err := s.saveNote(ctx, note); err != nil {
		return core.Note{}, err
	}
	return note, nil
}

// DeleteNote removes a note.
func (s *Service) DeleteNote(ctx context.Context, id string) error {
	note, err := s.GetNote(ctx, id)
	if err != nil {
		return err
	}
	ctx = withReason(ctx, reason(core.CommitTypeFeat, "notes", fmt.Sprintf("delete %q", note.Title)))
	if err := s.store().notes.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete note %s: %w", id, err)
	}
	return nil
}

// ListNotes returns the notes matching filter, pinned first, then most
// recently updated.
func (s *Service) ListNotes(ctx context.Context, filter NoteFilter) ([]core.Note, error) {
	models, err := s.store().notes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	notes := make([]core.Note, 0, len(models))
	for _, m := range models {
		n := noteFromModel(m)
		if filter.CourseID != "" && filter.CourseID != AllCourses && n.CourseID != filter.CourseID {
			continue
		}
		if !hasAllTags(n, filter.TagIDs) {
			continue
		}
		if filter.PinnedOnly && !n.Pinned {
			continue
		}
		notes = append(notes, n)
	}

	sortNotes(notes)
	return notes, nil
}

func hasAllTags(n core.Note, ids []string) bool {
	for _, id := range ids {
		if !n.HasTag(id) {
			return false
		}
	}
	return true
}

// TogglePin flips the pinned state of a note.
func (s *Service) TogglePin(ctx context.Context, id string) (core.Note, error) {
	note, err := s.GetNote(ctx, id)
	if err != nil {
		return core.Note{}, err
	}
	pinned := !note.Pinned
	verb := "pin"
	if !pinned {
		verb = "unpin"
	}
	ctx = withReason(ctx, reason(core.CommitTypeChore, "notes", fmt.Sprintf("%s %q", verb, note.Title)))
	return s.UpdateNote(ctx, id, NoteUpdate{Pinned: &pinned})
}

// SetVideo attaches a video link to a note. An empty url removes it.
func (s *Service) SetVideo(ctx context.Context, id, rawURL string) (core.Note, error) {
	rawURL = strings.TrimSpace(rawURL)
	return s.UpdateNote(ctx, id, NoteUpdate{VideoURL: &rawURL})
}

// AddImage appends a markdown image (![alt](url)) to the end of a note's
// content on its own line.
func (s *Service) AddImage(ctx context.Context, id, rawURL, alt string) (core.Note, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return core.Note{}, fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if err := validateURL(rawURL); err != nil {
		return core.Note{}, err
	}
	note, err := s.GetNote(ctx, id)
	if err != nil {
		return core.Note{}, err
	}

	content := strings.TrimRight(note.Content, "\n")
	if content != "" {
		content += "\n\n"
	}
	content += fmt.Sprintf("![%s](%s)\n", imageAltEscaper.Replace(strings.TrimSpace(alt)), imageURLEscaper.Replace(rawURL))

	ctx = withReason(ctx, reason(core.CommitTypeDocs, "notes", fmt.Sprintf("add image to %q", note.Title)))
	return s.UpdateNote(ctx, id, NoteUpdate{Content: &content})
}

var (
	imageAltEscaper = strings.NewReplacer("[", "", "]", "", "\n", " ", "\r", "")
	imageURLEscaper = strings.NewReplacer(" ", "%20", "(", "%28", ")", "%29")
)

// React adds delta to the named reaction count of a note. Counts never go
// below zero and a zero count is dropped.
func (s *Service) React(ctx context.Context, id, name string, delta int) (core.Note, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return core.Note{}, core.ErrEmptyName
	}
	note, err := s.GetNote(ctx, id)
	if err != nil {
		return core.Note{}, err
	}

	reactions := core.Reactions{}
	for k, v := range note.Reactions {
		reactions[k] = v
	}
	count := reactions[name] + delta
	if count <= 0 {
		delete(reactions, name)
	} else {
		reactions[name] = count
	}
	if len(reactions) == 0 {
		reactions = nil
	}
	note.Reactions = reactions
	note.UpdatedAt = s.timestamp()

	ctx = withReason(ctx, reason(core.CommitTypeChore, "notes", fmt.Sprintf("react %s on %q", name, note.Title)))
	if err := s.saveNote(ctx, note); err != nil {
		return core.Note{}, err
	}
	return note, nil
}

func (s *Service) saveNote(ctx context.Context, note core.Note) error {
	if err := s.store().notes.Save(ctx, noteToModel(note)); err != nil {
		return fmt.Errorf("failed to save note: %w", err)
	}
	return nil
}

func sortNotes(notes []core.Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		a, b := notes[i], notes[j]
		if a.Pinned != b.Pinned {
			return a.Pinned
		}
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID < b.ID
	})
}

func validateVideo(raw string) error {
	if raw == "" {
		return nil
	}
	return validateURL(raw)
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return nil
}
