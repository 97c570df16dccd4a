package study

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/studywise/pkg/core"
)

// AddTag creates a tag, or returns the existing one whose name matches
// case-insensitively.
func (s *Service) AddTag(ctx context.Context, name string) (core.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Tag{}, core.ErrEmptyName
	}

	tags, err := s.ListTags(ctx)
	if err != nil {
		return core.Tag{}, err
	}
	for _, t := range tags {
		if strings.EqualFold(t.Name, name) {
			return t, nil
		}
	}

	tag := core.Tag{ID: s.newID(), Name: name}
	ctx = withReason(ctx, reason(core.CommitTypeFeat, "tags", fmt.Sprintf("add %q", name)))
	if err := s.store().tags.Save(ctx, tagToModel(tag)); err != nil {
		return core.Tag{}, fmt.Errorf("failed to save tag: %w", err)
	}
	return tag, nil
}

// ListTags returns every tag sorted by name.
func (s *Service) ListTags(ctx context.Context) ([]core.Tag, error) {
	models, err := s.store().tags.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	tags := make([]core.Tag, 0, len(models))
	for _, m := range models {
		tags = append(tags, tagFromModel(m))
	}
	sort.SliceStable(tags, func(i, j int) bool {
		return strings.ToLower(tags[i].Name) < strings.ToLower(tags[j].Name)
	})
	return tags, nil
}

// TagNote attaches the tag called name to a note, creating the tag if needed.
// Attaching a tag twice is a no-op.
func (s *Service) TagNote(ctx context.Context, noteID, name string) (core.Note, core.Tag, error) {
	note, err := s.GetNote(ctx, noteID)
	if err != nil {
		return core.Note{}, core.Tag{}, err
	}
	tag, err := s.AddTag(ctx, name)
	if err != nil {
		return core.Note{}, core.Tag{}, err
	}
	if note.HasTag(tag.ID) {
		return note, tag, nil
	}

	tagIDs := append(append([]string{}, note.TagIDs...), tag.ID)
	ctx = withReason(ctx, reason(core.CommitTypeChore, "notes", fmt.Sprintf("tag %q with %q", note.Title, tag.Name)))
	note, err = s.UpdateNote(ctx, noteID, NoteUpdate{TagIDs: tagIDs})
	return note, tag, err
}

// UntagNote detaches a tag from a note.
func (s *Service) UntagNote(ctx context.Context, noteID, tagID string) (core.Note, error) {
	note, err := s.GetNote(ctx, noteID)
	if err != nil {
		return core.Note{}, err
	}
	if !note.HasTag(tagID) {
		return note, nil
	}

	tagIDs := make([]string, 0, len(note.TagIDs))
	for _, id := range note.TagIDs {
		if id != tagID {
			tagIDs = append(tagIDs, id)
		}
	}
	ctx = withReason(ctx, reason(core.CommitTypeChore, "notes", fmt.Sprintf("untag %q", note.Title)))
	return s.UpdateNote(ctx, noteID, NoteUpdate{TagIDs: tagIDs})
}
