package study

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aretw0/studywise/pkg/core"
	"github.com/aretw0/studywise/pkg/typed"
)

// BackupFileName is the default name of an exported backup.
const BackupFileName = "studywise_backup.json"

// ImportMode selects how Import treats records already in the vault.
type ImportMode string

const (
	// ImportMerge upserts every record of the backup by id.
	ImportMerge ImportMode = "merge"
	// ImportReplace removes every course, note and tag before restoring.
	ImportReplace ImportMode = "replace"
)

// ErrInvalidBackup is returned when an import payload cannot be used.
var ErrInvalidBackup = errors.New("invalid backup")

// Backup is the full export of a vault.
type Backup struct {
	Courses    []core.Course `json:"courses"`
	Notes      []core.Note   `json:"notes"`
	Tags       []core.Tag    `json:"tags"`
	ExportedAt time.Time     `json:"exportedAt"`
}

// ImportStats counts what Import wrote and removed.
type ImportStats struct {
	Courses int `json:"courses"`
	Notes   int `json:"notes"`
	Tags    int `json:"tags"`
	Removed int `json:"removed"`
}

// ParseImportMode accepts "merge" (also the empty string) and "replace".
func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ImportMerge:
		return ImportMerge, nil
	case ImportReplace:
		return ImportReplace, nil
	default:
		return "", fmt.Errorf("unknown import mode %q (want merge or replace)", s)
	}
}

// Snapshot collects every record of the vault.
func (s *Service) Snapshot(ctx context.Context) (Backup, error) {
	courses, err := s.ListCourses(ctx)
	if err != nil {
		return Backup{}, err
	}
	notes, err := s.ListNotes(ctx, NoteFilter{})
	if err != nil {
		return Backup{}, err
	}
	tags, err := s.ListTags(ctx)
	if err != nil {
		return Backup{}, err
	}
	return Backup{Courses: courses, Notes: notes, Tags: tags, ExportedAt: s.timestamp()}, nil
}

// Export writes the vault as indented JSON.
func (s *Service) Export(ctx context.Context, w io.Writer) (Backup, error) {
	b, err := s.Snapshot(ctx)
	if err != nil {
		return Backup{}, err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return Backup{}, fmt.Errorf("failed to write backup: %w", err)
	}
	return b, nil
}

// Import restores a backup read from r.
func (s *Service) Import(ctx context.Context, r io.Reader, mode ImportMode) (ImportStats, error) {
	var b Backup
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return ImportStats{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	return s.Restore(ctx, b, mode)
}

// Restore writes b into the vault in one batch.
//
// The backup is held to the same rules as the rest of the service: tags that
// match an existing tag name case-insensitively are merged into it, notes must
// belong to a course of the backup or of the vault, unknown tag ids are
// dropped and blank titles become DefaultNoteTitle. A backup that breaks a
// rule which cannot be repaired is rejected before anything is written.
func (s *Service) Restore(ctx context.Context, b Backup, mode ImportMode) (ImportStats, error) {
	if mode != ImportMerge && mode != ImportReplace {
		return ImportStats{}, fmt.Errorf("unknown import mode %q", mode)
	}
	if err := validateBackup(b); err != nil {
		return ImportStats{}, err
	}
	b, err := s.reconcile(ctx, b, mode)
	if err != nil {
		return ImportStats{}, err
	}

	var stats ImportStats
	subject := fmt.Sprintf("import %d courses, %d notes, %d tags (%s)", len(b.Courses), len(b.Notes), len(b.Tags), mode)
	err = s.batch(ctx, reason(core.CommitTypeChore, "backup", subject), func(c collections) error {
		if mode == ImportReplace {
			removed, err := clearVault(ctx, c)
			if err != nil {
				return err
			}
			stats.Removed = removed
		}
		for _, course := range b.Courses {
			if err := c.courses.Save(ctx, courseToModel(course)); err != nil {
				return fmt.Errorf("course %s: %w", course.ID, err)
			}
			stats.Courses++
		}
		for _, tag := range b.Tags {
			if err := c.tags.Save(ctx, tagToModel(tag)); err != nil {
				return fmt.Errorf("tag %s: %w", tag.ID, err)
			}
			stats.Tags++
		}
		for _, note := range b.Notes {
			if err := c.notes.Save(ctx, noteToModel(note)); err != nil {
				return fmt.Errorf("note %s: %w", note.ID, err)
			}
			stats.Notes++
		}
		return nil
	})
	if err != nil {
		return ImportStats{}, err
	}

	s.logger.Info("backup restored", "mode", mode, "courses", stats.Courses, "notes", stats.Notes, "tags", stats.Tags, "removed", stats.Removed)
	return stats, nil
}

// clearVault deletes every course, note and tag reachable through c.
func clearVault(ctx context.Context, c collections) (int, error) {
	removed := 0

	notes, err := c.notes.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, n := range notes {
		if err := c.notes.Delete(ctx, n.ID); err != nil {
			return removed, err
		}
		removed++
	}

	courses, err := c.courses.List(ctx)
	if err != nil {
		return removed, err
	}
	for _, m := range courses {
		if err := c.courses.Delete(ctx, m.ID); err != nil {
			return removed, err
		}
		removed++
	}

	tags, err := c.tags.List(ctx)
	if err != nil {
		return removed, err
	}
	for _, m := range tags {
		if err := c.tags.Delete(ctx, m.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func validateBackup(b Backup) error {
	for _, c := range b.Courses {
		if !typed.ValidID(c.ID) {
			return fmt.Errorf("%w: course id %q", ErrInvalidBackup, c.ID)
		}
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("%w: course %s has no name", ErrInvalidBackup, c.ID)
		}
	}
	for _, t := range b.Tags {
		if !typed.ValidID(t.ID) {
			return fmt.Errorf("%w: tag id %q", ErrInvalidBackup, t.ID)
		}
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("%w: tag %s has no name", ErrInvalidBackup, t.ID)
		}
	}
	for _, n := range b.Notes {
		if !typed.ValidID(n.ID) {
			return fmt.Errorf("%w: note id %q", ErrInvalidBackup, n.ID)
		}
	}
	return nil
}

// reconcile rewrites b against the records the vault keeps after the import
// (none for ImportReplace).
func (s *Service) reconcile(ctx context.Context, b Backup, mode ImportMode) (Backup, error) {
	courseIDs := make(map[string]bool)
	tagByName := make(map[string]string)
	tagIDs := make(map[string]bool)
	if mode == ImportMerge {
		courses, err := s.ListCourses(ctx)
		if err != nil {
			return Backup{}, err
		}
		for _, c := range courses {
			courseIDs[c.ID] = true
		}
		tags, err := s.ListTags(ctx)
		if err != nil {
			return Backup{}, err
		}
		for _, t := range tags {
			tagByName[strings.ToLower(t.Name)] = t.ID
			tagIDs[t.ID] = true
		}
	}

	out := Backup{ExportedAt: b.ExportedAt}
	for _, c := range b.Courses {
		c.Name = strings.TrimSpace(c.Name)
		courseIDs[c.ID] = true
		out.Courses = append(out.Courses, c)
	}

	// alias maps a backup tag id onto the vault tag with the same name.
	alias := make(map[string]string)
	for _, t := range b.Tags {
		t.Name = strings.TrimSpace(t.Name)
		key := strings.ToLower(t.Name)
		if id, ok := tagByName[key]; ok && id != t.ID {
			alias[t.ID] = id
			continue
		}
		tagByName[key] = t.ID
		tagIDs[t.ID] = true
		out.Tags = append(out.Tags, t)
	}

	for _, n := range b.Notes {
		if !courseIDs[n.CourseID] {
			return Backup{}, fmt.Errorf("%w: note %s belongs to unknown course %q", ErrInvalidBackup, n.ID, n.CourseID)
		}
		if strings.TrimSpace(n.Title) == "" {
			n.Title = DefaultNoteTitle
		}
		ids := make([]string, 0, len(n.TagIDs))
		seen := make(map[string]bool, len(n.TagIDs))
		for _, id := range n.TagIDs {
			if to, ok := alias[id]; ok {
				id = to
			}
			if !tagIDs[id] || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
		n.TagIDs = ids
		out.Notes = append(out.Notes, n)
	}
	return out, nil
}
