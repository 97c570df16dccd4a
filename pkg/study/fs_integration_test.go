package study_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/studywise/pkg/adapters/fs"
	"github.com/aretw0/studywise/pkg/core"
	"github.com/aretw0/studywise/pkg/study"
)

func openVault(t *testing.T, path string) *fs.Repository {
	t.Helper()
	repo := fs.NewRepository(fs.Config{Path: path, AutoInit: true, Gitless: true})
	require.NoError(t, repo.Initialize(context.Background()))
	return repo
}

func TestService_MarkdownVault(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vault")

	svc := study.New(openVault(t, path))
	course, err := svc.AddCourse(ctx, "Biology")
	require.NoError(t, err)
	note, err := svc.AddNote(ctx, study.NoteDraft{
		CourseID: course.ID,
		Title:    "Cells",
		Content:  "# Cells\n\nThe ==mitochondria== makes ATP.\n",
	})
	require.NoError(t, err)
	note, _, err = svc.TagNote(ctx, note.ID, "exam")
	require.NoError(t, err)
	note, err = svc.React(ctx, note.ID, "like", 1)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(path, study.NotesCollection, note.ID+".md"))
	require.NoError(t, err, "notes are markdown files")

	// A fresh process sees the same data.
	reopened := study.New(openVault(t, path))
	got, err := reopened.GetNote(ctx, note.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(note, got); diff != "" {
		t.Errorf("note after reopen (-want +got):\n%s", diff)
	}

	removed, err := reopened.DeleteCourse(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	notes, err := reopened.ListNotes(ctx, study.NoteFilter{})
	require.NoError(t, err)
	assert.Empty(t, notes)
	tags, err := reopened.ListTags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 1, "tags outlive the notes that used them")
}

func TestService_IDsCannotCrossCollections(t *testing.T) {
	ctx := context.Background()
	svc := study.New(openVault(t, filepath.Join(t.TempDir(), "vault")))

	course, err := svc.AddCourse(ctx, "Biology")
	require.NoError(t, err)
	note, err := svc.AddNote(ctx, study.NoteDraft{CourseID: course.ID, Title: "Cells"})
	require.NoError(t, err)

	escaped := "../" + study.CoursesCollection + "/" + course.ID
	err = svc.DeleteNote(ctx, escaped)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, err, core.ErrInvalidID)

	_, err = svc.GetNote(ctx, escaped)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = svc.TogglePin(ctx, escaped)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = svc.GetCourse(ctx, "../"+study.NotesCollection+"/"+note.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	got, err := svc.GetCourse(ctx, course.ID)
	require.NoError(t, err, "the course survives")
	assert.Equal(t, "Biology", got.Name)
	_, err = svc.GetNote(ctx, note.ID)
	assert.NoError(t, err)
}
