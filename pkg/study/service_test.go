package study_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/studywise/pkg/core"
	"github.com/aretw0/studywise/pkg/study"
)

func newService(repo core.Repository, opts ...study.Option) *study.Service {
	base := []study.Option{
		study.WithClock(newClock().Now),
		study.WithIDGenerator(sequence("id")),
	}
	return study.New(repo, append(base, opts...)...)
}

func TestCourses(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := newService(repo)

	bio, err := svc.AddCourse(ctx, "  Biology ")
	require.NoError(t, err)
	assert.Equal(t, "id-01", bio.ID)
	assert.Equal(t, "Biology", bio.Name)
	assert.Contains(t, repo.lastReason(), `feat(courses): add "Biology"`)
	assert.Contains(t, repo.lastReason(), core.Footer)

	_, err = svc.AddCourse(ctx, "   ")
	assert.ErrorIs(t, err, core.ErrEmptyName)

	chem, err := svc.AddCourse(ctx, "Chemistry")
	require.NoError(t, err)

	courses, err := svc.ListCourses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, chem.ID, courses[0].ID, "newest first")
	assert.Equal(t, bio.ID, courses[1].ID)

	renamed, err := svc.RenameCourse(ctx, bio.ID, "Bio 101")
	require.NoError(t, err)
	got, err := svc.GetCourse(ctx, bio.ID)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(renamed, got))
	assert.True(t, got.CreatedAt.Equal(bio.CreatedAt), "rename keeps the creation time")

	_, err = svc.RenameCourse(ctx, bio.ID, "")
	assert.ErrorIs(t, err, core.ErrEmptyName)

	_, err = svc.GetCourse(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeleteCourse_Cascades(t *testing.T) {
	ctx := context.Background()

	run := func(t *testing.T, repo core.Repository) *study.Service {
		svc := newService(repo)
		a, err := svc.AddCourse(ctx, "A")
		require.NoError(t, err)
		b, err := svc.AddCourse(ctx, "B")
		require.NoError(t, err)
		for _, c := range []core.Course{a, a, b} {
			_, err := svc.AddNote(ctx, study.NoteDraft{CourseID: c.ID, Content: "x"})
			require.NoError(t, err)
		}

		removed, err := svc.DeleteCourse(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		notes, err := svc.ListNotes(ctx, study.NoteFilter{})
		require.NoError(t, err)
		require.Len(t, notes, 1)
		assert.Equal(t, b.ID, notes[0].CourseID)

		_, err = svc.GetCourse(ctx, a.ID)
		assert.ErrorIs(t, err, core.ErrNotFound)
		return svc
	}

	t.Run("transactional store commits once", func(t *testing.T) {
		repo := &txRepo{memRepo: newMemRepo()}
		run(t, repo)
		require.Len(t, repo.commits, 1)
		assert.Contains(t, repo.commits[0], `feat(courses): delete "A"`)
	})

	t.Run("plain store", func(t *testing.T) {
		run(t, newMemRepo())
	})
}

func TestAddNote(t *testing.T) {
	ctx := context.Background()
	svc := newService(newMemRepo())
	course, err := svc.AddCourse(ctx, "Biology")
	require.NoError(t, err)

	_, err = svc.AddNote(ctx, study.NoteDraft{Title: "orphan"})
	assert.ErrorIs(t, err, core.ErrCourseRequired)
	_, err = svc.AddNote(ctx, study.NoteDraft{CourseID: study.AllCourses})
	assert.ErrorIs(t, err, core.ErrCourseRequired)
	_, err = svc.AddNote(ctx, study.NoteDraft{CourseID: "nope"})
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = svc.AddNote(ctx, study.NoteDraft{CourseID: course.ID, VideoURL: "ftp://files.test/a.mp4"})
	assert.ErrorIs(t, err, study.ErrInvalidURL)

	note, err := svc.AddNote(ctx, study.NoteDraft{CourseID: course.ID, Content: "# Cells\n\n==ATP=="})
	require.NoError(t, err)
	assert.Equal(t, study.DefaultNoteTitle, note.Title)
	assert.NotNil(t, note.TagIDs)
	assert.Empty(t, note.TagIDs)
	assert.True(t, note.CreatedAt.Equal(note.UpdatedAt))

	got, err := svc.GetNote(ctx, note.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(note, got); diff != "" {
		t.Errorf("stored note mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateNote(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := newService(repo)
	course, _ := svc.AddCourse(ctx, "Biology")
	other, _ := svc.AddCourse(ctx, "Chemistry")
	note, err := svc.AddNote(ctx, study.NoteDraft{CourseID: course.ID, Title: "Cells"})
	require.NoError(t, err)

	blank := "  "
	_, err = svc.UpdateNote(ctx, note.ID, study.NoteUpdate{Title: &blank})
	assert.ErrorIs(t, err, core.ErrEmptyTitle)

	content := "Mitochondria"
	updated, err := svc.UpdateNote(ctx, note.ID, study.NoteUpdate{Content: &content, CourseID: &other.ID})
	require.NoError(t, err)
	assert.Equal(t, "Cells", updated.Title)
	assert.Equal(t, "Mitochondria", updated.Content)
	assert.Equal(t, other.ID, updated.CourseID)
	assert.True(t, updated.UpdatedAt.After(note.UpdatedAt))
	assert.Contains(t, repo.lastReason(), `docs(notes): update "Cells"`)

	missing := "nope"
	_, err = svc.UpdateNote(ctx, note.ID, study.NoteUpdate{CourseID: &missing})
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.UpdateNote(ctx, "missing", study.NoteUpdate{})
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, svc.DeleteNote(ctx, note.ID))
	_, err = svc.GetNote(ctx, note.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestListNotes(t *testing.T) {
	ctx := context.Background()
	svc := newService(newMemRepo())
	course, _ := svc.AddCourse(ctx, "Biology")
	other, _ := svc.AddCourse(ctx, "History")

	n1, _ := svc.AddNote(ctx, study.NoteDraft{CourseID: course.ID, Title: "one"})
	n2, _ := svc.AddNote(ctx, study.NoteDraft{CourseID: course.ID, Title: "two"})
	n3, _ := svc.AddNote(ctx, study.NoteDraft{CourseID: course.ID, Title: "three"})
	n4, _ := svc.AddNote(ctx, study.NoteDraft{CourseID: other.ID, Title: "four"})

	pinned, err := svc.TogglePin(ctx, n1.ID)
	require.NoError(t, err)
	assert.True(t, pinned.Pinned)

	ids := func(notes []core.Note) []string {
		out := make([]string, len(notes))
		for i, n := range notes {
			out[i] = n.ID
		}
		return out
	}

	notes, err := svc.ListNotes(ctx, study.NoteFilter{CourseID: course.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{n1.ID, n3.ID, n2.ID}, ids(notes), "pinned first, then most recent")

	notes, err = svc.ListNotes(ctx, study.NoteFilter{CourseID: study.AllCourses})
	require.NoError(t, err)
	assert.Equal(t, []string{n1.ID, n4.ID, n3.ID, n2.ID}, ids(notes))

	notes, err = svc.ListNotes(ctx, study.NoteFilter{PinnedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{n1.ID}, ids(notes))

	_, tag, err := svc.TagNote(ctx, n2.ID, "exam")
	require.NoError(t, err)
	notes, err = svc.ListNotes(ctx, study.NoteFilter{TagIDs: []string{tag.ID}})
	require.NoError(t, err)
	assert.Equal(t, []string{n2.ID}, ids(notes))

	_, _, err = svc.TagNote(ctx, n3.ID, "exam")
	require.NoError(t, err)
	_, hard, err := svc.TagNote(ctx, n3.ID, "hard")
	require.NoError(t, err)
	_, _, err = svc.TagNote(ctx, n4.ID, "hard")
	require.NoError(t, err)
	notes, err = svc.ListNotes(ctx, study.NoteFilter{TagIDs: []string{tag.ID, hard.ID}})
	require.NoError(t, err)
	assert.Equal(t, []string{n3.ID}, ids(notes), "every tag must match")

	unpinned, err := svc.TogglePin(ctx, n1.ID)
	require.NoError(t, err)
	assert.False(t, unpinned.Pinned)
}

func TestSetVideo(t *testing.T) {
	ctx := context.Background()
	svc := newService(newMemRepo())
	course, _ := svc.AddCourse(ctx, "Biology")
	note, _ := svc.AddNote(ctx, study.NoteDraft{CourseID: course.ID})

	updated, err := svc.SetVideo(ctx, note.ID, " https://video.test/watch?v=1 ")
	require.NoError(t, err)
	assert.Equal(t, "https://video.test/watch?v=1", updated.VideoURL)

	_, err = svc.SetVideo(ctx, note.ID, "not a url")
	assert.ErrorIs(t, err, study.ErrInvalidURL)

	cleared, err := svc.SetVideo(ctx, note.ID, "")
	require.NoError(t, err)
	assert.Empty(t, cleared.VideoURL)
}

func TestAddImage(t *testing.T) {
	ctx := context.Background()
	svc := newService(newMemRepo())
	course, _ := svc.AddCourse(ctx, "Biology")
	note, _ := svc.AddNote(ctx, study.NoteDraft{CourseID: course.ID, Content: "# Cells\n"})

	updated, err := svc.AddImage(ctx, note.ID, "https://img.test/cell diagram.png", "Cell [labelled]")
	require.NoError(t, err)
	assert.Equal(t, "# Cells\n\n![Cell labelled](https://img.test/cell%20diagram.png)\n", updated.Content)

	empty, _ := svc.AddNote(ctx, study.NoteDraft{CourseID: course.ID})
	updated, err = svc.AddImage(ctx, empty.ID, "http://img.test/a.png", "")
	require.NoError(t, err)
	assert.Equal(t, "![](http://img.test/a.png)\n", updated.Content)

	for _, bad := range []string{"", "ftp://img.test/a.png", "a.png"} {
		_, err = svc.AddImage(ctx, note.ID, bad, "x")
		assert.ErrorIs(t, err, study.ErrInvalidURL, "url %q", bad)
	}
	_, err = svc.AddImage(ctx, "missing", "https://img.test/a.png", "")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestReact(t *testing.T) {
	ctx := context.Background()
	svc := newService(newMemRepo())
	course, _ := svc.AddCourse(ctx, "Biology")
	note, _ := svc.AddNote(ctx, study.NoteDraft{CourseID: course.ID})

	note, err := svc.React(ctx, note.ID, "Like", 1)
	require.NoError(t, err)
	note, err = svc.React(ctx, note.ID, "like", 2)
	require.NoError(t, err)
	assert.Equal(t, core.Reactions{"like": 3}, note.Reactions)

	note, err = svc.React(ctx, note.ID, "like", -10)
	require.NoError(t, err)
	assert.Nil(t, note.Reactions, "counts never drop below zero")

	stored, err := svc.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Reactions)

	_, err = svc.React(ctx, note.ID, " ", 1)
	assert.ErrorIs(t, err, core.ErrEmptyName)
}

func TestTags(t *testing.T) {
	ctx := context.Background()
	svc := newService(newMemRepo())

	exam, err := svc.AddTag(ctx, "Exam")
	require.NoError(t, err)
	again, err := svc.AddTag(ctx, " exam ")
	require.NoError(t, err)
	assert.Equal(t, exam, again, "names are unique case-insensitively")

	_, err = svc.AddTag(ctx, "")
	assert.ErrorIs(t, err, core.ErrEmptyName)

	_, err = svc.AddTag(ctx, "biology")
	require.NoError(t, err)
	tags, err := svc.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "biology", tags[0].Name)
	assert.Equal(t, "Exam", tags[1].Name)

	course, _ := svc.AddCourse(ctx, "Biology")
	note, _ := svc.AddNote(ctx, study.NoteDraft{CourseID: course.ID})

	note, tag, err := svc.TagNote(ctx, note.ID, "EXAM")
	require.NoError(t, err)
	assert.Equal(t, exam.ID, tag.ID)
	note, _, err = svc.TagNote(ctx, note.ID, "exam")
	require.NoError(t, err)
	assert.Equal(t, []string{exam.ID}, note.TagIDs, "attached once")

	note, err = svc.UntagNote(ctx, note.ID, exam.ID)
	require.NoError(t, err)
	assert.Empty(t, note.TagIDs)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	svc := newService(newMemRepo())
	bio, _ := svc.AddCourse(ctx, "biology")
	_, _ = svc.AddCourse(ctx, "chemistry")
	_, _ = svc.AddNote(ctx, study.NoteDraft{CourseID: bio.ID, Title: "cell biology"})

	results, err := svc.Search(ctx, "bio", 0)
	require.NoError(t, err)
	require.Len(t, results, 2)

	titles := []string{results[0].Title, results[1].Title}
	assert.ElementsMatch(t, []string{"biology", "cell biology"}, titles)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score, "best match first")
	for _, r := range results {
		if r.Kind == study.KindNote {
			assert.Equal(t, bio.ID, r.CourseID)
		}
		assert.Len(t, r.Matched, 3)
	}

	limited, err := svc.Search(ctx, "bio", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := svc.Search(ctx, "zzz", 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	empty, err := svc.Search(ctx, "  ", 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestReviewDeck(t *testing.T) {
	ctx := context.Background()
	svc := newService(newMemRepo())
	bio, _ := svc.AddCourse(ctx, "Biology")
	chem, _ := svc.AddCourse(ctx, "Chemistry")
	_, _ = svc.AddNote(ctx, study.NoteDraft{CourseID: bio.ID, Title: "Cells"})
	_, _ = svc.AddNote(ctx, study.NoteDraft{CourseID: chem.ID, Title: "Atoms"})

	_, err := svc.ReviewDeck(ctx, "")
	assert.ErrorIs(t, err, core.ErrCourseRequired)
	_, err = svc.ReviewDeck(ctx, study.AllCourses)
	assert.ErrorIs(t, err, core.ErrCourseRequired)

	deck, err := svc.ReviewDeck(ctx, bio.ID)
	require.NoError(t, err)
	require.Len(t, deck, 1)
	assert.Equal(t, "Cells", deck[0].Title)
}

func TestState(t *testing.T) {
	svc := newService(&txRepo{memRepo: newMemRepo()}, study.WithEventBuffer(7))
	state, ok := svc.State().(study.ServiceState)
	require.True(t, ok)
	assert.Equal(t, 7, state.EventBufferSize)
	assert.Equal(t, "repository", state.RepositoryType)
	assert.True(t, state.Transactional)
	assert.Equal(t, "study-service", svc.ComponentType())

	_, err := newService(newMemRepo()).Begin(context.Background())
	assert.ErrorIs(t, err, study.ErrNoTransactions)
}
