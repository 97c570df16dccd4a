package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/studywise/pkg/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo := NewRepository(Config{Path: t.TempDir(), Gitless: true})
	require.NoError(t, repo.Initialize(context.Background()))
	return repo
}

func nextEvent(t *testing.T, events <-chan core.Event) core.Event {
	t.Helper()
	select {
	case e, ok := <-events:
		require.True(t, ok, "events channel closed")
		return e
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
		return core.Event{}
	}
}

func TestWatch_CreateAndDelete(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo := newTestRepo(t)

	events, err := repo.Watch(ctx, "notes/**")
	require.NoError(t, err)
	assert.True(t, repo.State().(RepositoryState).WatcherActive)

	require.NoError(t, os.MkdirAll(filepath.Join(repo.Path, "notes"), 0755))
	// Give the watcher a moment to register the new directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(repo.Path, "notes", "a.md"), []byte("hello"), 0644))

	e := nextEvent(t, events)
	assert.Equal(t, "notes/a", e.ID)
	assert.Equal(t, core.EventCreate, e.Type)

	require.NoError(t, os.Remove(filepath.Join(repo.Path, "notes", "a.md")))
	e = nextEvent(t, events)
	assert.Equal(t, "notes/a", e.ID)
	assert.Equal(t, core.EventDelete, e.Type)
}

func TestWatch_FiltersAndCloses(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	repo := newTestRepo(t)

	events, err := repo.Watch(ctx, "courses/*")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(repo.Path, "ignored.md"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(repo.Path, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(repo.Path, ".studywise"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(repo.Path, ".studywise", "index.md"), []byte("x"), 0644))

	select {
	case e := <-events:
		t.Fatalf("unexpected event %s", e)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("events channel not closed after cancel")
	}
}

func TestWatch_IgnoresVaultConfig(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo := newTestRepo(t)

	events, err := repo.Watch(ctx, "**")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(repo.Path, ConfigFile), []byte("version: \"1\"\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(repo.Path, "after.md"), []byte("x"), 0644))

	e := nextEvent(t, events)
	assert.Equal(t, "after", e.ID)
}

func TestWatch_InvalidPattern(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.Watch(context.Background(), "notes/[")
	assert.Error(t, err)
}

func TestDebouncer_Merges(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	out := make(chan core.Event, 10)
	emit := func(e core.Event) { out <- e }

	d.add(core.Event{Type: core.EventCreate, ID: "notes/a"}, emit)
	d.add(core.Event{Type: core.EventModify, ID: "notes/a"}, emit)
	d.add(core.Event{Type: core.EventModify, ID: "notes/a"}, emit)
	d.add(core.Event{Type: core.EventModify, ID: "notes/b"}, emit)

	got := map[string]core.EventType{}
	for i := 0; i < 2; i++ {
		select {
		case e := <-out:
			got[e.ID] = e.Type
		case <-time.After(time.Second):
			t.Fatal("timed out")
		}
	}
	assert.Equal(t, core.EventCreate, got["notes/a"])
	assert.Equal(t, core.EventModify, got["notes/b"])

	d.stopAndWait(time.Second)
	d.add(core.Event{Type: core.EventModify, ID: "notes/c"}, emit)
	select {
	case e := <-out:
		t.Fatalf("event after stop: %s", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.Save(ctx, core.Document{ID: "notes/keep", Content: "1"}))
	require.NoError(t, repo.Save(ctx, core.Document{ID: "notes/drop", Content: "1"}))

	_, err := repo.Reconcile(ctx)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(repo.Path, "notes", "drop.md")))
	require.NoError(t, os.WriteFile(filepath.Join(repo.Path, "notes", "fresh.md"), []byte("new"), 0644))

	events, err := repo.Reconcile(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, core.Event{Type: core.EventDelete, ID: "notes/drop", Timestamp: events[0].Timestamp}, events[0])
	assert.Equal(t, core.Event{Type: core.EventCreate, ID: "notes/fresh", Timestamp: events[1].Timestamp}, events[1])
	assert.NotNil(t, repo.State().(RepositoryState).LastReconcile)
}
