package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/studywise/pkg/core"
)

// setupTestRepo creates a repository connected to a miniredis instance.
func setupTestRepo(t *testing.T) (*Repository, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	repo, err := NewRepositoryWithClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), Config{Namespace: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.Initialize(context.Background()))
	return repo, mr
}

func TestNewRepository_RequiresNamespace(t *testing.T) {
	_, err := NewRepository(Config{Addr: "localhost:6379"})
	assert.Error(t, err)
}

func TestSaveGetListDelete(t *testing.T) {
	ctx := context.Background()
	repo, mr := setupTestRepo(t)

	doc := core.Document{
		ID:       "notes/n1",
		Content:  "The Krebs cycle",
		Metadata: core.Metadata{"title": "Krebs", "tagIds": []any{"t1"}},
	}
	require.NoError(t, repo.Save(ctx, doc))

	assert.True(t, mr.Exists(DocKey("test", "notes/n1")))
	members, err := mr.Members(IndexKey("test"))
	require.NoError(t, err)
	assert.Equal(t, []string{"notes/n1"}, members)

	got, err := repo.Get(ctx, "notes/n1")
	require.NoError(t, err)
	assert.Equal(t, "The Krebs cycle", got.Content)
	assert.Equal(t, "Krebs", got.Metadata["title"])
	assert.Equal(t, []any{"t1"}, got.Metadata["tagIds"])

	require.NoError(t, repo.Save(ctx, core.Document{ID: "courses/c1", Metadata: core.Metadata{"name": "Bio"}}))
	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "courses/c1", list[0].ID)
	assert.Equal(t, "notes/n1", list[1].ID)

	require.NoError(t, repo.Delete(ctx, "notes/n1"))
	_, err = repo.Get(ctx, "notes/n1")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "notes/n1"), core.ErrNotFound)
}

func TestSave_RecordsChangeReason(t *testing.T) {
	repo, mr := setupTestRepo(t)
	ctx := core.WithChangeReason(context.Background(), "feat(notes): add n1")
	require.NoError(t, repo.Save(ctx, core.Document{ID: "notes/n1"}))
	assert.Equal(t, "feat(notes): add n1", mr.HGet(DocKey("test", "notes/n1"), fieldReason))
}

func TestNamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	repo, mr := setupTestRepo(t)
	other, err := NewRepositoryWithClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), Config{Namespace: "other"})
	require.NoError(t, err)
	defer other.Close()

	require.NoError(t, repo.Save(ctx, core.Document{ID: "notes/a"}))
	list, err := other.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestReadOnly(t *testing.T) {
	ctx := context.Background()
	_, mr := setupTestRepo(t)
	ro, err := NewRepositoryWithClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), Config{Namespace: "test", ReadOnly: true})
	require.NoError(t, err)
	defer ro.Close()

	assert.ErrorIs(t, ro.Save(ctx, core.Document{ID: "x"}), core.ErrReadOnly)
	assert.ErrorIs(t, ro.Delete(ctx, "x"), core.ErrReadOnly)
}

func TestWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo, _ := setupTestRepo(t)

	events, err := repo.Watch(ctx, "notes/*")
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, core.Document{ID: "courses/ignored"}))
	require.NoError(t, repo.Save(ctx, core.Document{ID: "notes/a"}))
	require.NoError(t, repo.Save(ctx, core.Document{ID: "notes/a", Content: "edit"}))
	require.NoError(t, repo.Delete(ctx, "notes/a"))

	var got []core.EventType
	for len(got) < 3 {
		select {
		case e := <-events:
			assert.Equal(t, "notes/a", e.ID)
			got = append(got, e.Type)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, got %v", got)
		}
	}
	assert.Equal(t, []core.EventType{core.EventCreate, core.EventModify, core.EventDelete}, got)

	cancel()
	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("watch channel not closed")
	}
}

func TestTransaction(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupTestRepo(t)
	require.NoError(t, repo.Save(ctx, core.Document{ID: "notes/old"}))

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Save(ctx, core.Document{ID: "notes/new", Content: "n"}))
	require.NoError(t, tx.Delete(ctx, "notes/old"))

	_, err = repo.Get(ctx, "notes/new")
	assert.ErrorIs(t, err, core.ErrNotFound, "staged writes stay invisible until commit")

	list, err := tx.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "notes/new", list[0].ID)

	require.NoError(t, tx.Commit(ctx, "refactor: replace note"))

	list, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "notes/new", list[0].ID)
	assert.ErrorIs(t, tx.Commit(ctx, ""), ErrTransactionClosed)
}

func TestTransaction_Rollback(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupTestRepo(t)

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Save(ctx, core.Document{ID: "notes/draft"}))
	require.NoError(t, tx.Rollback(ctx))

	_, err = repo.Get(ctx, "notes/draft")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestState(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupTestRepo(t)
	require.NoError(t, repo.Save(ctx, core.Document{ID: "notes/a"}))

	state := repo.State().(RepositoryState)
	assert.Equal(t, "redis", state.Adapter)
	assert.Equal(t, "test", state.Namespace)
	assert.Equal(t, int64(1), state.Documents)
	assert.True(t, state.Reachable)
	assert.Equal(t, "redis-repository", repo.ComponentType())
}
