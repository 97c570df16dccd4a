package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/studywise/pkg/adapters/fs"
	"github.com/aretw0/studywise/pkg/core"
	"github.com/aretw0/studywise/pkg/git"
)

// gitIdentity lets commits succeed on machines without a global git config.
func gitIdentity(t *testing.T) {
	t.Helper()
	if !git.IsInstalled() {
		t.Skip("git not installed")
	}
	t.Setenv("GIT_AUTHOR_NAME", "Test")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "Test")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@example.com")
}

// setupRepo creates an initialized gitless vault unless opts say otherwise.
func setupRepo(t *testing.T, opts ...func(*fs.Config)) (*fs.Repository, string) {
	t.Helper()
	vaultPath := filepath.Join(t.TempDir(), "vault")
	cfg := fs.Config{Path: vaultPath, AutoInit: true, Gitless: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	repo := fs.NewRepository(cfg)
	require.NoError(t, repo.Initialize(context.Background()))
	return repo, vaultPath
}

func TestInitialize(t *testing.T) {
	t.Run("creates directory", func(t *testing.T) {
		_, path := setupRepo(t)
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("must exist", func(t *testing.T) {
		repo := fs.NewRepository(fs.Config{Path: filepath.Join(t.TempDir(), "missing"), MustExist: true, Gitless: true})
		assert.Error(t, repo.Initialize(context.Background()))
	})

	t.Run("git init and ignore", func(t *testing.T) {
		gitIdentity(t)
		_, path := setupRepo(t, func(c *fs.Config) { c.Gitless = false })
		assert.DirExists(t, filepath.Join(path, ".git"))

		ignore, err := os.ReadFile(filepath.Join(path, ".gitignore"))
		require.NoError(t, err)
		assert.Contains(t, string(ignore), ".studywise/")
	})
}

func TestSaveGetList(t *testing.T) {
	ctx := context.Background()
	repo, path := setupRepo(t)

	doc := core.Document{
		ID:      "notes/n1",
		Content: "Mitochondria is the powerhouse.",
		Metadata: core.Metadata{
			"title":    "Cells",
			"courseId": "bio",
		},
	}
	require.NoError(t, repo.Save(ctx, doc))

	raw, err := os.ReadFile(filepath.Join(path, "notes", "n1.md"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "---\n"))
	assert.Contains(t, string(raw), "title: Cells")

	got, err := repo.Get(ctx, "notes/n1")
	require.NoError(t, err)
	assert.Equal(t, "notes/n1", got.ID)
	assert.Equal(t, doc.Content, got.Content)
	assert.Equal(t, "bio", got.Metadata["courseId"])

	require.NoError(t, repo.Save(ctx, core.Document{ID: "tags/t1", Metadata: core.Metadata{"name": "exam"}}))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "notes/n1", list[0].ID)
	assert.Equal(t, "tags/t1", list[1].ID)

	// The second listing is served from the index and must match.
	again, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, list, again)
	assert.FileExists(t, filepath.Join(path, ".studywise", "index.json"))
}

func TestGet_OtherFormats(t *testing.T) {
	ctx := context.Background()
	repo, path := setupRepo(t)

	require.NoError(t, os.MkdirAll(filepath.Join(path, "courses"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "courses", "chem.json"), []byte(`{"name":"Chemistry"}`), 0644))

	got, err := repo.Get(ctx, "courses/chem")
	require.NoError(t, err)
	assert.Equal(t, "Chemistry", got.Metadata["name"])

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "courses/chem.json", list[0].ID)
}

func TestList_SkipsVaultConfig(t *testing.T) {
	ctx := context.Background()
	repo, path := setupRepo(t)

	require.NoError(t, os.WriteFile(filepath.Join(path, fs.ConfigFile), []byte("version: \"1\"\nstorage:\n  adapter: fs\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(path, "courses"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "courses", fs.ConfigFile), []byte("name: Nested\n"), 0644))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "courses/"+fs.ConfigFile, list[0].ID)

	assert.ErrorIs(t, repo.Save(ctx, core.Document{ID: fs.ConfigFile}), fs.ErrInvalidID)
}

func TestGet_NotFound(t *testing.T) {
	repo, _ := setupRepo(t)
	_, err := repo.Get(context.Background(), "notes/missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	repo, path := setupRepo(t)

	require.NoError(t, repo.Save(ctx, core.Document{ID: "notes/gone", Content: "x"}))
	require.NoError(t, repo.Delete(ctx, "notes/gone"))
	assert.NoFileExists(t, filepath.Join(path, "notes", "gone.md"))

	assert.ErrorIs(t, repo.Delete(ctx, "notes/gone"), core.ErrNotFound)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestInvalidIDs(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepo(t)

	for _, id := range []string{"", "  ", "../escape", "/abs", ".studywise/index", ".git/config"} {
		err := repo.Save(ctx, core.Document{ID: id})
		assert.ErrorIs(t, err, fs.ErrInvalidID, "id %q", id)
	}
}

func TestReadOnly(t *testing.T) {
	ctx := context.Background()
	_, path := setupRepo(t)

	ro := fs.NewRepository(fs.Config{Path: path, ReadOnly: true})
	require.NoError(t, ro.Initialize(ctx))

	assert.ErrorIs(t, ro.Save(ctx, core.Document{ID: "notes/x"}), core.ErrReadOnly)
	assert.ErrorIs(t, ro.Delete(ctx, "notes/x"), core.ErrReadOnly)
	_, err := ro.Begin(ctx)
	assert.ErrorIs(t, err, core.ErrReadOnly)
}

func TestSync_ReadOnly(t *testing.T) {
	gitIdentity(t)
	ctx := context.Background()
	_, path := setupRepo(t, func(c *fs.Config) { c.Gitless = false })

	ro := fs.NewRepository(fs.Config{Path: path, ReadOnly: true})
	require.NoError(t, ro.Initialize(ctx))

	err := ro.Sync(ctx)
	assert.ErrorIs(t, err, core.ErrReadOnly, "a read-only vault never pulls or pushes")
}

func TestSync_Gitless(t *testing.T) {
	repo, _ := setupRepo(t)
	assert.ErrorIs(t, repo.Sync(context.Background()), core.ErrUnsupported)
}

func TestVersionedSave(t *testing.T) {
	gitIdentity(t)
	ctx := context.Background()
	repo, path := setupRepo(t, func(c *fs.Config) { c.Gitless = false })
	client := git.NewClient(path, "", nil)

	ctx = core.WithChangeReason(ctx, "feat(notes): add cells")
	require.NoError(t, repo.Save(ctx, core.Document{ID: "notes/cells", Content: "x"}))

	log, err := client.Run("log", "-1", "--format=%B")
	require.NoError(t, err)
	assert.Contains(t, log, "feat(notes): add cells")
	assert.Contains(t, log, core.Footer)

	require.NoError(t, repo.Delete(ctx, "notes/cells"))
	status, err := client.Status()
	require.NoError(t, err)
	assert.Empty(t, status)
}

func TestState(t *testing.T) {
	repo, path := setupRepo(t)
	_, err := repo.List(context.Background())
	require.NoError(t, err)

	state, ok := repo.State().(fs.RepositoryState)
	require.True(t, ok)
	assert.Equal(t, "fs", state.Adapter)
	assert.Equal(t, path, state.Path)
	assert.Equal(t, []string{".json", ".md", ".yaml", ".yml"}, state.Formats)
	assert.Equal(t, "fs-repository", repo.ComponentType())
}
