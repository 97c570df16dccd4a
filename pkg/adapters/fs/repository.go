// Package fs stores StudyWise documents as plain files in a directory,
// optionally versioned with git.
package fs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/studywise/pkg/core"
	"github.com/aretw0/studywise/pkg/git"
)

const (
	// DefaultSystemDir holds the index, the git lock and other private state.
	DefaultSystemDir = ".studywise"
	defaultExt       = ".md"
)

// ConfigFile is the vault configuration kept at the root. It is never a document.
const ConfigFile = "studywise.yaml"

// ErrInvalidID is returned for IDs that are empty or escape the vault.
var ErrInvalidID = core.ErrInvalidID

// Config holds the configuration for the filesystem repository.
type Config struct {
	Path      string
	AutoInit  bool
	Gitless   bool
	MustExist bool
	ReadOnly  bool
	Strict    bool
	Logger    *slog.Logger
	SystemDir string
	// ErrorHandler receives failures from background watchers.
	ErrorHandler func(error)
}

// Repository implements core.Repository on top of the filesystem and git.
type Repository struct {
	Path        string
	config      Config
	git         *git.Client
	cache       *cache
	serializers map[string]Serializer

	mu            sync.RWMutex
	watcherActive bool
	lastReconcile *time.Time
}

// NewRepository creates a filesystem-backed repository. Call Initialize before use.
func NewRepository(config Config) *Repository {
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Repository{
		Path:        config.Path,
		config:      config,
		git:         git.NewClient(config.Path, filepath.Join(config.SystemDir, "git.lock"), config.Logger),
		cache:       newCache(config.Path, config.SystemDir),
		serializers: DefaultSerializers(config.Strict),
	}
}

// RegisterSerializer adds or replaces the format used for files with ext.
func (r *Repository) RegisterSerializer(ext string, s Serializer) {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	r.serializers[ext] = s
}

// Initialize prepares the vault directory and, unless gitless, its git repository.
func (r *Repository) Initialize(ctx context.Context) error {
	if r.config.MustExist || r.config.ReadOnly {
		info, err := os.Stat(r.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("vault path does not exist: %s", r.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", r.Path)
		}
	} else if err := os.MkdirAll(r.Path, 0755); err != nil {
		return fmt.Errorf("failed to create vault directory: %w", err)
	}

	if r.config.Gitless || r.config.ReadOnly {
		return nil
	}
	if !git.IsInstalled() {
		return errors.New("git is not installed")
	}

	created := false
	if !r.git.IsRepo() {
		if !r.config.AutoInit {
			return fmt.Errorf("path is not a git repository: %s", r.Path)
		}
		if err := r.git.Init(); err != nil {
			return fmt.Errorf("failed to git init: %w", err)
		}
		created = true
	}

	changed, err := r.ensureIgnore()
	if err != nil {
		return fmt.Errorf("failed to update .gitignore: %w", err)
	}
	if changed && created {
		if err := r.git.Add(".gitignore"); err != nil {
			return err
		}
		msg := core.FormatChangeReason(core.CommitTypeChore, "", "ignore "+r.config.SystemDir, "")
		if err := r.git.Commit(msg); err != nil {
			return fmt.Errorf("failed to commit .gitignore: %w", err)
		}
	}
	return nil
}

// ensureIgnore keeps the system directory out of version control.
func (r *Repository) ensureIgnore() (bool, error) {
	ignorePath := filepath.Join(r.Path, ".gitignore")
	entry := r.config.SystemDir + "/"

	content, err := os.ReadFile(ignorePath)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}
	for _, line := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(line) == entry {
			return false, nil
		}
	}

	var buf bytes.Buffer
	buf.Write(content)
	if len(content) > 0 && !bytes.HasSuffix(content, []byte("\n")) {
		buf.WriteByte('\n')
	}
	buf.WriteString(entry + "\n")
	return true, writeFileAtomic(ignorePath, buf.Bytes(), 0644)
}

// Save writes the document to disk and commits it unless the vault is gitless.
// IDs without a known extension are stored as markdown.
func (r *Repository) Save(ctx context.Context, doc core.Document) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	relPath, err := r.pathFor(doc.ID)
	if err != nil {
		return err
	}

	if err := r.writeDocument(relPath, doc); err != nil {
		return err
	}
	if err := r.cache.Save(); err != nil {
		r.config.Logger.Warn("failed to persist index", "error", err)
	}

	if r.config.Gitless {
		return nil
	}
	return r.commit(ctx, core.ChangeReason(ctx, "update "+doc.ID), []string{relPath}, nil)
}

// writeDocument serializes doc to relPath and refreshes its index entry.
func (r *Repository) writeDocument(relPath string, doc core.Document) error {
	s, ok := r.serializers[path.Ext(relPath)]
	if !ok {
		return fmt.Errorf("%w: no serializer for %s", core.ErrUnsupported, relPath)
	}
	data, err := s.Serialize(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", doc.ID, err)
	}

	full := filepath.Join(r.Path, filepath.FromSlash(relPath))
	if err := writeFileAtomic(full, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", relPath, err)
	}

	if info, err := os.Stat(full); err == nil {
		stored := doc
		stored.ID = idFromPath(relPath)
		if stored.Metadata == nil {
			stored.Metadata = make(core.Metadata)
		}
		r.cache.Set(relPath, &indexEntry{
			ID:           stored.ID,
			Content:      stored.Content,
			Metadata:     stored.Metadata,
			LastModified: info.ModTime(),
		})
	}
	return nil
}

// commit stages added and removed paths and records them in one commit.
func (r *Repository) commit(ctx context.Context, msg string, added, removed []string) error {
	unlock, err := r.git.Lock()
	if err != nil {
		return fmt.Errorf("failed to acquire git lock: %w", err)
	}
	defer unlock()

	if err := r.git.Add(added...); err != nil {
		return err
	}
	if err := r.git.Rm(removed...); err != nil {
		return err
	}
	return r.git.Commit(core.AppendFooter(msg))
}

// Get reads a document by ID.
func (r *Repository) Get(ctx context.Context, id string) (core.Document, error) {
	relPath, err := r.locate(id)
	if err != nil {
		return core.Document{}, err
	}
	full := filepath.Join(r.Path, filepath.FromSlash(relPath))

	info, err := os.Stat(full)
	if err != nil {
		return core.Document{}, r.notFound(id, err)
	}
	if entry, ok := r.cache.Get(relPath, info.ModTime()); ok {
		return entry.document(), nil
	}

	doc, err := r.readFile(full)
	if err != nil {
		return core.Document{}, r.notFound(id, err)
	}
	doc.ID = idFromPath(relPath)
	return doc, nil
}

func (r *Repository) readFile(full string) (core.Document, error) {
	s, ok := r.serializers[filepath.Ext(full)]
	if !ok {
		return core.Document{}, fmt.Errorf("%w: no serializer for %s", core.ErrUnsupported, full)
	}
	f, err := os.Open(full)
	if err != nil {
		return core.Document{}, err
	}
	defer f.Close()

	doc, err := s.Parse(f)
	if err != nil {
		return core.Document{}, fmt.Errorf("failed to parse %s: %w", full, err)
	}
	return *doc, nil
}

func (r *Repository) notFound(id string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	return err
}

// List returns every document in the vault, reusing the index for unchanged files.
func (r *Repository) List(ctx context.Context) ([]core.Document, error) {
	if err := r.cache.Load(); err != nil {
		r.config.Logger.Debug("index unavailable, rescanning", "error", err)
	}

	seen := make(map[string]bool)
	var docs []core.Document
	err := filepath.WalkDir(r.Path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != r.Path && r.isPrivateDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(r.Path, p)
		if err != nil {
			return err
		}
		relPath := filepath.ToSlash(rel)
		if !r.isDocumentFile(relPath) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		seen[relPath] = true

		if entry, ok := r.cache.Get(relPath, info.ModTime()); ok {
			docs = append(docs, entry.document())
			return nil
		}

		doc, err := r.readFile(p)
		if err != nil {
			r.config.Logger.Warn("skipping unreadable file", "path", relPath, "error", err)
			return nil
		}
		doc.ID = idFromPath(relPath)
		r.cache.Set(relPath, &indexEntry{
			ID:           doc.ID,
			Content:      doc.Content,
			Metadata:     doc.Metadata,
			LastModified: info.ModTime(),
		})
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan vault: %w", err)
	}

	r.cache.Prune(seen)
	if !r.config.ReadOnly {
		if err := r.cache.Save(); err != nil {
			r.config.Logger.Warn("failed to persist index", "error", err)
		}
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Delete removes a document and commits the removal unless the vault is gitless.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	relPath, err := r.locate(id)
	if err != nil {
		return err
	}
	full := filepath.Join(r.Path, filepath.FromSlash(relPath))
	if _, err := os.Stat(full); err != nil {
		return r.notFound(id, err)
	}

	if err := os.Remove(full); err != nil {
		return fmt.Errorf("failed to delete %s: %w", relPath, err)
	}
	r.cache.Delete(relPath)
	if err := r.cache.Save(); err != nil {
		r.config.Logger.Warn("failed to persist index", "error", err)
	}

	if r.config.Gitless {
		return nil
	}
	return r.commit(ctx, core.ChangeReason(ctx, "delete "+id), nil, []string{relPath})
}

// Sync pulls and pushes the vault's git remote.
func (r *Repository) Sync(ctx context.Context) error {
	if r.config.ReadOnly {
		return fmt.Errorf("sync: %w", core.ErrReadOnly)
	}
	if r.config.Gitless {
		return fmt.Errorf("%w: cannot sync a gitless vault", core.ErrUnsupported)
	}
	if !r.git.IsRepo() {
		return fmt.Errorf("path is not a git repository: %s", r.Path)
	}
	unlock, err := r.git.Lock()
	if err != nil {
		return fmt.Errorf("failed to acquire git lock: %w", err)
	}
	defer unlock()
	return r.git.Sync()
}

// Reconcile rescans the vault and reports what changed since the index was last refreshed.
// The watcher uses it to catch up after git rewrote files underneath it.
func (r *Repository) Reconcile(ctx context.Context) ([]core.Event, error) {
	if err := r.cache.Load(); err != nil {
		return nil, err
	}
	before := r.cache.Snapshot()
	if _, err := r.List(ctx); err != nil {
		return nil, err
	}
	after := r.cache.Snapshot()
	r.recordReconcile()

	now := time.Now().Unix()
	var events []core.Event
	for id, mtime := range after {
		prev, ok := before[id]
		switch {
		case !ok:
			events = append(events, core.Event{Type: core.EventCreate, ID: id, Timestamp: now})
		case !prev.Equal(mtime):
			events = append(events, core.Event{Type: core.EventModify, ID: id, Timestamp: now})
		}
	}
	for id := range before {
		if _, ok := after[id]; !ok {
			events = append(events, core.Event{Type: core.EventDelete, ID: id, Timestamp: now})
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

// pathFor maps an ID to the relative path a save should write.
func (r *Repository) pathFor(id string) (string, error) {
	clean, err := r.cleanID(id)
	if err != nil {
		return "", err
	}
	if _, ok := r.serializers[path.Ext(clean)]; ok {
		return clean, nil
	}
	return clean + defaultExt, nil
}

// locate finds the file holding id. Markdown wins when several formats share a name.
func (r *Repository) locate(id string) (string, error) {
	clean, err := r.cleanID(id)
	if err != nil {
		return "", err
	}
	if _, ok := r.serializers[path.Ext(clean)]; ok {
		return clean, nil
	}

	exts := make([]string, 0, len(r.serializers))
	for ext := range r.serializers {
		if ext != defaultExt {
			exts = append(exts, ext)
		}
	}
	sort.Strings(exts)
	for _, ext := range append([]string{defaultExt}, exts...) {
		if _, err := os.Stat(filepath.Join(r.Path, filepath.FromSlash(clean+ext))); err == nil {
			return clean + ext, nil
		}
	}
	return clean + defaultExt, nil
}

func (r *Repository) cleanID(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidID)
	}
	clean := path.Clean(filepath.ToSlash(id))
	if path.IsAbs(clean) || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	first := strings.SplitN(clean, "/", 2)[0]
	if r.isPrivateDir(first) || clean == ConfigFile {
		return "", fmt.Errorf("%w: %q is reserved", ErrInvalidID, id)
	}
	return clean, nil
}

func (r *Repository) isPrivateDir(name string) bool {
	return name == ".git" || name == r.config.SystemDir
}

// isDocumentFile reports whether the file at relPath (slash separated,
// relative to the vault root) holds a document.
func (r *Repository) isDocumentFile(relPath string) bool {
	name := path.Base(relPath)
	if strings.HasPrefix(name, TempFilePrefix) || relPath == ConfigFile {
		return false
	}
	_, ok := r.serializers[filepath.Ext(name)]
	return ok
}

// idFromPath drops the markdown extension; other formats keep theirs so IDs stay unique.
func idFromPath(relPath string) string {
	return strings.TrimSuffix(relPath, defaultExt)
}
