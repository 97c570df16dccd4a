package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/aretw0/studywise/pkg/core"
)

// ErrTransactionClosed is returned when a committed or rolled back transaction is reused.
var ErrTransactionClosed = errors.New("transaction closed")

// Transaction buffers writes in memory and applies them under one git commit.
type Transaction struct {
	repo    *Repository
	mu      sync.Mutex
	staged  map[string]core.Document
	deleted map[string]bool
	closed  bool
}

// Begin starts a new transaction.
func (r *Repository) Begin(ctx context.Context) (core.Transaction, error) {
	if r.config.ReadOnly {
		return nil, core.ErrReadOnly
	}
	return &Transaction{
		repo:    r,
		staged:  make(map[string]core.Document),
		deleted: make(map[string]bool),
	}, nil
}

// key normalizes id the way List reports it, so staged and stored documents line up.
func (t *Transaction) key(id string) (string, error) {
	relPath, err := t.repo.pathFor(id)
	if err != nil {
		return "", err
	}
	return idFromPath(relPath), nil
}

func (t *Transaction) Save(ctx context.Context, doc core.Document) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransactionClosed
	}
	key, err := t.key(doc.ID)
	if err != nil {
		return err
	}
	doc.ID = key
	t.staged[key] = doc
	delete(t.deleted, key)
	return nil
}

func (t *Transaction) Get(ctx context.Context, id string) (core.Document, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return core.Document{}, ErrTransactionClosed
	}
	key, err := t.key(id)
	if err != nil {
		return core.Document{}, err
	}
	if t.deleted[key] {
		return core.Document{}, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	if doc, ok := t.staged[key]; ok {
		return doc, nil
	}
	return t.repo.Get(ctx, id)
}

// List overlays staged changes on the committed documents.
func (t *Transaction) List(ctx context.Context) ([]core.Document, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTransactionClosed
	}

	base, err := t.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]core.Document, 0, len(base)+len(t.staged))
	for _, d := range base {
		if t.deleted[d.ID] {
			continue
		}
		if _, ok := t.staged[d.ID]; ok {
			continue
		}
		docs = append(docs, d)
	}
	for _, d := range t.staged {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (t *Transaction) Delete(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransactionClosed
	}
	key, err := t.key(id)
	if err != nil {
		return err
	}
	t.deleted[key] = true
	delete(t.staged, key)
	return nil
}

// Commit writes staged documents, removes deleted ones and records a single commit.
func (t *Transaction) Commit(ctx context.Context, changeReason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransactionClosed
	}
	t.closed = true

	r := t.repo
	var unlock func()
	if !r.config.Gitless {
		var err error
		if unlock, err = r.git.Lock(); err != nil {
			return fmt.Errorf("failed to acquire git lock: %w", err)
		}
		defer unlock()
	}

	var added, removed []string
	for _, id := range sortedKeys(t.staged) {
		relPath, err := r.pathFor(id)
		if err != nil {
			return err
		}
		if err := r.writeDocument(relPath, t.staged[id]); err != nil {
			return err
		}
		added = append(added, relPath)
	}
	for _, id := range sortedKeys(t.deleted) {
		relPath, err := r.locate(id)
		if err != nil {
			return err
		}
		err = os.Remove(filepath.Join(r.Path, filepath.FromSlash(relPath)))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete %s: %w", relPath, err)
		}
		r.cache.Delete(relPath)
		if err == nil {
			removed = append(removed, relPath)
		}
	}
	if err := r.cache.Save(); err != nil {
		r.config.Logger.Warn("failed to persist index", "error", err)
	}

	if r.config.Gitless || (len(added) == 0 && len(removed) == 0) {
		return nil
	}
	if err := r.git.Add(added...); err != nil {
		return err
	}
	if err := r.git.Rm(removed...); err != nil {
		return err
	}
	if changeReason == "" {
		changeReason = core.ChangeReason(ctx, "batch update")
	}
	return r.git.Commit(core.AppendFooter(changeReason))
}

// Rollback discards staged changes.
func (t *Transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransactionClosed
	}
	t.closed = true
	t.staged = nil
	t.deleted = nil
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
