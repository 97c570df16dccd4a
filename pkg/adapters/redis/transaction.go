package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/aretw0/studywise/pkg/core"
)

// ErrTransactionClosed is returned when a finished transaction is reused.
var ErrTransactionClosed = errors.New("transaction closed")

// Transaction stages writes locally and applies them in a single MULTI/EXEC.
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

func (t *Transaction) Save(ctx context.Context, doc core.Document) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransactionClosed
	}
	t.staged[doc.ID] = doc
	delete(t.deleted, doc.ID)
	return nil
}

func (t *Transaction) Get(ctx context.Context, id string) (core.Document, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return core.Document{}, ErrTransactionClosed
	}
	if t.deleted[id] {
		return core.Document{}, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	if doc, ok := t.staged[id]; ok {
		return doc, nil
	}
	return t.repo.Get(ctx, id)
}

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
		if _, ok := t.staged[d.ID]; ok || t.deleted[d.ID] {
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
	t.deleted[id] = true
	delete(t.staged, id)
	return nil
}

// Commit applies every staged change atomically, then announces them.
func (t *Transaction) Commit(ctx context.Context, changeReason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransactionClosed
	}
	t.closed = true

	r := t.repo
	if changeReason != "" {
		ctx = core.WithChangeReason(ctx, changeReason)
	}

	hashes := make(map[string]map[string]any, len(t.staged))
	for id, doc := range t.staged {
		h, err := r.toHash(ctx, doc)
		if err != nil {
			return err
		}
		hashes[id] = h
	}

	existed := make(map[string]*goredis.IntCmd, len(hashes))
	removed := make(map[string]*goredis.IntCmd, len(t.deleted))
	_, err := r.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for id, h := range hashes {
			existed[id] = pipe.Exists(ctx, DocKey(r.namespace, id))
			pipe.Del(ctx, DocKey(r.namespace, id))
			pipe.HSet(ctx, DocKey(r.namespace, id), h)
			pipe.SAdd(ctx, IndexKey(r.namespace), id)
		}
		for id := range t.deleted {
			removed[id] = pipe.Del(ctx, DocKey(r.namespace, id))
			pipe.SRem(ctx, IndexKey(r.namespace), id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	for _, id := range sortedKeys(existed) {
		if existed[id].Val() == 0 {
			r.publish(ctx, core.EventCreate, id)
		} else {
			r.publish(ctx, core.EventModify, id)
		}
	}
	for _, id := range sortedKeys(removed) {
		if removed[id].Val() > 0 {
			r.publish(ctx, core.EventDelete, id)
		}
	}
	return nil
}

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
