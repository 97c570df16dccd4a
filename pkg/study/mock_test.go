package study_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/studywise/pkg/core"
)

// memRepo implements core.Repository in memory. It is neither Transactional
// nor Watchable; wrap it in txRepo or watchRepo for those.
type memRepo struct {
	mu      sync.Mutex
	docs    map[string]core.Document
	reasons []string
}

func newMemRepo() *memRepo {
	return &memRepo{docs: make(map[string]core.Document)}
}

func (m *memRepo) Save(ctx context.Context, doc core.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
	m.reasons = append(m.reasons, core.ChangeReason(ctx, ""))
	return nil
}

func (m *memRepo) Get(ctx context.Context, id string) (core.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return core.Document{}, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	return doc, nil
}

func (m *memRepo) List(ctx context.Context) ([]core.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := make([]core.Document, 0, len(m.docs))
	for _, d := range m.docs {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (m *memRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	delete(m.docs, id)
	m.reasons = append(m.reasons, core.ChangeReason(ctx, ""))
	return nil
}

func (m *memRepo) Initialize(ctx context.Context) error { return nil }

func (m *memRepo) lastReason() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.reasons) == 0 {
		return ""
	}
	return m.reasons[len(m.reasons)-1]
}

// txRepo adds Begin to memRepo and records every commit.
type txRepo struct {
	*memRepo
	commits []string
}

func (r *txRepo) Begin(ctx context.Context) (core.Transaction, error) {
	return &memTx{repo: r, staged: map[string]core.Document{}, deleted: map[string]bool{}}, nil
}

type memTx struct {
	repo    *txRepo
	staged  map[string]core.Document
	deleted map[string]bool
}

func (t *memTx) Save(ctx context.Context, doc core.Document) error {
	t.staged[doc.ID] = doc
	delete(t.deleted, doc.ID)
	return nil
}

func (t *memTx) Get(ctx context.Context, id string) (core.Document, error) {
	if t.deleted[id] {
		return core.Document{}, core.ErrNotFound
	}
	if d, ok := t.staged[id]; ok {
		return d, nil
	}
	return t.repo.Get(ctx, id)
}

func (t *memTx) List(ctx context.Context) ([]core.Document, error) {
	base, err := t.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	var docs []core.Document
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

func (t *memTx) Delete(ctx context.Context, id string) error {
	t.deleted[id] = true
	delete(t.staged, id)
	return nil
}

func (t *memTx) Commit(ctx context.Context, changeReason string) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	for id := range t.deleted {
		delete(t.repo.docs, id)
	}
	for id, d := range t.staged {
		t.repo.docs[id] = d
	}
	t.repo.commits = append(t.repo.commits, changeReason)
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.staged, t.deleted = nil, nil
	return nil
}

// watchRepo adds Watch to memRepo, returning a channel the test feeds.
type watchRepo struct {
	*memRepo
	upstream chan core.Event
}

func (r *watchRepo) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	return r.upstream, nil
}

// clock hands out increasing timestamps one second apart.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// sequence hands out predictable ids.
func sequence(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%02d", prefix, n)
	}
}
