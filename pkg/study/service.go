// Package study is the StudyWise application service: courses, notes and
// tags over any core.Repository.
package study

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/studywise/pkg/core"
	"github.com/aretw0/studywise/pkg/typed"
)

// Collection names, i.e. the ID prefixes of each record kind.
const (
	CoursesCollection = "courses"
	NotesCollection   = "notes"
	TagsCollection    = "tags"
)

// DefaultEventBuffer is the size of the Watch buffer when none is configured.
const DefaultEventBuffer = 100

// ErrNoTransactions is returned by Begin when the store cannot batch writes.
var ErrNoTransactions = errors.New("repository does not support transactions")

// Service handles the study logic.
type Service struct {
	repo   core.Repository
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	eventBuffer int

	mu       sync.RWMutex
	watchers int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEventBuffer sets how many events Watch holds for a slow consumer.
// Zero or negative means DefaultEventBuffer.
func WithEventBuffer(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.eventBuffer = size
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// New creates a Service on top of repo.
func New(repo core.Repository, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		logger:      slog.New(slog.DiscardHandler),
		now:         time.Now,
		newID:       uuid.NewString,
		eventBuffer: DefaultEventBuffer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Repository returns the underlying store.
func (s *Service) Repository() core.Repository {
	return s.repo
}

// timestamp is the current time as stored: UTC, millisecond precision.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// collections groups the typed views over one store (repository or transaction).
type collections struct {
	courses *typed.Repository[courseRecord]
	notes   *typed.Repository[noteRecord]
	tags    *typed.Repository[tagRecord]
}

func newCollections(st typed.Store) collections {
	return collections{
		courses: typed.NewRepository[courseRecord](st, CoursesCollection),
		notes:   typed.NewRepository[noteRecord](st, NotesCollection),
		tags:    typed.NewRepository[tagRecord](st, TagsCollection),
	}
}

func (s *Service) store() collections {
	return newCollections(s.repo)
}

// Begin starts a transaction on a Transactional store.
func (s *Service) Begin(ctx context.Context) (core.Transaction, error) {
	tr, ok := s.repo.(core.Transactional)
	if !ok {
		return nil, ErrNoTransactions
	}
	return tr.Begin(ctx)
}

// batch runs fn against a transaction when the store supports one, committing
// with reason. Otherwise fn writes straight to the repository.
func (s *Service) batch(ctx context.Context, reason string, fn func(c collections) error) error {
	ctx = withReason(ctx, reason)

	tr, ok := s.repo.(core.Transactional)
	if !ok {
		return fn(s.store())
	}

	tx, err := tr.Begin(ctx)
	if err != nil {
		if errors.Is(err, core.ErrReadOnly) {
			return err
		}
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(newCollections(tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.logger.Warn("rollback failed", "error", rbErr)
		}
		return err
	}
	return tx.Commit(ctx, core.ChangeReason(ctx, reason))
}

// withReason attaches reason unless the caller already set one.
func withReason(ctx context.Context, reason string) context.Context {
	if core.ChangeReason(ctx, "") != "" {
		return ctx
	}
	return core.WithChangeReason(ctx, reason)
}

func reason(ctype, scope, subject string) string {
	return core.FormatChangeReason(ctype, scope, subject, "")
}
