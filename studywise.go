package studywise

import (
	"log/slog"

	"github.com/aretw0/studywise/internal/platform"
	"github.com/aretw0/studywise/pkg/core"
	"github.com/aretw0/studywise/pkg/study"
)

// --- Types ---

// Service is the study application service (courses, notes, tags, backup).
type Service = study.Service

type (
	Course    = core.Course
	Note      = core.Note
	Tag       = core.Tag
	Flashcard = core.Flashcard
	Reactions = core.Reactions
)

// NoteDraft, NoteUpdate and NoteFilter are the inputs of the note operations.
type (
	NoteDraft  = study.NoteDraft
	NoteUpdate = study.NoteUpdate
	NoteFilter = study.NoteFilter
)

// --- Configuration ---

// Option defines a functional option for configuring StudyWise.
type Option = platform.Option

// Adapter names accepted by WithAdapter.
const (
	AdapterFS     = platform.AdapterFS
	AdapterRedis  = platform.AdapterRedis
	AdapterSQLite = platform.AdapterSQLite
)

// WithAutoInit enables automatic initialization of the vault (creates directory and git init).
func WithAutoInit(auto bool) Option {
	return platform.WithAutoInit(auto)
}

// WithVersioning enables or disables version control (e.g. Git).
func WithVersioning(enabled bool) Option {
	return platform.WithVersioning(enabled)
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithMustExist ensures the vault must already exist.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithLogger sets the logger for the store and the service.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithRepository allows injecting a custom storage adapter.
func WithRepository(repo core.Repository) Option {
	return platform.WithRepository(repo)
}

// WithAdapter selects the storage adapter by name.
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithRedis sets the server used by the redis adapter.
func WithRedis(addr, password string, db int) Option {
	return platform.WithRedis(addr, password, db)
}

// WithNamespace sets the Redis key namespace.
func WithNamespace(ns string) Option {
	return platform.WithNamespace(ns)
}

// WithSystemDir allows specifying the hidden directory name (e.g. ".studywise").
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// WithEventBuffer allows specifying the size of the watch buffer.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithStrict keeps numbers as json.Number when decoding documents.
func WithStrict(strict bool) Option {
	return platform.WithStrict(strict)
}

// WithReadOnly opens the vault without write access.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithDevSafety controls the temp-dir sandbox used under `go run` and `go test`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithWatcherErrorHandler receives errors raised inside the fs watch loop.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// --- Factory ---

// New opens the vault at path and returns the study service.
func New(path string, opts ...Option) (*Service, error) {
	return platform.New(path, opts...)
}

// Init initializes a repository explicitly.
func Init(path string, opts ...Option) (core.Repository, error) {
	return platform.Init(path, opts...)
}

// Close releases the connections held by repo, if any.
func Close(repo core.Repository) error {
	return platform.Close(repo)
}

// --- Operations ---

// Sync performs a synchronization (pull/push) of the vault.
func Sync(path string, opts ...Option) error {
	return platform.Sync(path, opts...)
}

// --- Safety & Utils ---

// ResolveVaultPath determines the actual path for the vault based on safety rules.
func ResolveVaultPath(userPath string, forceTemp bool) string {
	return platform.ResolveVaultPath(userPath, forceTemp)
}

// IsDevRun checks if the current process is running via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// FindVaultRoot looks upwards from startDir for a vault root marker.
func FindVaultRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}

// --- Semantic Commits ---

const (
	CommitTypeFeat     = core.CommitTypeFeat
	CommitTypeFix      = core.CommitTypeFix
	CommitTypeDocs     = core.CommitTypeDocs
	CommitTypeRefactor = core.CommitTypeRefactor
	CommitTypeChore    = core.CommitTypeChore
)

// FormatChangeReason builds a Conventional Commit message.
func FormatChangeReason(ctype, scope, subject, body string) string {
	return core.FormatChangeReason(ctype, scope, subject, body)
}

// AppendFooter appends the StudyWise footer to an arbitrary message.
func AppendFooter(msg string) string {
	return core.AppendFooter(msg)
}
