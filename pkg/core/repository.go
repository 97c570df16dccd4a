package core

import "context"

// Repository defines the contract for storing and retrieving documents.
// It is a plain key/value read-write contract: the document ID is the key.
// Adhering to this interface keeps the study logic independent of the
// underlying storage (filesystem vault, Redis, SQLite).
type Repository interface {
	// Save persists a document. It creates if not exists, or updates if it does.
	Save(ctx context.Context, doc Document) error

	// Get retrieves a document by its ID. Missing documents yield ErrNotFound.
	Get(ctx context.Context, id string) (Document, error)

	// List returns all available documents.
	List(ctx context.Context) ([]Document, error)

	// Delete removes a document by its ID.
	Delete(ctx context.Context, id string) error

	// Initialize ensures the underlying storage is ready (mkdir, git init, schema).
	Initialize(ctx context.Context) error
}

// Syncable defines an interface for repositories that support synchronization with a remote.
type Syncable interface {
	// Sync synchronizes the local state with a remote source (e.g. git pull/push).
	Sync(ctx context.Context) error
}

// Watchable defines an interface for repositories that emit change events.
type Watchable interface {
	// Watch streams events for document IDs matching pattern until ctx is done.
	Watch(ctx context.Context, pattern string) (<-chan Event, error)
}

// Transaction defines the contract for a unit of work.
type Transaction interface {
	// Save stages a document for persistence.
	Save(ctx context.Context, doc Document) error

	// Get retrieves a document, preferring the staged version if it exists in the transaction.
	Get(ctx context.Context, id string) (Document, error)

	// List returns all available documents, including staged ones.
	List(ctx context.Context) ([]Document, error)

	// Delete stages a document for removal.
	Delete(ctx context.Context, id string) error

	// Commit applies all staged changes atomically.
	Commit(ctx context.Context, changeReason string) error

	// Rollback discards all staged changes.
	Rollback(ctx context.Context) error
}

// Transactional extends Repository to support transactions.
type Transactional interface {
	Repository

	// Begin starts a new transaction.
	Begin(ctx context.Context) (Transaction, error)
}
