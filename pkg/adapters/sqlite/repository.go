// Package sqlite stores StudyWise documents in a single SQLite file.
// It uses the pure-Go modernc driver, so no cgo toolchain is needed.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aretw0/studywise/pkg/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL DEFAULT '',
	metadata_json TEXT NOT NULL DEFAULT '{}',
	updated_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS change_log (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	doc_id TEXT NOT NULL,
	op TEXT NOT NULL,
	reason TEXT,
	at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_change_log_doc ON change_log(doc_id);
`

// Config holds the database location and access mode.
type Config struct {
	Path     string
	ReadOnly bool
	Logger   *slog.Logger
}

// Repository implements core.Repository and core.Transactional on SQLite.
type Repository struct {
	db     *sql.DB
	config Config
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewRepository opens (creating if needed) the database at config.Path.
func NewRepository(config Config) (*Repository, error) {
	if config.Path == "" {
		return nil, errors.New("database path cannot be empty")
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return &Repository{db: db, config: config}, nil
}

// Close closes the database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Initialize applies pragmas and creates the schema.
func (r *Repository) Initialize(ctx context.Context) error {
	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode = WAL"} {
		if _, err := r.db.ExecContext(ctx, pragma); err != nil {
			r.config.Logger.Debug("pragma failed", "pragma", pragma, "error", err)
		}
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

func (r *Repository) Save(ctx context.Context, doc core.Document) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	return save(ctx, r.db, doc, core.ChangeReason(ctx, "update "+doc.ID))
}

func (r *Repository) Get(ctx context.Context, id string) (core.Document, error) {
	return get(ctx, r.db, id)
}

func (r *Repository) List(ctx context.Context) ([]core.Document, error) {
	return list(ctx, r.db)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	return remove(ctx, r.db, id, core.ChangeReason(ctx, "delete "+id))
}

// reason is nil inside a transaction until Commit stamps it.
func save(ctx context.Context, db execer, doc core.Document, reason any) error {
	if strings.TrimSpace(doc.ID) == "" {
		return errors.New("document has no ID")
	}
	meta := doc.Metadata
	if meta == nil {
		meta = core.Metadata{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode metadata of %s: %w", doc.ID, err)
	}

	now := time.Now().UTC()
	_, err = db.ExecContext(ctx, `
		INSERT INTO documents (id, content, metadata_json, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET content = excluded.content, metadata_json = excluded.metadata_json, updated_at = excluded.updated_at`,
		doc.ID, doc.Content, string(metaJSON), now)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", doc.ID, err)
	}
	return logChange(ctx, db, doc.ID, "save", reason, now)
}

func get(ctx context.Context, db execer, id string) (core.Document, error) {
	var content, metaJSON string
	err := db.QueryRowContext(ctx, `SELECT content, metadata_json FROM documents WHERE id = ?`, id).Scan(&content, &metaJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Document{}, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	if err != nil {
		return core.Document{}, fmt.Errorf("failed to read %s: %w", id, err)
	}
	return decode(id, content, metaJSON)
}

func list(ctx context.Context, db execer) ([]core.Document, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, content, metadata_json FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := []core.Document{}
	for rows.Next() {
		var id, content, metaJSON string
		if err := rows.Scan(&id, &content, &metaJSON); err != nil {
			return nil, err
		}
		doc, err := decode(id, content, metaJSON)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func remove(ctx context.Context, db execer, id string, reason any) error {
	res, err := db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	return logChange(ctx, db, id, "delete", reason, time.Now().UTC())
}

func logChange(ctx context.Context, db execer, id, op string, reason any, at time.Time) error {
	_, err := db.ExecContext(ctx, `INSERT INTO change_log (doc_id, op, reason, at) VALUES (?, ?, ?, ?)`, id, op, reason, at)
	if err != nil {
		return fmt.Errorf("failed to log change to %s: %w", id, err)
	}
	return nil
}

func decode(id, content, metaJSON string) (core.Document, error) {
	doc := core.Document{ID: id, Content: content, Metadata: core.Metadata{}}
	if err := json.Unmarshal([]byte(metaJSON), &doc.Metadata); err != nil {
		return core.Document{}, fmt.Errorf("corrupt metadata for %s: %w", id, err)
	}
	return doc, nil
}

// Change is one entry of the change log.
type Change struct {
	DocID  string
	Op     string
	Reason string
	At     time.Time
}

// History returns the most recent changes, newest first.
func (r *Repository) History(ctx context.Context, limit int) ([]Change, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT doc_id, op, COALESCE(reason, ''), at FROM change_log ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer rows.Close()

	var changes []Change
	for rows.Next() {
		var c Change
		var at string
		if err := rows.Scan(&c.DocID, &c.Op, &c.Reason, &at); err != nil {
			return nil, err
		}
		c.At = parseTime(at)
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// parseTime accepts the layouts the driver may hand back for DATETIME columns.
func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
