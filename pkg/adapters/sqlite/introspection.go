package sqlite

import (
	"context"
	"time"

	"github.com/aretw0/introspection"
)

// RepositoryState is the snapshot reported by `studywise status`.
type RepositoryState struct {
	Adapter   string `json:"adapter"`
	Path      string `json:"path"`
	Documents int    `json:"documents"`
	Changes   int    `json:"changes"`
	ReadOnly  bool   `json:"read_only"`
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	state := RepositoryState{Adapter: "sqlite", Path: r.config.Path, ReadOnly: r.config.ReadOnly}
	_ = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&state.Documents)
	_ = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM change_log`).Scan(&state.Changes)
	return state
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "sqlite-repository"
}

var (
	_ introspection.Introspectable = (*Repository)(nil)
	_ introspection.Component      = (*Repository)(nil)
)
