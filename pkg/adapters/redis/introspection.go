package redis

import (
	"context"
	"time"

	"github.com/aretw0/introspection"
)

// RepositoryState is the snapshot reported by `studywise status`.
type RepositoryState struct {
	Adapter   string `json:"adapter"`
	Addr      string `json:"addr"`
	Namespace string `json:"namespace"`
	Documents int64  `json:"documents"`
	Reachable bool   `json:"reachable"`
	ReadOnly  bool   `json:"read_only"`
	Watchers  int    `json:"watchers"`
}

// State implements introspection.Introspectable. It performs a short round
// trip to count documents.
func (r *Repository) State() any {
	r.mu.RLock()
	watchers := r.watchers
	r.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	count, err := r.rdb.SCard(ctx, IndexKey(r.namespace)).Result()

	return RepositoryState{
		Adapter:   "redis",
		Addr:      r.rdb.Options().Addr,
		Namespace: r.namespace,
		Documents: count,
		Reachable: err == nil,
		ReadOnly:  r.config.ReadOnly,
		Watchers:  watchers,
	}
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "redis-repository"
}

var (
	_ introspection.Introspectable = (*Repository)(nil)
	_ introspection.Component      = (*Repository)(nil)
)
