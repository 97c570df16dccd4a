package fs

import (
	"sort"
	"time"

	"github.com/aretw0/introspection"
)

// RepositoryState is the snapshot reported by `studywise status`.
type RepositoryState struct {
	Adapter       string     `json:"adapter"`
	Path          string     `json:"path"`
	SystemDir     string     `json:"system_dir"`
	Indexed       int        `json:"indexed"`
	Gitless       bool       `json:"gitless"`
	ReadOnly      bool       `json:"read_only"`
	Strict        bool       `json:"strict"`
	Formats       []string   `json:"formats"`
	WatcherActive bool       `json:"watcher_active"`
	LastReconcile *time.Time `json:"last_reconcile,omitempty"`
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	formats := make([]string, 0, len(r.serializers))
	for ext := range r.serializers {
		formats = append(formats, ext)
	}
	sort.Strings(formats)

	return RepositoryState{
		Adapter:       "fs",
		Path:          r.Path,
		SystemDir:     r.config.SystemDir,
		Indexed:       r.cache.Len(),
		Gitless:       r.config.Gitless,
		ReadOnly:      r.config.ReadOnly,
		Strict:        r.config.Strict,
		Formats:       formats,
		WatcherActive: r.watcherActive,
		LastReconcile: r.lastReconcile,
	}
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "fs-repository"
}

var (
	_ introspection.Introspectable = (*Repository)(nil)
	_ introspection.Component      = (*Repository)(nil)
)

func (r *Repository) setWatcherActive(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watcherActive = active
}

func (r *Repository) recordReconcile() {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastReconcile = &now
}
