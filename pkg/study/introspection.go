package study

import (
	"github.com/aretw0/introspection"

	"github.com/aretw0/studywise/pkg/core"
)

// ServiceState exposes internal state for observability.
type ServiceState struct {
	EventBufferSize int    `json:"event_buffer_size"`
	RepositoryType  string `json:"repository_type"`
	ActiveWatchers  int    `json:"active_watchers"`
	Transactional   bool   `json:"transactional"`
	Repository      any    `json:"repository,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	s.mu.RLock()
	watchers := s.watchers
	s.mu.RUnlock()

	state := ServiceState{
		EventBufferSize: s.eventBuffer,
		RepositoryType:  "unknown",
		ActiveWatchers:  watchers,
	}
	if s.repo != nil {
		state.RepositoryType = "repository"
		if comp, ok := s.repo.(introspection.Component); ok {
			state.RepositoryType = comp.ComponentType()
		}
		if in, ok := s.repo.(introspection.Introspectable); ok {
			state.Repository = in.State()
		}
		_, state.Transactional = s.repo.(core.Transactional)
	}
	return state
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "study-service"
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
