// Package lifecycle exposes vault change streams as lifecycle sources.
package lifecycle

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/studywise/pkg/core"
)

// Change is a record-level view of a document event: which collection
// changed, which record in it, and how.
type Change struct {
	Type       core.EventType
	Collection string
	RecordID   string
	At         time.Time
}

// String implements lifecycle.Event.
func (c Change) String() string {
	if c.Collection == "" {
		return fmt.Sprintf("%s %s", c.Type, c.RecordID)
	}
	return fmt.Sprintf("%s %s/%s", c.Type, c.Collection, c.RecordID)
}

// ChangeFromEvent splits a document id ("notes/<id>[.ext]") into its
// collection and record id.
func ChangeFromEvent(e core.Event) Change {
	c := Change{Type: e.Type, RecordID: e.ID}
	if e.Timestamp > 0 {
		c.At = time.Unix(e.Timestamp, 0)
	}
	if collection, id, ok := strings.Cut(e.ID, "/"); ok {
		c.Collection = collection
		c.RecordID = id
	}
	if ext := path.Ext(c.RecordID); ext != "" && !strings.Contains(ext, "/") {
		c.RecordID = strings.TrimSuffix(c.RecordID, ext)
	}
	return c
}

// Option configures a change source.
type Option func(*changeSource)

// WithCollections drops changes outside the named collections.
func WithCollections(names ...string) Option {
	return func(s *changeSource) {
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				s.collections = append(s.collections, n)
			}
		}
	}
}

// WithTypes drops changes whose type is not listed.
func WithTypes(types ...core.EventType) Option {
	return func(s *changeSource) {
		s.types = append(s.types, types...)
	}
}

type changeSource struct {
	events      <-chan core.Event
	out         chan lifecycle.Event
	collections []string
	types       []core.EventType
}

// NewSource wraps a document change stream (from Watch) as a lifecycle.Source
// emitting Change values. The output closes when the input closes or the
// context passed to Start ends.
func NewSource(events <-chan core.Event, opts ...Option) lifecycle.Source {
	s := &changeSource{
		events: events,
		out:    make(chan lifecycle.Event),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *changeSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *changeSource) keep(c Change) bool {
	if len(s.collections) > 0 && !slices.Contains(s.collections, c.Collection) {
		return false
	}
	if len(s.types) > 0 && !slices.Contains(s.types, c.Type) {
		return false
	}
	return true
}

func (s *changeSource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			var e core.Event
			var ok bool
			select {
			case <-ctx.Done():
				return nil
			case e, ok = <-s.events:
				if !ok {
					return nil
				}
			}
			c := ChangeFromEvent(e)
			if !s.keep(c) {
				continue
			}
			select {
			case s.out <- c:
			case <-ctx.Done():
				return nil
			}
		}
	})
	return nil
}
