package study

import (
	"context"
	"fmt"

	"github.com/aretw0/studywise/pkg/core"
)

// Watch streams store changes for IDs matching pattern (e.g. "notes/*").
//
// Events are relayed through a buffer of the configured size. When the
// consumer falls behind and the buffer is full the oldest event is dropped,
// so the store never waits on the reader. The stream closes when ctx is done
// or the store stops watching.
func (s *Service) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	w, ok := s.repo.(core.Watchable)
	if !ok {
		return nil, fmt.Errorf("watch: %w", core.ErrUnsupported)
	}
	upstream, err := w.Watch(ctx, pattern)
	if err != nil {
		return nil, err
	}

	out := make(chan core.Event, s.eventBuffer)
	s.mu.Lock()
	s.watchers++
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.watchers--
			s.mu.Unlock()
			close(out)
		}()

		dropped := 0
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-upstream:
				if !ok {
					return
				}
				select {
				case out <- e:
					continue
				default:
				}
				// Full: make room by discarding the oldest event.
				select {
				case <-out:
				default:
				}
				select {
				case out <- e:
				default:
				}
				dropped++
				s.logger.Warn("watch consumer is slow, dropping oldest event", "pattern", pattern, "dropped", dropped)
			}
		}
	}()

	return out, nil
}
