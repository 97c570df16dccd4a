// Package redis stores StudyWise documents in Redis hashes and publishes
// change events over pub/sub, so several processes can share one vault.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	goredis "github.com/redis/go-redis/v9"

	"github.com/aretw0/studywise/pkg/core"
)

const (
	fieldContent  = "content"
	fieldMetadata = "metadata"
	fieldReason   = "reason"
	fieldUpdated  = "updatedAt"
)

// Config holds the connection and namespace settings.
type Config struct {
	Addr      string
	Password  string
	DB        int
	Namespace string
	ReadOnly  bool
	Logger    *slog.Logger
}

// Repository implements core.Repository, core.Transactional and core.Watchable on Redis.
// It is safe for concurrent use.
type Repository struct {
	rdb       *goredis.Client
	namespace string
	config    Config

	mu       sync.RWMutex
	watchers int
}

// NewRepository connects lazily to the server described by config.
func NewRepository(config Config) (*Repository, error) {
	return NewRepositoryWithClient(goredis.NewClient(&goredis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	}), config)
}

// NewRepositoryWithClient wraps an existing client.
func NewRepositoryWithClient(rdb *goredis.Client, config Config) (*Repository, error) {
	if config.Namespace == "" {
		return nil, errors.New("namespace cannot be empty")
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Repository{rdb: rdb, namespace: config.Namespace, config: config}, nil
}

// Close closes the Redis connection.
func (r *Repository) Close() error {
	return r.rdb.Close()
}

// Initialize verifies the server is reachable.
func (r *Repository) Initialize(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unreachable at %s: %w", r.config.Addr, err)
	}
	return nil
}

func (r *Repository) Save(ctx context.Context, doc core.Document) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	hash, err := r.toHash(ctx, doc)
	if err != nil {
		return err
	}

	var existed *goredis.IntCmd
	_, err = r.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		existed = pipe.Exists(ctx, DocKey(r.namespace, doc.ID))
		pipe.HSet(ctx, DocKey(r.namespace, doc.ID), hash)
		pipe.SAdd(ctx, IndexKey(r.namespace), doc.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", doc.ID, err)
	}
	if existed.Val() == 0 {
		r.publish(ctx, core.EventCreate, doc.ID)
	} else {
		r.publish(ctx, core.EventModify, doc.ID)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (core.Document, error) {
	hash, err := r.rdb.HGetAll(ctx, DocKey(r.namespace, id)).Result()
	if err != nil {
		return core.Document{}, fmt.Errorf("failed to read %s: %w", id, err)
	}
	if len(hash) == 0 {
		return core.Document{}, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	return fromHash(id, hash)
}

func (r *Repository) List(ctx context.Context) ([]core.Document, error) {
	ids, err := r.rdb.SMembers(ctx, IndexKey(r.namespace)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	if len(ids) == 0 {
		return []core.Document{}, nil
	}
	sort.Strings(ids)

	cmds, err := r.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, id := range ids {
			pipe.HGetAll(ctx, DocKey(r.namespace, id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	docs := make([]core.Document, 0, len(ids))
	for i, cmd := range cmds {
		hash, err := cmd.(*goredis.MapStringStringCmd).Result()
		if err != nil || len(hash) == 0 {
			r.config.Logger.Debug("skipping dangling index entry", "id", ids[i])
			continue
		}
		doc, err := fromHash(ids[i], hash)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	var del *goredis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		del = pipe.Del(ctx, DocKey(r.namespace, id))
		pipe.SRem(ctx, IndexKey(r.namespace), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	r.publish(ctx, core.EventDelete, id)
	return nil
}

// Watch subscribes to the namespace's change channel. Events from every
// process sharing the namespace are delivered.
func (r *Repository) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	pubsub := r.rdb.Subscribe(ctx, EventsChannel(r.namespace))
	// Wait for the subscription to be confirmed so no event published after Watch returns is lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	r.mu.Lock()
	r.watchers++
	r.mu.Unlock()

	out := make(chan core.Event, 10)
	go func() {
		defer close(out)
		defer pubsub.Close()
		defer func() {
			r.mu.Lock()
			r.watchers--
			r.mu.Unlock()
		}()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var e core.Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					r.config.Logger.Warn("dropping malformed event", "error", err)
					continue
				}
				if !matches(pattern, e.ID) {
					continue
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func matches(pattern, id string) bool {
	if pattern == "" || pattern == "*" || pattern == "**" {
		return true
	}
	ok, _ := doublestar.Match(pattern, id)
	return ok
}

func (r *Repository) publish(ctx context.Context, typ core.EventType, id string) {
	payload, _ := json.Marshal(core.Event{Type: typ, ID: id, Timestamp: time.Now().Unix()})
	if err := r.rdb.Publish(ctx, EventsChannel(r.namespace), payload).Err(); err != nil {
		r.config.Logger.Warn("failed to publish change", "id", id, "error", err)
	}
}

func (r *Repository) toHash(ctx context.Context, doc core.Document) (map[string]any, error) {
	if strings.TrimSpace(doc.ID) == "" {
		return nil, errors.New("document has no ID")
	}
	meta := doc.Metadata
	if meta == nil {
		meta = core.Metadata{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata of %s: %w", doc.ID, err)
	}
	return map[string]any{
		fieldContent:  doc.Content,
		fieldMetadata: string(metaJSON),
		fieldReason:   core.ChangeReason(ctx, "update "+doc.ID),
		fieldUpdated:  time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func fromHash(id string, hash map[string]string) (core.Document, error) {
	doc := core.Document{ID: id, Content: hash[fieldContent], Metadata: core.Metadata{}}
	if raw := hash[fieldMetadata]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &doc.Metadata); err != nil {
			return core.Document{}, fmt.Errorf("corrupt metadata for %s: %w", id, err)
		}
	}
	return doc, nil
}
