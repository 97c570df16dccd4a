// Package typed binds Go structs to document collections.
package typed

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/studywise/pkg/core"
)

// Store is the subset of document operations shared by core.Repository and
// core.Transaction, so a typed collection can work inside or outside a transaction.
type Store interface {
	Save(ctx context.Context, doc core.Document) error
	Get(ctx context.Context, id string) (core.Document, error)
	List(ctx context.Context) ([]core.Document, error)
	Delete(ctx context.Context, id string) error
}

// Model is a typed view of a document.
// ID is relative to the collection (no "notes/" prefix).
type Model[T any] struct {
	ID      string
	Content string
	Data    T
}

// Repository maps a collection of documents to values of type T.
// Fields of T are marshalled through their JSON tags into document metadata.
type Repository[T any] struct {
	store      Store
	collection string
}

// NewRepository creates a typed collection stored under "<collection>/".
func NewRepository[T any](store Store, collection string) *Repository[T] {
	return &Repository[T]{store: store, collection: strings.Trim(collection, "/")}
}

// Collection returns the collection name.
func (r *Repository[T]) Collection() string {
	return r.collection
}

// Key returns the document ID for a collection-relative id.
func (r *Repository[T]) Key(id string) string {
	return r.collection + "/" + id
}

// ValidID reports whether id names a single record of a collection.
// Separators and dot segments would let an id escape its collection.
func ValidID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

// lookupKey is Key for reads and deletes: an id that cannot exist is not found.
func (r *Repository[T]) lookupKey(id string) (string, error) {
	if !ValidID(id) {
		return "", fmt.Errorf("%s %q: %w (%w)", r.collection, id, core.ErrNotFound, core.ErrInvalidID)
	}
	return r.Key(id), nil
}

// Save persists a typed document.
func (r *Repository[T]) Save(ctx context.Context, m *Model[T]) error {
	doc, err := r.toDocument(m)
	if err != nil {
		return err
	}
	return r.store.Save(ctx, doc)
}

// Get retrieves a document and unmarshals it.
func (r *Repository[T]) Get(ctx context.Context, id string) (*Model[T], error) {
	key, err := r.lookupKey(id)
	if err != nil {
		return nil, err
	}
	doc, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return r.fromDocument(doc)
}

// List returns every document of the collection, ordered by ID.
func (r *Repository[T]) List(ctx context.Context) ([]*Model[T], error) {
	docs, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}

	prefix := r.collection + "/"
	result := make([]*Model[T], 0, len(docs))
	for _, d := range docs {
		if !strings.HasPrefix(d.ID, prefix) {
			continue
		}
		model, err := r.fromDocument(d)
		if err != nil {
			return nil, fmt.Errorf("failed to process document %s: %w", d.ID, err)
		}
		result = append(result, model)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Delete removes a document by its collection-relative id.
func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	key, err := r.lookupKey(id)
	if err != nil {
		return err
	}
	return r.store.Delete(ctx, key)
}

func (r *Repository[T]) toDocument(m *Model[T]) (core.Document, error) {
	if !ValidID(m.ID) {
		return core.Document{}, fmt.Errorf("%s %q: %w", r.collection, m.ID, core.ErrInvalidID)
	}

	dataBytes, err := json.Marshal(m.Data)
	if err != nil {
		return core.Document{}, fmt.Errorf("failed to marshal typed data: %w", err)
	}

	var metadata map[string]interface{}
	if err := json.Unmarshal(dataBytes, &metadata); err != nil {
		return core.Document{}, fmt.Errorf("failed to convert typed data to map: %w", err)
	}

	return core.Document{
		ID:       r.Key(m.ID),
		Content:  m.Content,
		Metadata: metadata,
	}, nil
}

func (r *Repository[T]) fromDocument(doc core.Document) (*Model[T], error) {
	dataBytes, err := json.Marshal(doc.Metadata)
	if err != nil {
		return nil, fmt.Errorf("metadata marshal failed: %w", err)
	}

	var data T
	if err := json.Unmarshal(dataBytes, &data); err != nil {
		return nil, fmt.Errorf("unmarshal to %T failed: %w", data, err)
	}

	return &Model[T]{
		ID:      strings.TrimPrefix(doc.ID, r.collection+"/"),
		Content: doc.Content,
		Data:    data,
	}, nil
}
