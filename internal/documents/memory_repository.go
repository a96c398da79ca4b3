package documents

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository keeps documents in process, for local development and tests.
type InMemoryRepository struct {
	mu    sync.RWMutex
	data  map[string]map[uuid.UUID]Document
	order map[string][]uuid.UUID
	now   func() time.Time
}

// NewInMemoryRepository constructs an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		data:  make(map[string]map[uuid.UUID]Document),
		order: make(map[string][]uuid.UUID),
		now:   time.Now,
	}
}

// Add stores data under a fresh id.
func (r *InMemoryRepository) Add(_ context.Context, collection string, data map[string]any) (Document, error) {
	doc := Document{
		ID:         uuid.New(),
		Collection: collection,
		Data:       cloneData(data),
		CreatedAt:  r.now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.data[collection] == nil {
		r.data[collection] = make(map[uuid.UUID]Document)
	}
	r.data[collection][doc.ID] = doc
	r.order[collection] = append(r.order[collection], doc.ID)

	out := doc
	out.Data = cloneData(doc.Data)
	return out, nil
}

// Get returns a document by id.
func (r *InMemoryRepository) Get(_ context.Context, collection string, id uuid.UUID) (Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.data[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	doc.Data = cloneData(doc.Data)
	return doc, nil
}

// FindByField returns documents whose string field equals value, oldest first.
func (r *InMemoryRepository) FindByField(_ context.Context, collection, field, value string) ([]Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Document
	for _, id := range r.order[collection] {
		doc := r.data[collection][id]
		if got, ok := doc.Data[field].(string); ok && got == value {
			doc.Data = cloneData(doc.Data)
			out = append(out, doc)
		}
	}
	return out, nil
}
