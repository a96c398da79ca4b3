// Package documents stores schemaless JSON documents grouped in collections.
package documents

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Collection names used by the functions.
const (
	CollectionUsers   = "users"
	CollectionSamples = "samples"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Document is one stored record.
type Document struct {
	ID         uuid.UUID      `json:"id"`
	Collection string         `json:"-"`
	Data       map[string]any `json:"data"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Repository abstracts the document store.
type Repository interface {
	Add(ctx context.Context, collection string, data map[string]any) (Document, error)
	Get(ctx context.Context, collection string, id uuid.UUID) (Document, error)
	FindByField(ctx context.Context, collection, field, value string) ([]Document, error)
}

func cloneData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
