package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
)

// PostgresRepository persists documents as JSONB rows.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository constructs a repository backed by sqlx.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type documentRow struct {
	ID         uuid.UUID      `db:"id"`
	Collection string         `db:"collection"`
	Data       types.JSONText `db:"data"`
	CreatedAt  time.Time      `db:"created_at"`
}

func (row documentRow) toDocument() (Document, error) {
	data := map[string]any{}
	if err := row.Data.Unmarshal(&data); err != nil {
		return Document{}, fmt.Errorf("decode document %s: %w", row.ID, err)
	}
	return Document{
		ID:         row.ID,
		Collection: row.Collection,
		Data:       data,
		CreatedAt:  row.CreatedAt,
	}, nil
}

const baseSelect = `SELECT id, collection, data, created_at FROM documents`

// Add inserts data under a fresh id.
func (r *PostgresRepository) Add(ctx context.Context, collection string, data map[string]any) (Document, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return Document{}, fmt.Errorf("encode document: %w", err)
	}

	row := documentRow{
		ID:         uuid.New(),
		Collection: collection,
		Data:       types.JSONText(encoded),
		CreatedAt:  time.Now().UTC(),
	}

	insert := `INSERT INTO documents (id, collection, data, created_at) VALUES (:id, :collection, :data, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, insert, row); err != nil {
		return Document{}, fmt.Errorf("insert document: %w", err)
	}
	return row.toDocument()
}

// Get retrieves a document by collection and id.
func (r *PostgresRepository) Get(ctx context.Context, collection string, id uuid.UUID) (Document, error) {
	var row documentRow
	if err := r.db.GetContext(ctx, &row, baseSelect+" WHERE collection = $1 AND id = $2", collection, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	return row.toDocument()
}

// FindByField returns documents whose top-level field equals value, oldest first.
func (r *PostgresRepository) FindByField(ctx context.Context, collection, field, value string) ([]Document, error) {
	var rows []documentRow
	query := baseSelect + " WHERE collection = $1 AND data->>$2 = $3 ORDER BY created_at ASC"
	if err := r.db.SelectContext(ctx, &rows, query, collection, field, value); err != nil {
		return nil, fmt.Errorf("find documents: %w", err)
	}

	out := make([]Document, 0, len(rows))
	for _, row := range rows {
		doc, err := row.toDocument()
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}
