package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested document does not exist.
var ErrNotFound = errors.New("documents: not found")

// Repository provides PostgreSQL backed persistence for documents. The
// structured body is stored as a single JSONB column; edits replace the
// row wholesale.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new document record.
func (r *Repository) Create(ctx context.Context, rec Record) (*Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	payload, err := json.Marshal(rec.Data)
	if err != nil {
		return nil, fmt.Errorf("documents: encode data: %w", err)
	}

	query := `
		INSERT INTO documents (id, name, owner_id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING created_at, updated_at`

	if err := r.pool.QueryRow(ctx, query, rec.ID, rec.Name, rec.OwnerID, payload).
		Scan(&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Replace overwrites an existing record in full. There are no partial
// update semantics.
func (r *Repository) Replace(ctx context.Context, rec Record) (*Record, error) {
	payload, err := json.Marshal(rec.Data)
	if err != nil {
		return nil, fmt.Errorf("documents: encode data: %w", err)
	}

	query := `
		UPDATE documents
		SET name = $2, data = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING owner_id, created_at, updated_at`

	if err := r.pool.QueryRow(ctx, query, rec.ID, rec.Name, payload).
		Scan(&rec.OwnerID, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// Get retrieves a document by ID.
func (r *Repository) Get(ctx context.Context, id string) (*Record, error) {
	query := `
		SELECT id, name, owner_id, data, created_at, updated_at
		FROM documents
		WHERE id = $1`

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// List returns all documents, newest first.
func (r *Repository) List(ctx context.Context) ([]Record, error) {
	query := `
		SELECT id, name, owner_id, data, created_at, updated_at
		FROM documents
		ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// Delete removes a document permanently.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM documents WHERE id = $1", id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveExport stores a rendered PDF for a document.
func (r *Repository) SaveExport(ctx context.Context, documentID string, pdf []byte) error {
	query := `
		INSERT INTO document_exports (document_id, pdf, created_at)
		VALUES ($1, $2, NOW())`
	_, err := r.pool.Exec(ctx, query, documentID, pdf)
	return err
}

// LatestExport returns the newest stored PDF for a document.
func (r *Repository) LatestExport(ctx context.Context, documentID string) ([]byte, time.Time, error) {
	query := `
		SELECT pdf, created_at
		FROM document_exports
		WHERE document_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	var pdf []byte
	var createdAt time.Time
	if err := r.pool.QueryRow(ctx, query, documentID).Scan(&pdf, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, time.Time{}, ErrNotFound
		}
		return nil, time.Time{}, err
	}
	return pdf, createdAt, nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	var payload []byte
	if err := row.Scan(&rec.ID, &rec.Name, &rec.OwnerID, &payload, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &rec.Data); err != nil {
		return nil, fmt.Errorf("documents: decode data: %w", err)
	}
	return &rec, nil
}
