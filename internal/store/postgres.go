package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bandmate/backend/internal/db"
	"github.com/bandmate/backend/internal/models"
)

const (
	updateMaxRetries  = 5
	updateBaseBackoff = 20 * time.Millisecond
	updateMaxBackoff  = time.Second
)

var retryablePgErrorCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"55P03": {}, // lock_not_available
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
    kind       TEXT        NOT NULL,
    id         TEXT        NOT NULL,
    body       JSONB       NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (kind, id)
);
CREATE INDEX IF NOT EXISTS documents_body_idx ON documents USING GIN (body);
`

// PostgresStore keeps every collection in a single JSONB documents table.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore constructs a document store backed by PostgreSQL.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the documents table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure documents table: %w", err)
	}
	return nil
}

// Get loads a single document.
func (s *PostgresStore) Get(ctx context.Context, kind models.Kind, id string) (models.Document, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var raw []byte
	err = conn.QueryRow(ctx, `
        SELECT body
        FROM documents
        WHERE kind = $1 AND id = $2
    `, string(kind), id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select %s document: %w", kind, err)
	}

	return decodeBody(raw)
}

// Create inserts a new document.
func (s *PostgresStore) Create(ctx context.Context, kind models.Kind, doc models.Document) (string, error) {
	body := doc.Clone()
	if body == nil {
		body = models.Document{}
	}
	id := body.ID()
	if id == "" {
		id = uuid.NewString()
		body[models.IDField] = id
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode %s document: %w", kind, err)
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO documents (kind, id, body)
        VALUES ($1, $2, $3)
    `, string(kind), id, raw)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", ErrConflict
		}
		return "", fmt.Errorf("insert %s document: %w", kind, err)
	}

	return id, nil
}

// Update locks the row, applies u and writes the body back inside one
// transaction. Serialization failures are retried with backoff.
func (s *PostgresStore) Update(ctx context.Context, kind models.Kind, id string, u Update) error {
	if err := u.Validate(); err != nil {
		return err
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var attempt int
	for attempt = 0; attempt < updateMaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return err
			}
		}

		err := updateOnce(ctx, conn, kind, id, u)
		if err == nil || errors.Is(err, ErrNotFound) {
			return err
		}
		if !shouldRetry(err) {
			return err
		}
	}

	return fmt.Errorf("update %s/%s: exceeded max retries (%d)", kind, id, attempt)
}

type txBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

func updateOnce(ctx context.Context, conn txBeginner, kind models.Kind, id string, u Update) error {
	tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin update transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var raw []byte
	err = tx.QueryRow(ctx, `
        SELECT body
        FROM documents
        WHERE kind = $1 AND id = $2
        FOR UPDATE
    `, string(kind), id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock %s document: %w", kind, err)
	}

	doc, err := decodeBody(raw)
	if err != nil {
		return err
	}
	if err := u.Apply(doc); err != nil {
		return fmt.Errorf("apply update to %s/%s: %w", kind, id, err)
	}

	next, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", kind, err)
	}

	if _, err := tx.Exec(ctx, `
        UPDATE documents
        SET body = $3, updated_at = NOW()
        WHERE kind = $1 AND id = $2
    `, string(kind), id, next); err != nil {
		return fmt.Errorf("update %s document: %w", kind, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s update: %w", kind, err)
	}
	return nil
}

// Delete removes a single document.
func (s *PostgresStore) Delete(ctx context.Context, kind models.Kind, id string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM documents
        WHERE kind = $1 AND id = $2
    `, string(kind), id)
	if err != nil {
		return fmt.Errorf("delete %s document: %w", kind, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindIDs uses JSONB containment so the GIN index serves both scalar and array fields.
func (s *PostgresStore) FindIDs(ctx context.Context, kind models.Kind, field, value string) ([]string, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	scalar, err := json.Marshal(map[string]any{field: value})
	if err != nil {
		return nil, fmt.Errorf("encode containment filter: %w", err)
	}
	array, err := json.Marshal(map[string]any{field: []string{value}})
	if err != nil {
		return nil, fmt.Errorf("encode containment filter: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT id
        FROM documents
        WHERE kind = $1 AND (body @> $2::jsonb OR body @> $3::jsonb)
        ORDER BY id
    `, string(kind), string(scalar), string(array))
	if err != nil {
		return nil, fmt.Errorf("query %s references: %w", kind, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s id: %w", kind, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s references: %w", kind, err)
	}
	return ids, nil
}

// List returns documents of kind ordered by creation time.
func (s *PostgresStore) List(ctx context.Context, kind models.Kind, limit int) ([]models.Document, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	query := `
        SELECT body
        FROM documents
        WHERE kind = $1
        ORDER BY created_at, id
    `
	args := []any{string(kind)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s documents: %w", kind, err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan %s document: %w", kind, err)
		}
		doc, err := decodeBody(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s documents: %w", kind, err)
	}
	return docs, nil
}

func decodeBody(raw []byte) (models.Document, error) {
	var doc models.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document body: %w", err)
	}
	if doc == nil {
		doc = models.Document{}
	}
	return doc, nil
}

func sleepBackoff(ctx context.Context, attempt int) error {
	backoff := time.Duration(math.Pow(2, float64(attempt-1))) * updateBaseBackoff
	if backoff > updateMaxBackoff {
		backoff = updateMaxBackoff
	}
	timer := time.NewTimer(backoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		_, ok := retryablePgErrorCodes[pgErr.Code]
		return ok
	}

	return errors.Is(err, pgx.ErrTxClosed)
}

var _ Store = (*PostgresStore)(nil)
