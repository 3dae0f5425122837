package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/routecash/routecash/internal/shared"
)

// PostgresRemote persists documents in a single jsonb-backed table:
//
//	CREATE TABLE documents (
//	    collection text NOT NULL,
//	    id         text NOT NULL,
//	    doc        jsonb NOT NULL,
//	    updated_at timestamptz NOT NULL DEFAULT NOW(),
//	    PRIMARY KEY (collection, id)
//	);
type PostgresRemote struct {
	pool *pgxpool.Pool
}

// NewPostgresRemote constructs the remote store.
func NewPostgresRemote(pool *pgxpool.Pool) *PostgresRemote {
	return &PostgresRemote{pool: pool}
}

// Put upserts a document.
func (r *PostgresRemote) Put(ctx context.Context, collection, id string, doc []byte) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO documents (collection, id, doc, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (collection, id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()`, collection, id, doc)
	if err != nil {
		return fmt.Errorf("store/postgres: put %s/%s: %w", collection, id, err)
	}
	return nil
}

// Delete removes a document. Deleting an absent document is not an error.
func (r *PostgresRemote) Delete(ctx context.Context, collection, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE collection=$1 AND id=$2`, collection, id)
	if err != nil {
		return fmt.Errorf("store/postgres: delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// Get fetches a single document.
func (r *PostgresRemote) Get(ctx context.Context, collection, id string) ([]byte, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `SELECT doc FROM documents WHERE collection=$1 AND id=$2`, collection, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("store/postgres: %s/%s: %w", collection, id, shared.ErrNotFound)
		}
		return nil, fmt.Errorf("store/postgres: get %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

var sqlOps = map[string]string{
	"==": "=", "!=": "<>", ">": ">", ">=": ">=", "<": "<", "<=": "<=",
}

// QueryWhere returns documents matching a single field condition. Numeric
// values compare numerically via a cast, everything else as text.
func (r *PostgresRemote) QueryWhere(ctx context.Context, collection, field, op, value string) ([][]byte, error) {
	sqlOp, ok := sqlOps[op]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported query operator %q", shared.ErrValidation, op)
	}
	query := `SELECT doc FROM documents WHERE collection=$1 AND doc->>$2 ` + sqlOp + ` $3 ORDER BY updated_at ASC`
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		query = `SELECT doc FROM documents WHERE collection=$1 AND (doc->>$2)::numeric ` + sqlOp + ` $3::numeric ORDER BY updated_at ASC`
	}
	rows, err := r.pool.Query(ctx, query, collection, field, value)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: query %s.%s: %w", collection, field, err)
	}
	defer rows.Close()
	var docs [][]byte
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}
