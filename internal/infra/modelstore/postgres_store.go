package modelstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/allergy-risk/internal/domain/risk"
)

const defaultHistory = 10

// PostgresStore appends every artifact as a row and serves the newest one.
// Older rows beyond the history window are pruned in the same transaction.
type PostgresStore struct {
	pool    *pgxpool.Pool
	table   string
	history int
}

// NewPostgresStore creates a new store. table must be a plain identifier.
func NewPostgresStore(pool *pgxpool.Pool, table string) *PostgresStore {
	if table == "" {
		table = "model_artifacts"
	}
	return &PostgresStore{
		pool:    pool,
		table:   pgx.Identifier{table}.Sanitize(),
		history: defaultHistory,
	}
}

// EnsureSchema creates the artifact table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			payload BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, s.table))
	if err != nil {
		return fmt.Errorf("ensure model table: %w", err)
	}
	return nil
}

// Load implements risk.ArtifactStore.
func (s *PostgresStore) Load(ctx context.Context) ([]byte, bool, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT payload
		FROM %s
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, s.table))
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load model row: %w", err)
	}
	return payload, true, nil
}

// Save implements risk.ArtifactStore.
func (s *PostgresStore) Save(ctx context.Context, data []byte) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin model tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, payload, created_at)
		VALUES ($1, $2, clock_timestamp())
	`, s.table), uuid.New(), data); err != nil {
		return fmt.Errorf("insert model row: %w", err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf(`
		DELETE FROM %[1]s
		WHERE id NOT IN (
			SELECT id FROM %[1]s ORDER BY created_at DESC, id DESC LIMIT $1
		)
	`, s.table), s.history); err != nil {
		return fmt.Errorf("prune model rows: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit model tx: %w", err)
	}
	return nil
}

var _ risk.ArtifactStore = (*PostgresStore)(nil)
