package featureflags

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	listFlagsQuery = `SELECT key, value, reason, updated_at FROM feature_flags ORDER BY key`

	upsertFlagQuery = `
	INSERT INTO feature_flags (key, value, reason, updated_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (key) DO UPDATE SET
		value = EXCLUDED.value,
		reason = EXCLUDED.reason,
		updated_at = EXCLUDED.updated_at`
)

// PostgresRepository stores flags in the feature_flags table. Values are
// JSONB so booleans and day counts share a column.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a repository on pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// List returns every stored flag ordered by key.
func (r *PostgresRepository) List(ctx context.Context) ([]*Flag, error) {
	rows, err := r.pool.Query(ctx, listFlagsQuery)
	if err != nil {
		return nil, fmt.Errorf("query feature flags: %w", err)
	}

	flags, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Flag, error) {
		var (
			f   Flag
			raw []byte
		)
		if err := row.Scan(&f.Key, &raw, &f.Reason, &f.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &f.Value); err != nil {
			return nil, fmt.Errorf("decode flag %s: %w", f.Key, err)
		}
		return &f, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan feature flags: %w", err)
	}
	return flags, nil
}

// Upsert writes all flags in one transaction.
func (r *PostgresRepository) Upsert(ctx context.Context, flags []*Flag) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, f := range flags {
			raw, err := json.Marshal(f.Value)
			if err != nil {
				return fmt.Errorf("encode flag %s: %w", f.Key, err)
			}
			batch.Queue(upsertFlagQuery, f.Key, raw, f.Reason, f.UpdatedAt)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

var _ Repository = (*PostgresRepository)(nil)
