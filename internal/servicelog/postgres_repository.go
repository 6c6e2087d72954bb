package servicelog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const recordColumns = `id, owner_id, vehicle_id, device_id, performed_at, description,
	mileage, cost, next_due_date, notes, created_at`

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL service record repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves a record by owner ID and record ID.
func (r *PostgresRepository) Get(ctx context.Context, ownerID, recordID string) (*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM service_records WHERE id = $1 AND owner_id = $2`

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, recordID, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return rec, nil
}

// List retrieves a page of records for an owner.
func (r *PostgresRepository) List(ctx context.Context, ownerID string, opts ListOptions) (*ListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	fetchLimit := limit + 1

	query := `
		SELECT ` + recordColumns + `
		FROM service_records
		WHERE owner_id = $1
		  AND ($2 = '' OR vehicle_id = $2)
		  AND ($3 = '' OR (performed_at, id) < (SELECT performed_at, id FROM service_records WHERE id = $3))
		ORDER BY performed_at DESC, id DESC
		LIMIT $4
	`

	rows, err := r.pool.Query(ctx, query, ownerID, opts.VehicleID, opts.Cursor, fetchLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &ListResult{Items: records}
	if len(records) > limit {
		result.Items = records[:limit]
		result.NextCursor = records[limit-1].ID
	}
	return result, nil
}

// Create creates a new record.
func (r *PostgresRepository) Create(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO service_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.OwnerID,
		rec.VehicleID,
		rec.DeviceID,
		rec.PerformedAt,
		rec.Description,
		rec.Mileage,
		rec.Cost,
		rec.NextDueDate,
		rec.Notes,
		rec.CreatedAt,
	)
	return err
}

// Delete deletes a record.
func (r *PostgresRepository) Delete(ctx context.Context, ownerID, recordID string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM service_records WHERE id = $1 AND owner_id = $2`, recordID, ownerID)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID,
		&rec.OwnerID,
		&rec.VehicleID,
		&rec.DeviceID,
		&rec.PerformedAt,
		&rec.Description,
		&rec.Mileage,
		&rec.Cost,
		&rec.NextDueDate,
		&rec.Notes,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
