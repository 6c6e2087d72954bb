package device

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const deviceColumns = `id, owner_id, vehicle_id, name, type, serial_number,
	service_expiry_date, service_reminder_days, notes, created_at, updated_at`

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL device repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves a device by owner ID and device ID.
func (r *PostgresRepository) Get(ctx context.Context, ownerID, deviceID string) (*Device, error) {
	query := `
		SELECT ` + deviceColumns + `
		FROM devices
		WHERE id = $1 AND owner_id = $2
	`

	device, err := scanDevice(r.pool.QueryRow(ctx, query, deviceID, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}

	return device, nil
}

// ListByOwner retrieves a page of devices for an owner.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string, opts ListOptions) (*ListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	fetchLimit := limit + 1

	query := `
		SELECT ` + deviceColumns + `
		FROM devices
		WHERE owner_id = $1
		  AND ($2 = '' OR vehicle_id = $2)
		  AND ($3 = '' OR (created_at, id) < (SELECT created_at, id FROM devices WHERE id = $3))
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`

	devices, err := r.query(ctx, query, ownerID, opts.VehicleID, opts.Cursor, fetchLimit)
	if err != nil {
		return nil, err
	}

	result := &ListResult{
		Items: devices,
	}

	if len(devices) > limit {
		result.Items = devices[:limit]
		result.NextCursor = devices[limit-1].ID
	}

	return result, nil
}

// ListAllByOwner retrieves every device for an owner.
func (r *PostgresRepository) ListAllByOwner(ctx context.Context, ownerID string) ([]*Device, error) {
	query := `
		SELECT ` + deviceColumns + `
		FROM devices
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
	`

	return r.query(ctx, query, ownerID)
}

// ListOwners returns the IDs of all owners with at least one device.
func (r *PostgresRepository) ListOwners(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT owner_id FROM devices ORDER BY owner_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	owners := make([]string, 0)
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, err
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}

// Create creates a new device.
func (r *PostgresRepository) Create(ctx context.Context, device *Device) error {
	query := `
		INSERT INTO devices (` + deviceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		device.ID,
		device.OwnerID,
		device.VehicleID,
		device.Name,
		device.Type,
		device.SerialNumber,
		device.ServiceExpiryDate,
		device.ServiceReminderDays,
		device.Notes,
		device.CreatedAt,
		device.UpdatedAt,
	)
	return err
}

// Update updates an existing device.
func (r *PostgresRepository) Update(ctx context.Context, device *Device) error {
	query := `
		UPDATE devices SET
			vehicle_id = $2,
			name = $3,
			type = $4,
			serial_number = $5,
			service_expiry_date = $6,
			service_reminder_days = $7,
			notes = $8,
			updated_at = $9
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		device.ID,
		device.VehicleID,
		device.Name,
		device.Type,
		device.SerialNumber,
		device.ServiceExpiryDate,
		device.ServiceReminderDays,
		device.Notes,
		device.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// Delete deletes a device.
func (r *PostgresRepository) Delete(ctx context.Context, ownerID, deviceID string) error {
	query := `DELETE FROM devices WHERE id = $1 AND owner_id = $2`

	result, err := r.pool.Exec(ctx, query, deviceID, ownerID)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*Device, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	devices := make([]*Device, 0)
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return devices, nil
}

// scanDevice scans a single device row.
func scanDevice(row pgx.Row) (*Device, error) {
	var device Device

	err := row.Scan(
		&device.ID,
		&device.OwnerID,
		&device.VehicleID,
		&device.Name,
		&device.Type,
		&device.SerialNumber,
		&device.ServiceExpiryDate,
		&device.ServiceReminderDays,
		&device.Notes,
		&device.CreatedAt,
		&device.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &device, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
