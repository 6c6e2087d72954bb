package vehicle

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const vehicleColumns = `id, owner_id, name, make, model, year, license_plate, vin, mileage,
	insurance_expiry_date, insurance_reminder_days,
	inspection_expiry_date, inspection_reminder_days,
	service_expiry_date, service_reminder_days,
	notes, created_at, updated_at`

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL vehicle repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves a vehicle by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1`
	return r.scanOne(ctx, query, id)
}

// GetByOwnerAndID retrieves a vehicle by owner ID and vehicle ID.
func (r *PostgresRepository) GetByOwnerAndID(ctx context.Context, ownerID, vehicleID string) (*Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1 AND owner_id = $2`
	return r.scanOne(ctx, query, vehicleID, ownerID)
}

// List retrieves a page of vehicles for an owner, newest first.
func (r *PostgresRepository) List(ctx context.Context, ownerID string, opts ListOptions) (*ListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	fetchLimit := limit + 1

	query := `
		SELECT ` + vehicleColumns + `
		FROM vehicles
		WHERE owner_id = $1
		  AND ($2 = '' OR (created_at, id) < (SELECT created_at, id FROM vehicles WHERE id = $2))
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`

	vehicles, err := r.scanMany(ctx, query, ownerID, opts.Cursor, fetchLimit)
	if err != nil {
		return nil, err
	}

	result := &ListResult{Items: vehicles}
	if len(vehicles) > limit {
		result.Items = vehicles[:limit]
		result.NextCursor = vehicles[limit-1].ID
	}
	return result, nil
}

// ListAll retrieves every vehicle for an owner.
func (r *PostgresRepository) ListAll(ctx context.Context, ownerID string) ([]*Vehicle, error) {
	query := `
		SELECT ` + vehicleColumns + `
		FROM vehicles
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
	`
	return r.scanMany(ctx, query, ownerID)
}

// ListOwners returns the IDs of all owners with at least one vehicle.
func (r *PostgresRepository) ListOwners(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT owner_id FROM vehicles ORDER BY owner_id`)
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

// Create creates a new vehicle.
func (r *PostgresRepository) Create(ctx context.Context, v *Vehicle) error {
	query := `
		INSERT INTO vehicles (` + vehicleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := r.pool.Exec(ctx, query,
		v.ID, v.OwnerID, v.Name, v.Make, v.Model, v.Year, v.LicensePlate, v.VIN, v.Mileage,
		v.InsuranceExpiryDate, v.InsuranceReminderDays,
		v.InspectionExpiryDate, v.InspectionReminderDays,
		v.ServiceExpiryDate, v.ServiceReminderDays,
		v.Notes, v.CreatedAt, v.UpdatedAt,
	)
	return err
}

// Update updates an existing vehicle.
func (r *PostgresRepository) Update(ctx context.Context, v *Vehicle) error {
	query := `
		UPDATE vehicles SET
			name = $2,
			make = $3,
			model = $4,
			year = $5,
			license_plate = $6,
			vin = $7,
			mileage = $8,
			insurance_expiry_date = $9,
			insurance_reminder_days = $10,
			inspection_expiry_date = $11,
			inspection_reminder_days = $12,
			service_expiry_date = $13,
			service_reminder_days = $14,
			notes = $15,
			updated_at = $16
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		v.ID, v.Name, v.Make, v.Model, v.Year, v.LicensePlate, v.VIN, v.Mileage,
		v.InsuranceExpiryDate, v.InsuranceReminderDays,
		v.InspectionExpiryDate, v.InspectionReminderDays,
		v.ServiceExpiryDate, v.ServiceReminderDays,
		v.Notes, v.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrVehicleNotFound
	}
	return nil
}

// Delete deletes a vehicle by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrVehicleNotFound
	}
	return nil
}

func (r *PostgresRepository) scanOne(ctx context.Context, query string, args ...any) (*Vehicle, error) {
	v, err := scanVehicle(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVehicleNotFound
		}
		return nil, err
	}
	return v, nil
}

func (r *PostgresRepository) scanMany(ctx context.Context, query string, args ...any) ([]*Vehicle, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vehicles := make([]*Vehicle, 0)
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// scanVehicle scans a single vehicle row.
func scanVehicle(row pgx.Row) (*Vehicle, error) {
	var v Vehicle
	err := row.Scan(
		&v.ID,
		&v.OwnerID,
		&v.Name,
		&v.Make,
		&v.Model,
		&v.Year,
		&v.LicensePlate,
		&v.VIN,
		&v.Mileage,
		&v.InsuranceExpiryDate,
		&v.InsuranceReminderDays,
		&v.InspectionExpiryDate,
		&v.InspectionReminderDays,
		&v.ServiceExpiryDate,
		&v.ServiceReminderDays,
		&v.Notes,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
