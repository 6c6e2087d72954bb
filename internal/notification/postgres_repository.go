package notification

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDismissalRepository is a PostgreSQL implementation of DismissalRepository.
type PostgresDismissalRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresDismissalRepository creates a new PostgreSQL dismissal repository.
func NewPostgresDismissalRepository(pool *pgxpool.Pool) *PostgresDismissalRepository {
	return &PostgresDismissalRepository{pool: pool}
}

// ListByOwner retrieves all dismissals of an owner.
func (r *PostgresDismissalRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Dismissal, error) {
	query := `
		SELECT owner_id, notification_id, due_date, dismissed_at
		FROM notification_dismissals
		WHERE owner_id = $1
	`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dismissals := make([]*Dismissal, 0)
	for rows.Next() {
		var d Dismissal
		if err := rows.Scan(&d.OwnerID, &d.NotificationID, &d.DueDate, &d.DismissedAt); err != nil {
			return nil, err
		}
		dismissals = append(dismissals, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return dismissals, nil
}

// Upsert records a dismissal.
func (r *PostgresDismissalRepository) Upsert(ctx context.Context, d *Dismissal) error {
	query := `
		INSERT INTO notification_dismissals (owner_id, notification_id, due_date, dismissed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id, notification_id) DO UPDATE SET
			due_date = EXCLUDED.due_date,
			dismissed_at = EXCLUDED.dismissed_at
	`

	_, err := r.pool.Exec(ctx, query, d.OwnerID, d.NotificationID, d.DueDate, d.DismissedAt)
	return err
}

// Delete removes a dismissal.
func (r *PostgresDismissalRepository) Delete(ctx context.Context, ownerID, notificationID string) error {
	query := `DELETE FROM notification_dismissals WHERE owner_id = $1 AND notification_id = $2`

	result, err := r.pool.Exec(ctx, query, ownerID, notificationID)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrDismissalNotFound
	}
	return nil
}

// Ensure PostgresDismissalRepository implements DismissalRepository interface.
var _ DismissalRepository = (*PostgresDismissalRepository)(nil)
