// Package notification serves the reminder feed to API callers. It loads an
// owner's vehicles and devices, runs the reminder engine and applies the
// owner's dismissals on top.
package notification

import (
	"errors"
	"time"
)

// Service errors.
var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrDismissalNotFound    = errors.New("dismissal not found")
)

// Dismissal hides one notification for as long as its due date is unchanged.
// Renewing the underlying date brings the reminder back.
type Dismissal struct {
	OwnerID        string
	NotificationID string
	DueDate        time.Time
	DismissedAt    time.Time
}

// Matches reports whether the dismissal still applies to a notification due at dueDate.
func (d *Dismissal) Matches(dueDate time.Time) bool {
	return d.DueDate.Equal(dueDate)
}

// ListOptions contains options for listing notifications.
type ListOptions struct {
	IncludeDismissed bool
}
