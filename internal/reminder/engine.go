package reminder

import (
	"fmt"
	"slices"
	"time"
)

const dayMillis = int64(24 * time.Hour / time.Millisecond)

// Generate builds the notification feed for the given vehicles and devices
// using the current wall-clock time.
func Generate[V TrackedEntity, D TrackedDevice](vehicles []V, devices []D) []Notification {
	return GenerateAt(time.Now(), vehicles, devices)
}

// GenerateAt builds the notification feed relative to now. The same instant is
// used for every entity so one call is internally consistent.
//
// Expired entries come first, then upcoming ones; each group is ordered by
// ascending DaysRemaining and ties keep encounter order (vehicles before devices).
func GenerateAt[V TrackedEntity, D TrackedDevice](now time.Time, vehicles []V, devices []D) []Notification {
	out := make([]Notification, 0)

	vehicleNames := make(map[string]string, len(vehicles))
	for _, v := range vehicles {
		vehicleNames[v.EntityID()] = v.EntityName()
	}

	for _, v := range vehicles {
		for _, attr := range v.ExpiryAttributes() {
			n, ok := evaluate(now, attr)
			if !ok {
				continue
			}
			n.ID = notificationID(attr.Category, v.EntityID())
			n.SourceEntityID = v.EntityID()
			n.SourceEntityKind = KindVehicle
			n.Message = message(attr.Category, v.EntityName(), n.DaysRemaining)
			out = append(out, n)
		}
	}

	for _, d := range devices {
		parentID := d.ParentVehicleID()
		parentName, resolved := "", false
		if parentID != "" {
			parentName, resolved = vehicleNames[parentID]
		}

		for _, attr := range d.ExpiryAttributes() {
			n, ok := evaluate(now, attr)
			if !ok {
				continue
			}
			n.ID = notificationID(attr.Category, d.EntityID())
			n.SourceEntityID = d.EntityID()
			n.SourceEntityKind = KindDevice

			subject := d.EntityName()
			if resolved {
				n.ParentVehicleID = parentID
				n.ParentVehicleName = parentName
				subject = fmt.Sprintf("%s (%s)", subject, parentName)
			}
			n.Message = message(attr.Category, subject, n.DaysRemaining)
			out = append(out, n)
		}
	}

	slices.SortStableFunc(out, compare)
	return out
}

// DaysUntil returns the whole days from now until t, floored toward the past.
// A due date later today yields 0; one that passed a moment ago yields -1.
func DaysUntil(now, t time.Time) int {
	diff := t.UnixMilli() - now.UnixMilli()
	q := diff / dayMillis
	if diff%dayMillis != 0 && diff < 0 {
		q--
	}
	return int(q)
}

// CountUrgent counts the notifications that are expired or due within urgentDays.
func CountUrgent(notifications []Notification, urgentDays int) int {
	count := 0
	for _, n := range notifications {
		if n.IsUrgent(urgentDays) {
			count++
		}
	}
	return count
}

func evaluate(now time.Time, attr ExpiryAttribute) (Notification, bool) {
	if attr.ExpiryDate == nil {
		return Notification{}, false
	}

	due := *attr.ExpiryDate
	days := DaysUntil(now, due)

	// Overdue entries are surfaced regardless of the window.
	if days >= 0 && days > attr.Window() {
		return Notification{}, false
	}

	return Notification{
		Category:      attr.Category,
		DueDate:       due,
		DaysRemaining: days,
		IsExpired:     days < 0,
	}, true
}

func compare(a, b Notification) int {
	if a.IsExpired != b.IsExpired {
		if a.IsExpired {
			return -1
		}
		return 1
	}
	return a.DaysRemaining - b.DaysRemaining
}

func notificationID(category Category, entityID string) string {
	return string(category) + "-" + entityID
}

func message(category Category, subject string, days int) string {
	prefix := category.Label() + " for " + subject
	switch {
	case days < -1:
		return fmt.Sprintf("%s expired %d days ago", prefix, -days)
	case days == -1:
		return prefix + " expired yesterday"
	case days == 0:
		return prefix + " is due today"
	case days == 1:
		return prefix + " is due tomorrow"
	default:
		return fmt.Sprintf("%s is due in %d days", prefix, days)
	}
}
