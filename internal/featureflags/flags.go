// Package featureflags provides runtime toggles for the reminder engine. Flag
// values live in the database, are cached in memory and fall back to
// compiled-in defaults.
package featureflags

import (
	"math"
	"time"

	"github.com/fleetminder/fleetminder/internal/reminder"
)

// Flag keys.
const (
	// FlagDisableReminderSending stops the worker from delivering reminder digests.
	FlagDisableReminderSending = "disable_reminder_sending"

	// FlagBadgeUrgentDays is the day threshold for the navigation badge count.
	FlagBadgeUrgentDays = "badge_urgent_days"

	// FlagDigestIncludeUpcoming adds non-urgent upcoming reminders to digests.
	FlagDigestIncludeUpcoming = "digest_include_upcoming"
)

// maxBadgeUrgentDays keeps the badge threshold inside the reminder window.
const maxBadgeUrgentDays = reminder.DefaultReminderDays

type valueKind int

const (
	kindBool valueKind = iota
	kindDays
)

type definition struct {
	kind        valueKind
	defaultVal  any
	description string
}

// catalogue lists every flag the services evaluate. Values decoded from JSON
// arrive as float64, so day counts are stored that way too.
var catalogue = map[string]definition{
	FlagDisableReminderSending: {
		kind:        kindBool,
		defaultVal:  false,
		description: "Stop delivering reminder digests",
	},
	FlagBadgeUrgentDays: {
		kind:        kindDays,
		defaultVal:  float64(reminder.DefaultUrgentDays),
		description: "Days before expiry that count towards the badge",
	},
	FlagDigestIncludeUpcoming: {
		kind:        kindBool,
		defaultVal:  false,
		description: "Include non-urgent reminders in digests",
	},
}

// Flag is a flag key with its current value.
type Flag struct {
	Key         string    `json:"key"`
	Value       any       `json:"value"`
	Description string    `json:"description,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FlagList is the admin listing of all flags.
type FlagList struct {
	Items []Flag `json:"items"`
}

// FlagUpdate sets one flag.
type FlagUpdate struct {
	Key   string `json:"key" validate:"required,max=64"`
	Value any    `json:"value"`
}

// FlagUpdateRequest is the body of PUT /v1/admin/flags.
type FlagUpdateRequest struct {
	Updates []FlagUpdate `json:"updates" validate:"required,min=1,dive"`
	Reason  string       `json:"reason" validate:"required,max=200"`
}

// BoolValue returns the flag value as a boolean, or fallback when the flag is
// unset or not a boolean.
func (f *Flag) BoolValue(fallback bool) bool {
	if f == nil {
		return fallback
	}
	if v, ok := f.Value.(bool); ok {
		return v
	}
	return fallback
}

// IntValue returns a whole-number flag value, or fallback.
func (f *Flag) IntValue(fallback int) int {
	if f == nil {
		return fallback
	}
	switch v := f.Value.(type) {
	case int:
		return v
	case float64:
		if v == math.Trunc(v) {
			return int(v)
		}
	}
	return fallback
}

// DefaultFlags returns the compiled-in value of every known flag.
func DefaultFlags() map[string]*Flag {
	out := make(map[string]*Flag, len(catalogue))
	for key, def := range catalogue {
		out[key] = &Flag{Key: key, Value: def.defaultVal, Description: def.description}
	}
	return out
}
