package sla

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/asset-desk/internal/domain"
)

// State is the urgency bucket derived from a deadline, a status and the current time.
type State string

const (
	StateUndefined   State = "undefined"
	StateInvalid     State = "invalid"
	StateUnavailable State = "unavailable"
	StateResolved    State = "resolved"
	StateOverdue     State = "overdue"
	StateCritical    State = "critical"
	StateWarning     State = "warning"
	StateOnTrack     State = "on_track"
)

const (
	criticalHours = 4
	warningHours  = 12
)

// ErrNonPositiveHours is returned when an SLA duration is zero or negative.
var ErrNonPositiveHours = errors.New("sla hours must be positive")

// Classification is the result of Classify. Only the counters relevant to
// State are populated.
type Classification struct {
	State            State
	Deadline         *time.Time
	HoursRemaining   int
	MinutesRemaining int
	HoursOverdue     int
}

// ComputeDeadline returns createdAt plus slaHours hours.
func ComputeDeadline(createdAt time.Time, slaHours int) (time.Time, error) {
	if slaHours <= 0 {
		return time.Time{}, fmt.Errorf("%w: got %d", ErrNonPositiveHours, slaHours)
	}
	return createdAt.Add(time.Duration(slaHours) * time.Hour), nil
}

// Classify buckets a stored deadline. A nil deadline is undefined; settled
// statuses are resolved regardless of time.
func Classify(deadline *time.Time, status domain.TicketStatus, now time.Time) Classification {
	return guard(func() Classification {
		if deadline == nil {
			return Classification{State: StateUndefined}
		}
		if deadline.IsZero() {
			return Classification{State: StateInvalid}
		}
		return classifyInstant(*deadline, status, now)
	})
}

// ClassifyValue buckets a deadline held as text, as it arrives from imports
// and query strings. Empty text is undefined, unparseable text is invalid.
func ClassifyValue(raw string, status domain.TicketStatus, now time.Time) Classification {
	return guard(func() Classification {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return Classification{State: StateUndefined}
		}
		deadline, ok := parseInstant(raw)
		if !ok {
			return Classification{State: StateInvalid}
		}
		return classifyInstant(deadline, status, now)
	})
}

func classifyInstant(deadline time.Time, status domain.TicketStatus, now time.Time) Classification {
	result := Classification{Deadline: &deadline}
	if status.Settled() {
		result.State = StateResolved
		return result
	}

	remaining := deadline.Sub(now)
	hours := int(remaining / time.Hour)
	if now.After(deadline) {
		if hours < 0 {
			hours = -hours
		}
		result.State = StateOverdue
		result.HoursOverdue = hours
		return result
	}

	result.HoursRemaining = hours
	switch {
	case hours <= criticalHours:
		result.State = StateCritical
		result.MinutesRemaining = int(remaining/time.Minute) % 60
	case hours <= warningHours:
		result.State = StateWarning
	default:
		result.State = StateOnTrack
	}
	return result
}

// guard turns any panic during classification into the unavailable state.
func guard(fn func() Classification) (result Classification) {
	defer func() {
		if r := recover(); r != nil {
			result = Classification{State: StateUnavailable}
		}
	}()
	return fn()
}

var instantLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
}

func parseInstant(raw string) (time.Time, bool) {
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			if t.IsZero() {
				return time.Time{}, false
			}
			return t, true
		}
	}
	return time.Time{}, false
}
