package ledger

import (
	"fmt"
	"time"
)

// Domain selects which daily ledger a call operates on. Workouts and meals
// share entry shape and lifecycle but live in separate collections.
type Domain string

// Ledger domains.
const (
	DomainWorkouts Domain = "workouts"
	DomainMeals    Domain = "meals"
)

// UsersCollection holds the per-user profile documents (including the
// advisory metrics cache).
const UsersCollection = "users"

// ParseDomain validates a domain string from the API surface.
func ParseDomain(s string) (Domain, error) {
	switch Domain(s) {
	case DomainWorkouts, DomainMeals:
		return Domain(s), nil
	}
	return "", fmt.Errorf("unknown domain %q", s)
}

// PlanCollection is the per-user plan set for this domain: entries added to
// today and not yet completed.
func (d Domain) PlanCollection(userID string) string {
	if d == DomainMeals {
		return "users/" + userID + "/mealPlansToday"
	}
	return "users/" + userID + "/workoutsToday"
}

// LogCollection is the per-user append-only log for this domain.
func (d Domain) LogCollection(userID string) string {
	if d == DomainMeals {
		return "users/" + userID + "/mealLogs"
	}
	return "users/" + userID + "/workoutLogs"
}

// ProgressCollection is the per-user weigh-in log.
func ProgressCollection(userID string) string {
	return "users/" + userID + "/progress"
}

// EpochDay is the day bucket: whole days since 1970-01-01, computed in UTC.
// All queries and aggregations partition by this key, never by wall-clock
// timestamps, so "today" is stable regardless of the reader's timezone.
func EpochDay(t time.Time) int {
	return int(t.UTC().Unix() / 86400)
}
