package ledger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hellofit/fitledger/internal/models"
	"github.com/hellofit/fitledger/internal/store"
	"github.com/hellofit/fitledger/pkg/logging"
)

// Reconciler moves entries through the plan→log lifecycle. Plan removal and
// log append are deliberately two separate store calls, not a transaction:
// each step is at-most-once and a failure between them surfaces as
// ErrPartialApply so the caller re-syncs instead of retrying blindly.
type Reconciler struct {
	store  store.Store
	now    func() time.Time
	logger *zap.Logger
}

// NewReconciler wires a reconciler over the given store.
func NewReconciler(st store.Store) *Reconciler {
	return &Reconciler{
		store:  st,
		now:    time.Now,
		logger: logging.WithComponent("ledger"),
	}
}

// SetClock overrides the time source. Test hook.
func (r *Reconciler) SetClock(now func() time.Time) { r.now = now }

// Today returns the current day bucket.
func (r *Reconciler) Today() int { return EpochDay(r.now()) }

// ListToday returns today's plan entries in insertion order.
func (r *Reconciler) ListToday(ctx context.Context, userID string, d Domain) ([]models.Entry, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	docs, err := r.store.Query(ctx, d.PlanCollection(userID),
		[]store.Filter{{Field: "dateEpochDay", Op: store.OpEqual, Value: r.Today()}},
		&store.Order{Field: store.CreatedAtField}, 0)
	if err != nil {
		return nil, fmt.Errorf("list today's plan: %w", err)
	}
	return models.EntriesFromDocuments(docs), nil
}

// AddToToday puts an item on today's plan. Duplicate names within today's
// bucket are rejected; yesterday's leftover rows do not count, they simply
// fall out of every today-scoped query.
func (r *Reconciler) AddToToday(ctx context.Context, userID string, d Domain, item models.Entry) (string, error) {
	if userID == "" {
		return "", ErrNotAuthenticated
	}
	today := r.Today()
	existing, err := r.store.Query(ctx, d.PlanCollection(userID), []store.Filter{
		{Field: "dateEpochDay", Op: store.OpEqual, Value: today},
		{Field: "name", Op: store.OpEqual, Value: item.Name},
	}, nil, 1)
	if err != nil {
		return "", fmt.Errorf("check plan for %q: %w", item.Name, err)
	}
	if len(existing) > 0 {
		return "", ErrAlreadyPlanned
	}

	item.DateEpochDay = today
	id, err := r.store.Add(ctx, d.PlanCollection(userID), item.DocumentFields())
	if err != nil {
		return "", fmt.Errorf("add %q to today's plan: %w", item.Name, err)
	}
	r.logger.Debug("plan entry added",
		zap.String("user_id", userID),
		zap.String("domain", string(d)),
		zap.String("name", item.Name))
	return id, nil
}

// Complete logs a plan entry as done and removes it from today's plan. The
// logged entry snapshots its energy and macro values at completion time:
// workouts store the kcal computed from MET, duration and the user's weight,
// meals copy their macros verbatim. At most one matching plan row is
// removed; completing an unplanned item just appends the log.
func (r *Reconciler) Complete(ctx context.Context, userID string, d Domain, item models.Entry, weightKg *float64) (models.Entry, error) {
	if userID == "" {
		return models.Entry{}, ErrNotAuthenticated
	}
	today := r.Today()

	planned, err := r.store.Query(ctx, d.PlanCollection(userID), []store.Filter{
		{Field: "dateEpochDay", Op: store.OpEqual, Value: today},
		{Field: "name", Op: store.OpEqual, Value: item.Name},
	}, nil, 1)
	if err != nil {
		return models.Entry{}, fmt.Errorf("find plan entry %q: %w", item.Name, err)
	}

	removed := false
	if len(planned) > 0 {
		// Prefer the stored plan row over the caller's copy: it carries the
		// values the user actually added.
		item = models.EntryFromDocument(planned[0])
		if err := r.store.Delete(ctx, d.PlanCollection(userID), planned[0].ID); err != nil {
			return models.Entry{}, fmt.Errorf("remove plan entry %q: %w", item.Name, err)
		}
		removed = true
	}

	logged := r.buildLogEntry(d, item, today, weightKg)
	id, err := r.store.Add(ctx, d.LogCollection(userID), logged.DocumentFields())
	if err != nil {
		if removed {
			r.logger.Warn("log append failed after plan removal",
				zap.String("user_id", userID),
				zap.String("domain", string(d)),
				zap.String("name", item.Name),
				zap.Error(err))
			return models.Entry{}, fmt.Errorf("%w: append %q: %v", ErrPartialApply, item.Name, err)
		}
		return models.Entry{}, fmt.Errorf("append log entry %q: %w", item.Name, err)
	}
	logged.ID = id
	return logged, nil
}

// buildLogEntry shapes the immutable log record. Workout rows with missing
// MET or duration get the display defaults before the kcal snapshot.
func (r *Reconciler) buildLogEntry(d Domain, item models.Entry, today int, weightKg *float64) models.Entry {
	logged := models.Entry{Name: item.Name, DateEpochDay: today}
	if d == DomainWorkouts {
		met := DefaultMET
		if item.MET != nil {
			met = *item.MET
		}
		dur := DefaultDurationMin
		if item.DurationMin != nil {
			dur = *item.DurationMin
		}
		kcal := ExerciseKcal(met, dur, weightKg)
		logged.MET = &met
		logged.DurationMin = &dur
		logged.Kcal = &kcal
		return logged
	}
	zero := 0
	logged.Kcal, logged.Protein, logged.Carbs, logged.Fat = &zero, &zero, &zero, &zero
	if item.Kcal != nil {
		logged.Kcal = item.Kcal
	}
	if item.Protein != nil {
		logged.Protein = item.Protein
	}
	if item.Carbs != nil {
		logged.Carbs = item.Carbs
	}
	if item.Fat != nil {
		logged.Fat = item.Fat
	}
	return logged
}

// Remove drops a named entry from today's plan. Removing an absent entry is
// a no-op.
func (r *Reconciler) Remove(ctx context.Context, userID string, d Domain, name string) error {
	if userID == "" {
		return ErrNotAuthenticated
	}
	planned, err := r.store.Query(ctx, d.PlanCollection(userID), []store.Filter{
		{Field: "dateEpochDay", Op: store.OpEqual, Value: r.Today()},
		{Field: "name", Op: store.OpEqual, Value: name},
	}, nil, 1)
	if err != nil {
		return fmt.Errorf("find plan entry %q: %w", name, err)
	}
	if len(planned) == 0 {
		return nil
	}
	if err := r.store.Delete(ctx, d.PlanCollection(userID), planned[0].ID); err != nil {
		return fmt.Errorf("remove plan entry %q: %w", name, err)
	}
	return nil
}
