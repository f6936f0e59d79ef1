package ledger

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hellofit/fitledger/internal/models"
	"github.com/hellofit/fitledger/internal/store"
	"github.com/hellofit/fitledger/pkg/logging"
)

// Snapshot is the derived read model for one domain's dashboard: today's
// plan, today's totals and the trailing seven-day totals, plus the profile
// figures the screen renders alongside them. It is recomputed wholesale on
// every upstream change, never patched.
type Snapshot struct {
	Domain  Domain `json:"domain"`
	Today   int    `json:"today"`
	Loading bool   `json:"loading"`

	WeightKg      *float64 `json:"weightKg,omitempty"`
	CalorieTarget *int     `json:"calorieTarget,omitempty"`

	Planned       []models.Entry `json:"planned"`
	PlannedTotals MacroTotals    `json:"plannedTotals"`
	TodayTotals   MacroTotals    `json:"todayTotals"`
	WeekTotals    MacroTotals    `json:"weekTotals"`
}

// View is a live ledger dashboard: it holds one profile subscription, one
// plan subscription and one log subscription, and republishes a fresh
// Snapshot whenever any of them fires. Only the latest unconsumed snapshot
// is retained.
type View struct {
	domain Domain
	today  int

	cancel  func()
	updates chan Snapshot
	done    chan struct{}

	mu   sync.Mutex
	snap Snapshot
}

// NewView opens the three subscriptions and starts the recompute loop.
// today is the caller's day bucket; the view is pinned to it for its
// lifetime (a view spanning midnight should be reopened).
func NewView(ctx context.Context, st store.Store, userID string, d Domain, today int) (*View, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	viewCtx, cancel := context.WithCancel(ctx)

	profSub, err := st.SubscribeDoc(viewCtx, UsersCollection, userID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe profile: %w", err)
	}
	planSub, err := st.Subscribe(viewCtx, d.PlanCollection(userID),
		[]store.Filter{{Field: "dateEpochDay", Op: store.OpEqual, Value: today}},
		&store.Order{Field: store.CreatedAtField})
	if err != nil {
		profSub.Close()
		cancel()
		return nil, fmt.Errorf("subscribe plan: %w", err)
	}
	// One log feed covers both windows: today's totals are derived from the
	// week window by day bucket.
	logSub, err := st.Subscribe(viewCtx, d.LogCollection(userID),
		[]store.Filter{{Field: "dateEpochDay", Op: store.OpGTE, Value: today - 6}},
		&store.Order{Field: "dateEpochDay", Desc: true})
	if err != nil {
		planSub.Close()
		profSub.Close()
		cancel()
		return nil, fmt.Errorf("subscribe logs: %w", err)
	}

	v := &View{
		domain:  d,
		today:   today,
		cancel:  cancel,
		updates: make(chan Snapshot, 1),
		done:    make(chan struct{}),
		snap:    Snapshot{Domain: d, Today: today, Loading: true, Planned: []models.Entry{}},
	}
	go v.run(viewCtx, userID, profSub, planSub, logSub)
	return v, nil
}

// Updates returns the snapshot channel. Closed after Close.
func (v *View) Updates() <-chan Snapshot { return v.updates }

// Snapshot returns the most recently computed snapshot.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snap
}

// Close tears down all three subscriptions and closes Updates. Safe to call
// more than once.
func (v *View) Close() {
	v.cancel()
	<-v.done
}

func (v *View) run(ctx context.Context, userID string, profSub *store.DocSubscription, planSub *store.Subscription, logSub *store.Subscription) {
	defer close(v.done)
	defer close(v.updates)
	defer profSub.Close()
	defer planSub.Close()
	defer logSub.Close()

	logger := logging.WithComponent("ledger.view").With(
		zap.String("user_id", userID),
		zap.String("domain", string(v.domain)))
	logger.Debug("view opened", zap.Int("today", v.today))

	var (
		profileDoc *store.Document
		planDocs   []*store.Document
		logDocs    []*store.Document
		planReady  bool
	)
	profCh := profSub.Updates()
	planCh := planSub.Updates()
	logCh := logSub.Updates()

	for {
		select {
		case <-ctx.Done():
			return
		case doc, ok := <-profCh:
			if !ok {
				profCh = nil
				continue
			}
			profileDoc = doc
		case docs, ok := <-planCh:
			if !ok {
				planCh = nil
				continue
			}
			planDocs = docs
			planReady = true
		case docs, ok := <-logCh:
			if !ok {
				logCh = nil
				continue
			}
			logDocs = docs
		}

		snap := buildSnapshot(v.domain, v.today, profileDoc, planDocs, logDocs)
		snap.Loading = !planReady

		v.mu.Lock()
		v.snap = snap
		v.mu.Unlock()

		// Latest wins: drop the stale unconsumed snapshot.
		select {
		case v.updates <- snap:
		default:
			select {
			case <-v.updates:
			default:
			}
			select {
			case v.updates <- snap:
			default:
			}
		}
	}
}

// buildSnapshot derives the read model from raw documents. Shared by the
// live view and the one-shot loader so both render identically.
func buildSnapshot(d Domain, today int, profileDoc *store.Document, planDocs, logDocs []*store.Document) Snapshot {
	profile := models.ProfileFromDocument(profileDoc)
	weight := profile.BestWeight()

	snap := Snapshot{Domain: d, Today: today, WeightKg: weight}
	if profile.CalorieTarget != nil {
		target := int(*profile.CalorieTarget)
		snap.CalorieTarget = &target
	}

	snap.Planned = models.EntriesFromDocuments(planDocs)
	week := models.EntriesFromDocuments(logDocs)
	var todayEntries []models.Entry
	for _, e := range week {
		if e.DateEpochDay == today {
			todayEntries = append(todayEntries, e)
		}
	}

	if d == DomainWorkouts {
		snap.PlannedTotals = MacroTotals{Kcal: SumWorkoutKcal(snap.Planned, weight)}
		snap.TodayTotals = MacroTotals{Kcal: SumWorkoutKcal(todayEntries, weight)}
		snap.WeekTotals = MacroTotals{Kcal: SumWorkoutKcal(week, weight)}
	} else {
		snap.PlannedTotals = SumMacros(snap.Planned, weight)
		snap.TodayTotals = SumMacros(todayEntries, weight)
		snap.WeekTotals = SumMacros(week, weight)
	}
	return snap
}

// LoadSnapshot builds the same read model from one-shot queries, for
// request/response callers that do not hold a subscription open.
func LoadSnapshot(ctx context.Context, st store.Store, userID string, d Domain, today int) (Snapshot, error) {
	if userID == "" {
		return Snapshot{}, ErrNotAuthenticated
	}
	profileDoc, err := st.Get(ctx, UsersCollection, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load profile: %w", err)
	}
	planDocs, err := st.Query(ctx, d.PlanCollection(userID),
		[]store.Filter{{Field: "dateEpochDay", Op: store.OpEqual, Value: today}},
		&store.Order{Field: store.CreatedAtField}, 0)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load plan: %w", err)
	}
	logDocs, err := st.Query(ctx, d.LogCollection(userID),
		[]store.Filter{{Field: "dateEpochDay", Op: store.OpGTE, Value: today - 6}},
		&store.Order{Field: "dateEpochDay", Desc: true}, 0)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load logs: %w", err)
	}
	return buildSnapshot(d, today, profileDoc, planDocs, logDocs), nil
}
