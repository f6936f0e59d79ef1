package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hellofit/fitledger/internal/ledger"
	"github.com/hellofit/fitledger/internal/models"
	"github.com/hellofit/fitledger/internal/store"
)

func newTestService() (*Service, *store.Memory, func() time.Time) {
	at := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return at }
	mem := store.NewMemory()
	mem.SetClock(clock)
	s := NewService(mem)
	s.SetClock(clock)
	return s, mem, clock
}

func TestSaveWeighIn(t *testing.T) {
	ctx := context.Background()
	s, mem, clock := newTestService()

	if err := mem.Set(ctx, ledger.UsersCollection, "u1", map[string]interface{}{
		"heightCm": 175, "goal": "Lose",
	}, false); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	point, err := s.SaveWeighIn(ctx, "u1", 70)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if point.BMI == nil || *point.BMI != 22.9 {
		t.Errorf("bmi = %v, want 22.9", point.BMI)
	}
	if point.CalorieTarget == nil || *point.CalorieTarget != 1756.0 {
		t.Errorf("target = %v, want 1756.0", point.CalorieTarget)
	}
	if point.DateEpochDay != ledger.EpochDay(clock()) {
		t.Errorf("day bucket = %d, want %d", point.DateEpochDay, ledger.EpochDay(clock()))
	}

	// Log appended.
	logs, err := mem.Query(ctx, ledger.ProgressCollection("u1"), nil, nil, 0)
	if err != nil {
		t.Fatalf("query logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("progress log has %d entries, want 1", len(logs))
	}

	// Cache refreshed, existing profile fields kept.
	doc, err := mem.Get(ctx, ledger.UsersCollection, "u1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	profile := models.ProfileFromDocument(doc)
	if profile.CurrentWeightKg == nil || *profile.CurrentWeightKg != 70 {
		t.Errorf("cached weight = %v, want 70", profile.CurrentWeightKg)
	}
	if profile.LastBMI == nil || *profile.LastBMI != 22.9 {
		t.Errorf("cached bmi = %v, want 22.9", profile.LastBMI)
	}
	if profile.HeightCm == nil || *profile.HeightCm != 175 {
		t.Errorf("merge clobbered heightCm: %v", profile.HeightCm)
	}
}

func TestSaveWeighInWithoutHeight(t *testing.T) {
	ctx := context.Background()
	s, mem, _ := newTestService()

	point, err := s.SaveWeighIn(ctx, "u1", 70)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if point.BMI != nil {
		t.Errorf("bmi = %v, want absent without height", *point.BMI)
	}
	// Default goal applies: maintain, no adjustment.
	if point.CalorieTarget == nil || *point.CalorieTarget != 2156.0 {
		t.Errorf("target = %v, want 2156.0", point.CalorieTarget)
	}
	doc, _ := mem.Get(ctx, ledger.UsersCollection, "u1")
	if doc == nil {
		t.Fatalf("cache write did not create the profile document")
	}
	if _, ok := doc.Fields["lastBmi"]; ok {
		t.Errorf("lastBmi cached without height")
	}
}

func TestSaveWeighInRejectsBadInput(t *testing.T) {
	s, _, _ := newTestService()
	if _, err := s.SaveWeighIn(context.Background(), "", 70); !errors.Is(err, ledger.ErrNotAuthenticated) {
		t.Errorf("missing user: got %v", err)
	}
	if _, err := s.SaveWeighIn(context.Background(), "u1", 0); err == nil {
		t.Errorf("zero weight accepted")
	}
}

// failingSets swallows profile writes to prove cache failure is non-fatal.
type failingSets struct {
	store.Store
}

func (f *failingSets) Set(ctx context.Context, collection, id string, fields map[string]interface{}, merge bool) error {
	return errors.New("backend unavailable")
}

func TestSaveWeighInToleratesCacheFailure(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	mem := store.NewMemory()
	mem.SetClock(func() time.Time { return at })
	s := NewService(&failingSets{Store: mem})
	s.SetClock(func() time.Time { return at })

	if _, err := s.SaveWeighIn(ctx, "u1", 70); err != nil {
		t.Fatalf("save should survive a cache write failure: %v", err)
	}
	logs, _ := mem.Query(ctx, ledger.ProgressCollection("u1"), nil, nil, 0)
	if len(logs) != 1 {
		t.Fatalf("log has %d entries, want 1", len(logs))
	}
}

func TestHistoryOrderAndSkips(t *testing.T) {
	ctx := context.Background()
	s, mem, _ := newTestService()

	for _, ts := range []int64{3000, 1000, 2000} {
		if _, err := mem.Add(ctx, ledger.ProgressCollection("u1"), map[string]interface{}{
			"timestamp": ts, "weightKg": 70.0,
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	// No timestamp: dropped.
	if _, err := mem.Add(ctx, ledger.ProgressCollection("u1"), map[string]interface{}{
		"weightKg": 71.0,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	points, err := s.History(ctx, "u1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("history has %d points, want 3", len(points))
	}
	for i := 1; i < len(points); i++ {
		if points[i].TimestampMs < points[i-1].TimestampMs {
			t.Fatalf("history not ascending: %v", points)
		}
	}
}

func TestStreak(t *testing.T) {
	ctx := context.Background()
	s, mem, clock := newTestService()
	today := ledger.EpochDay(clock())

	for _, d := range []int{today, today - 1, today - 2, today - 5} {
		if _, err := mem.Add(ctx, ledger.ProgressCollection("u1"), map[string]interface{}{
			"timestamp": int64(d) * 86400000, "dateEpochDay": d,
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	todayDone, streak, err := s.Streak(ctx, "u1")
	if err != nil {
		t.Fatalf("streak: %v", err)
	}
	if !todayDone {
		t.Errorf("todayDone = false, want true")
	}
	if streak != 3 {
		t.Errorf("streak = %d, want 3", streak)
	}
}

func TestResolveWeightChain(t *testing.T) {
	ctx := context.Background()
	s, mem, _ := newTestService()

	t.Run("nothing known", func(t *testing.T) {
		w, err := s.ResolveWeight(ctx, "u1")
		if err != nil || w != nil {
			t.Fatalf("got %v, %v; want nil, nil", w, err)
		}
	})

	t.Run("legacy field", func(t *testing.T) {
		if err := mem.Set(ctx, ledger.UsersCollection, "u1", map[string]interface{}{"weightKg": 68.0}, true); err != nil {
			t.Fatalf("seed: %v", err)
		}
		w, err := s.ResolveWeight(ctx, "u1")
		if err != nil || w == nil || *w != 68.0 {
			t.Fatalf("got %v, %v; want 68", w, err)
		}
	})

	t.Run("latest log beats legacy", func(t *testing.T) {
		if _, err := mem.Add(ctx, ledger.ProgressCollection("u1"), map[string]interface{}{
			"timestamp": int64(1000), "weightKg": 69.5,
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
		w, err := s.ResolveWeight(ctx, "u1")
		if err != nil || w == nil || *w != 69.5 {
			t.Fatalf("got %v, %v; want 69.5", w, err)
		}
	})

	t.Run("cache beats log", func(t *testing.T) {
		if err := mem.Set(ctx, ledger.UsersCollection, "u1", map[string]interface{}{"currentWeightKg": 70.2}, true); err != nil {
			t.Fatalf("seed: %v", err)
		}
		w, err := s.ResolveWeight(ctx, "u1")
		if err != nil || w == nil || *w != 70.2 {
			t.Fatalf("got %v, %v; want 70.2", w, err)
		}
	})
}

func TestUpdatePreferences(t *testing.T) {
	ctx := context.Background()
	s, mem, _ := newTestService()

	if err := mem.Set(ctx, ledger.UsersCollection, "u1", map[string]interface{}{
		"currentWeightKg": 70.0,
	}, false); err != nil {
		t.Fatalf("seed: %v", err)
	}

	height := 180
	goal := "Gain"
	if err := s.UpdatePreferences(ctx, "u1", Preferences{HeightCm: &height, Goal: &goal}); err != nil {
		t.Fatalf("update: %v", err)
	}

	profile, err := s.Profile(ctx, "u1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.HeightCm == nil || *profile.HeightCm != 180 {
		t.Errorf("heightCm = %v, want 180", profile.HeightCm)
	}
	if profile.Goal != "Gain" {
		t.Errorf("goal = %q, want Gain", profile.Goal)
	}
	if profile.CurrentWeightKg == nil || *profile.CurrentWeightKg != 70.0 {
		t.Errorf("merge clobbered the cache: %v", profile.CurrentWeightKg)
	}
}
