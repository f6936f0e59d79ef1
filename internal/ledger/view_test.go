package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/hellofit/fitledger/internal/store"
)

// awaitSnapshot reads updates until cond holds or the deadline passes.
func awaitSnapshot(t *testing.T, v *View, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-v.Updates():
			if !ok {
				t.Fatalf("updates channel closed while waiting")
			}
			if cond(snap) {
				return snap
			}
		case <-deadline:
			t.Fatalf("timed out waiting for snapshot; last = %+v", v.Snapshot())
		}
	}
}

func TestViewRecomputesOnChanges(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	mem.SetClock(fixedClock())
	today := EpochDay(fixedClock()())

	if err := mem.Set(ctx, UsersCollection, "u1", map[string]interface{}{
		"currentWeightKg": 70.0, "calorieTarget": 2156.0,
	}, false); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	// One log from three days ago: counts for the week, not for today.
	if _, err := mem.Add(ctx, DomainMeals.LogCollection("u1"), map[string]interface{}{
		"name": "Oats & Banana", "kcal": 350, "protein": 12, "dateEpochDay": today - 3,
	}); err != nil {
		t.Fatalf("seed log: %v", err)
	}

	v, err := NewView(ctx, mem, "u1", DomainMeals, today)
	if err != nil {
		t.Fatalf("open view: %v", err)
	}
	defer v.Close()

	snap := awaitSnapshot(t, v, func(s Snapshot) bool {
		return !s.Loading && s.WeekTotals.Kcal == 350 && s.CalorieTarget != nil
	})
	if snap.TodayTotals.Kcal != 0 {
		t.Fatalf("today totals = %+v, want zero", snap.TodayTotals)
	}
	if snap.CalorieTarget == nil || *snap.CalorieTarget != 2156 {
		t.Fatalf("calorie target = %v, want 2156", snap.CalorieTarget)
	}
	if snap.WeightKg == nil || *snap.WeightKg != 70.0 {
		t.Fatalf("weight = %v, want 70", snap.WeightKg)
	}

	// A new log for today lands in both windows.
	if _, err := mem.Add(ctx, DomainMeals.LogCollection("u1"), map[string]interface{}{
		"name": "Paneer Wrap", "kcal": 480, "protein": 24, "carbs": 45, "fat": 22, "dateEpochDay": today,
	}); err != nil {
		t.Fatalf("add log: %v", err)
	}
	snap = awaitSnapshot(t, v, func(s Snapshot) bool {
		return s.TodayTotals.Kcal == 480
	})
	if snap.WeekTotals.Kcal != 830 {
		t.Fatalf("week kcal = %d, want 830", snap.WeekTotals.Kcal)
	}
	if snap.WeekTotals.Protein != 36 {
		t.Fatalf("week protein = %d, want 36", snap.WeekTotals.Protein)
	}

	// A plan entry shows up in Planned with its macro preview.
	if _, err := mem.Add(ctx, DomainMeals.PlanCollection("u1"), map[string]interface{}{
		"name": "Greek Yogurt & Nuts", "kcal": 280, "protein": 18, "carbs": 15, "fat": 16, "dateEpochDay": today,
	}); err != nil {
		t.Fatalf("add plan: %v", err)
	}
	snap = awaitSnapshot(t, v, func(s Snapshot) bool {
		return len(s.Planned) == 1
	})
	if snap.PlannedTotals.Kcal != 280 {
		t.Fatalf("planned kcal = %d, want 280", snap.PlannedTotals.Kcal)
	}
}

func TestViewWorkoutTotalsUseWeight(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	mem.SetClock(fixedClock())
	today := EpochDay(fixedClock()())

	if err := mem.Set(ctx, UsersCollection, "u1", map[string]interface{}{
		"currentWeightKg": 80.0,
	}, false); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	// Plan row missing met/duration: preview falls back to the formula with
	// the subscribed weight.
	if _, err := mem.Add(ctx, DomainWorkouts.PlanCollection("u1"), map[string]interface{}{
		"name": "Push Day", "met": 6.0, "durationMin": 30, "dateEpochDay": today,
	}); err != nil {
		t.Fatalf("seed plan: %v", err)
	}

	v, err := NewView(ctx, mem, "u1", DomainWorkouts, today)
	if err != nil {
		t.Fatalf("open view: %v", err)
	}
	defer v.Close()

	w := 80.0
	want := ExerciseKcal(6.0, 30, &w)
	snap := awaitSnapshot(t, v, func(s Snapshot) bool {
		return !s.Loading && s.WeightKg != nil && len(s.Planned) == 1
	})
	if snap.PlannedTotals.Kcal != want {
		t.Fatalf("planned kcal = %d, want %d", snap.PlannedTotals.Kcal, want)
	}
	if snap.PlannedTotals.Protein != 0 || snap.PlannedTotals.Fat != 0 {
		t.Fatalf("workout totals carry macros: %+v", snap.PlannedTotals)
	}
}

func TestViewRequiresUser(t *testing.T) {
	if _, err := NewView(context.Background(), store.NewMemory(), "", DomainMeals, 0); err != ErrNotAuthenticated {
		t.Fatalf("got %v, want ErrNotAuthenticated", err)
	}
}

func TestViewClose(t *testing.T) {
	mem := store.NewMemory()
	v, err := NewView(context.Background(), mem, "u1", DomainMeals, EpochDay(time.Now()))
	if err != nil {
		t.Fatalf("open view: %v", err)
	}
	v.Close()
	if _, ok := <-v.Updates(); ok {
		// Drain until closed; at most one buffered snapshot can remain.
		if _, ok := <-v.Updates(); ok {
			t.Fatalf("updates channel still open after Close")
		}
	}
}

func TestLoadSnapshotMatchesView(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	mem.SetClock(fixedClock())
	today := EpochDay(fixedClock()())

	if err := mem.Set(ctx, UsersCollection, "u1", map[string]interface{}{
		"currentWeightKg": 70.0, "calorieTarget": 2156.0,
	}, false); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	if _, err := mem.Add(ctx, DomainMeals.LogCollection("u1"), map[string]interface{}{
		"name": "Oats & Banana", "kcal": 350, "protein": 12, "dateEpochDay": today,
	}); err != nil {
		t.Fatalf("seed log: %v", err)
	}

	snap, err := LoadSnapshot(ctx, mem, "u1", DomainMeals, today)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.TodayTotals.Kcal != 350 || snap.WeekTotals.Kcal != 350 {
		t.Fatalf("totals = today %+v week %+v, want 350 in both", snap.TodayTotals, snap.WeekTotals)
	}

	v, err := NewView(ctx, mem, "u1", DomainMeals, today)
	if err != nil {
		t.Fatalf("open view: %v", err)
	}
	defer v.Close()
	live := awaitSnapshot(t, v, func(s Snapshot) bool {
		return !s.Loading && s.TodayTotals.Kcal == 350
	})
	if live.WeekTotals != snap.WeekTotals || live.TodayTotals != snap.TodayTotals {
		t.Fatalf("live %+v differs from one-shot %+v", live, snap)
	}
}
