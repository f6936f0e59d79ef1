package ledger

import (
	"testing"

	"github.com/hellofit/fitledger/internal/models"
)

func TestEffectiveKcal(t *testing.T) {
	w := 70.0
	met := 6.0
	dur := 30
	kcal := 123

	t.Run("explicit kcal wins over formula", func(t *testing.T) {
		e := models.Entry{Kcal: &kcal, MET: &met, DurationMin: &dur}
		if got := EffectiveKcal(e, &w); got != 123 {
			t.Errorf("got %d, want 123", got)
		}
	})
	t.Run("formula fallback", func(t *testing.T) {
		e := models.Entry{MET: &met, DurationMin: &dur}
		if got := EffectiveKcal(e, &w); got != ExerciseKcal(met, dur, &w) {
			t.Errorf("got %d, want %d", got, ExerciseKcal(met, dur, &w))
		}
	})
	t.Run("nothing resolvable yields zero", func(t *testing.T) {
		if got := EffectiveKcal(models.Entry{Name: "mystery"}, &w); got != 0 {
			t.Errorf("got %d, want 0", got)
		}
	})
}

func TestSumMacros(t *testing.T) {
	t.Run("empty list is all zeros", func(t *testing.T) {
		if got := SumMacros(nil, nil); got != (MacroTotals{}) {
			t.Errorf("got %+v, want zero totals", got)
		}
	})

	t.Run("channels sum independently", func(t *testing.T) {
		k1, p1 := 350, 12
		k2, f2 := 520, 12
		entries := []models.Entry{
			{Kcal: &k1, Protein: &p1},
			{Kcal: &k2, Fat: &f2},
			{Name: "malformed"},
		}
		got := SumMacros(entries, nil)
		want := MacroTotals{Kcal: 870, Protein: 12, Fat: 12}
		if got != want {
			t.Errorf("got %+v, want %+v", got, want)
		}
	})
}

func TestSumWorkoutKcal(t *testing.T) {
	w := 70.0
	met, dur := 6.0, 30
	explicit := 100
	entries := []models.Entry{
		{Kcal: &explicit},
		{MET: &met, DurationMin: &dur},
	}
	want := 100 + ExerciseKcal(met, dur, &w)
	if got := SumWorkoutKcal(entries, &w); got != want {
		t.Errorf("got %d, want %d", got, want)
	}
	if got := SumWorkoutKcal(nil, &w); got != 0 {
		t.Errorf("empty list: got %d, want 0", got)
	}
}
