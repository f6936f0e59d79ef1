package ledger

import (
	"github.com/hellofit/fitledger/internal/models"
)

// MacroTotals is the summed output of an aggregation. Workout aggregations
// only populate Kcal.
type MacroTotals struct {
	Kcal    int `json:"kcal"`
	Protein int `json:"protein"`
	Carbs   int `json:"carbs"`
	Fat     int `json:"fat"`
}

// EffectiveKcal resolves one entry's energy value: the stored kcal verbatim
// when present, else recomputed from MET and duration, else 0. Logged
// entries always carry an explicit kcal, so formula drift never rewrites
// history.
func EffectiveKcal(e models.Entry, weightKg *float64) int {
	if e.Kcal != nil {
		return *e.Kcal
	}
	if e.MET != nil && e.DurationMin != nil {
		return ExerciseKcal(*e.MET, *e.DurationMin, weightKg)
	}
	return 0
}

// SumMacros reduces entries into per-channel totals. Total and
// order-independent: a malformed entry contributes 0 to every channel it
// cannot resolve.
func SumMacros(entries []models.Entry, weightKg *float64) MacroTotals {
	var t MacroTotals
	for _, e := range entries {
		t.Kcal += EffectiveKcal(e, weightKg)
		if e.Protein != nil {
			t.Protein += *e.Protein
		}
		if e.Carbs != nil {
			t.Carbs += *e.Carbs
		}
		if e.Fat != nil {
			t.Fat += *e.Fat
		}
	}
	return t
}

// SumWorkoutKcal reduces workout entries into total energy burned.
func SumWorkoutKcal(entries []models.Entry, weightKg *float64) int {
	total := 0
	for _, e := range entries {
		total += EffectiveKcal(e, weightKg)
	}
	return total
}
