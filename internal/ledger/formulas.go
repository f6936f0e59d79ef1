package ledger

import (
	"math"
	"strings"
)

// Formula constants. These are deliberately simplified estimates carried
// over from the mobile app, not medical formulas; do not tune them.
const (
	// DefaultWeightKg substitutes for an unknown body weight so exercise
	// logging is never blocked by missing profile data.
	DefaultWeightKg = 70.0

	// Display defaults for workout plan rows with missing fields.
	DefaultMET         = 6.0
	DefaultDurationMin = 30
)

// Round1 rounds to one decimal place, half away from zero. Used identically
// for BMI display and the calorie target.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// BMI computes weight/height². Callers must check height is known first;
// BMI is undefined without it.
func BMI(weightKg float64, heightCm int) float64 {
	m := float64(heightCm) / 100.0
	return weightKg / (m * m)
}

// CalorieTarget estimates a daily calorie target from weight and goal:
// a basal estimate of weight·22·1.4, minus 400 for "Lose", plus 300 for
// "Gain", unchanged for "Maintain" or anything unrecognized. Rounded to one
// decimal.
func CalorieTarget(weightKg float64, goal string) float64 {
	base := weightKg * 22.0 * 1.4
	var adj float64
	switch strings.ToLower(goal) {
	case "lose":
		adj = -400.0
	case "gain":
		adj = 300.0
	}
	return Round1(base + adj)
}

// ExerciseKcal is the MET-based energy expenditure:
// kcal = MET × 3.5 × weight(kg) / 200 × minutes, rounded to the nearest
// integer and floored at 0. A nil weight falls back to DefaultWeightKg.
func ExerciseKcal(met float64, durationMin int, weightKg *float64) int {
	w := DefaultWeightKg
	if weightKg != nil {
		w = *weightKg
	}
	kcal := int(math.Round(met * 3.5 * w / 200.0 * float64(durationMin)))
	if kcal < 0 {
		return 0
	}
	return kcal
}
