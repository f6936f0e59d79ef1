package ledger

import (
	"testing"
	"time"
)

func TestRound1(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{22.857, 22.9},
		{22.84, 22.8},
		{22.85, 22.9},
		{-1.25, -1.3},
		{0, 0},
	}
	for _, c := range cases {
		if got := Round1(c.in); got != c.want {
			t.Errorf("Round1(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestBMI(t *testing.T) {
	if got := Round1(BMI(70, 175)); got != 22.9 {
		t.Errorf("BMI(70, 175) rounded = %v, want 22.9", got)
	}
	if got := Round1(BMI(80, 180)); got != 24.7 {
		t.Errorf("BMI(80, 180) rounded = %v, want 24.7", got)
	}
}

func TestCalorieTarget(t *testing.T) {
	cases := []struct {
		name   string
		weight float64
		goal   string
		want   float64
	}{
		{"lose", 70, "Lose", 1756.0},
		{"lose lowercase", 70, "lose", 1756.0},
		{"gain", 70, "Gain", 2456.0},
		{"maintain", 70, "Maintain", 2156.0},
		{"unknown goal treated as maintain", 70, "bulk", 2156.0},
		{"empty goal", 70, "", 2156.0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := CalorieTarget(c.weight, c.goal); got != c.want {
				t.Errorf("CalorieTarget(%v, %q) = %v, want %v", c.weight, c.goal, got, c.want)
			}
		})
	}
}

func TestExerciseKcal(t *testing.T) {
	w := 70.0
	cases := []struct {
		name   string
		met    float64
		dur    int
		weight *float64
		want   int
	}{
		// 6 * 3.5 * 70 / 200 * 30 evaluates to just under 220.5 in float64.
		{"push day", 6.0, 30, &w, 220},
		{"default weight when unknown", 6.0, 30, nil, 220},
		{"zero duration", 6.0, 0, &w, 0},
		{"floored at zero", -2.0, 30, &w, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ExerciseKcal(c.met, c.dur, c.weight); got != c.want {
				t.Errorf("ExerciseKcal(%v, %v) = %v, want %v", c.met, c.dur, got, c.want)
			}
		})
	}
}

func TestEpochDay(t *testing.T) {
	// 2024-03-01T00:00:00Z and 2024-03-01T23:59:59Z share a bucket.
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 1, 23, 59, 59, 0, time.UTC)
	if EpochDay(start) != EpochDay(end) {
		t.Errorf("same UTC day produced different buckets: %d vs %d", EpochDay(start), EpochDay(end))
	}
	if got := EpochDay(start.Add(24 * time.Hour)); got != EpochDay(start)+1 {
		t.Errorf("next day bucket = %d, want %d", got, EpochDay(start)+1)
	}
	// Timezone must not shift the bucket.
	inTZ := start.In(time.FixedZone("UTC+10", 10*3600))
	if EpochDay(inTZ) != EpochDay(start) {
		t.Errorf("timezone shifted the bucket")
	}
}
