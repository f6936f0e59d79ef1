package models

import (
	"github.com/hellofit/fitledger/internal/store"
)

// Default preference values for missing profile fields.
const (
	DefaultGoal  = "Maintain"
	DefaultUnits = "Metric"
)

// Profile is the per-user document: profile basics, preferences and the
// advisory "latest known" snapshot written by the progress flow. Every
// snapshot field is optional and may be stale; readers fall back (see
// BestWeight and the progress service's resolution chain).
type Profile struct {
	Age      *int   `json:"age,omitempty"`
	HeightCm *int   `json:"heightCm,omitempty"`
	Goal     string `json:"goal"`
	Units    string `json:"units"`

	NotificationsEnabled bool `json:"notificationsEnabled"`

	// WeightKg is the legacy profile field, last in the fallback chain.
	WeightKg *float64 `json:"weightKg,omitempty"`

	// Advisory cache written by the progress flow.
	CurrentWeightKg *float64 `json:"currentWeightKg,omitempty"`
	LastBMI         *float64 `json:"lastBmi,omitempty"`
	CalorieTarget   *float64 `json:"calorieTarget,omitempty"`
	WeightUpdatedAt *int64   `json:"weightUpdatedAt,omitempty"`
}

// ProfileFromDocument decodes the user document. A nil document yields a
// usable zero profile with default preferences.
func ProfileFromDocument(doc *store.Document) Profile {
	p := Profile{Goal: DefaultGoal, Units: DefaultUnits}
	if doc == nil {
		return p
	}
	p.Age = intField(doc.Fields, "age")
	p.HeightCm = intField(doc.Fields, "heightCm")
	if s, ok := AsString(doc.Fields["goal"]); ok && s != "" {
		p.Goal = s
	}
	if s, ok := AsString(doc.Fields["units"]); ok && s != "" {
		p.Units = s
	}
	if b, ok := AsBool(doc.Fields["notificationsEnabled"]); ok {
		p.NotificationsEnabled = b
	}
	p.WeightKg = numberField(doc.Fields, "weightKg")
	p.CurrentWeightKg = numberField(doc.Fields, "currentWeightKg")
	p.LastBMI = numberField(doc.Fields, "lastBmi")
	p.CalorieTarget = numberField(doc.Fields, "calorieTarget")
	if p.CalorieTarget == nil {
		// Older clients cached under a different key.
		p.CalorieTarget = numberField(doc.Fields, "lastCalorieTarget")
	}
	p.WeightUpdatedAt = int64Field(doc.Fields, "weightUpdatedAt")
	return p
}

// BestWeight prefers the cached current weight over the legacy profile
// field. The full chain, including the latest raw progress log, lives in
// the progress service where that log is reachable.
func (p Profile) BestWeight() *float64 {
	if p.CurrentWeightKg != nil {
		return p.CurrentWeightKg
	}
	return p.WeightKg
}
