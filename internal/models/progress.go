package models

import (
	"github.com/hellofit/fitledger/internal/store"
)

// ProgressPoint is one weigh-in. Either metric may be absent. TimestampMs
// orders points for charting; DateEpochDay is the authoritative bucket for
// streaks.
type ProgressPoint struct {
	TimestampMs   int64    `json:"timestamp"`
	WeightKg      *float64 `json:"weightKg,omitempty"`
	BMI           *float64 `json:"bmi,omitempty"`
	CalorieTarget *float64 `json:"calorieTarget,omitempty"`
	DateEpochDay  int      `json:"dateEpochDay"`
}

// ProgressPointFromDocument decodes one weigh-in. Records without a
// timestamp are dropped (ok=false), everything else is tolerated.
func ProgressPointFromDocument(doc *store.Document) (ProgressPoint, bool) {
	ts, ok := AsInt64(doc.Fields["timestamp"])
	if !ok {
		return ProgressPoint{}, false
	}
	p := ProgressPoint{TimestampMs: ts}
	p.WeightKg = numberField(doc.Fields, "weightKg")
	p.BMI = numberField(doc.Fields, "bmi")
	p.CalorieTarget = numberField(doc.Fields, "calorieTarget")
	if d, ok := AsInt(doc.Fields["dateEpochDay"]); ok {
		p.DateEpochDay = d
	}
	return p, true
}
