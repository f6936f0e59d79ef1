package models

import (
	"github.com/hellofit/fitledger/internal/store"
)

// Entry is one planned or logged activity/food. The shape is shared across
// the workout and meal domains; absent fields stay nil. Decoding is total:
// any malformed stored value decodes to absent, never to an error.
type Entry struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Intensity string `json:"intensity,omitempty"`

	// Workout fields.
	MET         *float64 `json:"met,omitempty"`
	DurationMin *int     `json:"durationMin,omitempty"`

	// Meal fields; Kcal also appears on logged workouts.
	Kcal    *int `json:"kcal,omitempty"`
	Protein *int `json:"protein,omitempty"`
	Carbs   *int `json:"carbs,omitempty"`
	Fat     *int `json:"fat,omitempty"`

	DateEpochDay int `json:"dateEpochDay"`
	// CreatedAt is the server-assigned ordering timestamp (ms since epoch).
	// Display/order only, never bucketing.
	CreatedAt int64 `json:"createdAt,omitempty"`
}

// EntryFromDocument decodes a plan or log document.
func EntryFromDocument(doc *store.Document) Entry {
	e := Entry{ID: doc.ID}
	if s, ok := AsString(doc.Fields["name"]); ok {
		e.Name = s
	}
	if s, ok := AsString(doc.Fields["intensity"]); ok {
		e.Intensity = s
	}
	e.MET = numberField(doc.Fields, "met")
	e.DurationMin = intField(doc.Fields, "durationMin")
	e.Kcal = intField(doc.Fields, "kcal")
	e.Protein = intField(doc.Fields, "protein")
	e.Carbs = intField(doc.Fields, "carbs")
	e.Fat = intField(doc.Fields, "fat")
	if d, ok := AsInt(doc.Fields["dateEpochDay"]); ok {
		e.DateEpochDay = d
	}
	if ts, ok := AsInt64(doc.Fields[store.CreatedAtField]); ok {
		e.CreatedAt = ts
	}
	return e
}

// EntriesFromDocuments decodes a query result.
func EntriesFromDocuments(docs []*store.Document) []Entry {
	out := make([]Entry, 0, len(docs))
	for _, doc := range docs {
		out = append(out, EntryFromDocument(doc))
	}
	return out
}

// DocumentFields encodes the present fields for writing. createdAt is left
// to the store.
func (e Entry) DocumentFields() map[string]interface{} {
	fields := map[string]interface{}{
		"name":         e.Name,
		"dateEpochDay": e.DateEpochDay,
	}
	if e.Intensity != "" {
		fields["intensity"] = e.Intensity
	}
	if e.MET != nil {
		fields["met"] = *e.MET
	}
	if e.DurationMin != nil {
		fields["durationMin"] = *e.DurationMin
	}
	if e.Kcal != nil {
		fields["kcal"] = *e.Kcal
	}
	if e.Protein != nil {
		fields["protein"] = *e.Protein
	}
	if e.Carbs != nil {
		fields["carbs"] = *e.Carbs
	}
	if e.Fat != nil {
		fields["fat"] = *e.Fat
	}
	return fields
}
