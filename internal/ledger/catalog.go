package ledger

import (
	"github.com/hellofit/fitledger/internal/models"
)

// Built-in catalogs, mirrored from the mobile app. These are source-level
// constants, not store data; changing them requires a release.

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

// WorkoutCatalog returns the selectable workouts.
func WorkoutCatalog() []models.Entry {
	return []models.Entry{
		{Name: "Full Body Beginner", Intensity: "Easy", DurationMin: iptr(20), MET: fptr(4.5)},
		{Name: "Push Day", Intensity: "Medium", DurationMin: iptr(30), MET: fptr(6.0)},
		{Name: "Pull Day", Intensity: "Medium", DurationMin: iptr(30), MET: fptr(6.0)},
		{Name: "Legs & Core", Intensity: "Hard", DurationMin: iptr(35), MET: fptr(7.5)},
		{Name: "HIIT Fat Burn", Intensity: "Hard", DurationMin: iptr(18), MET: fptr(9.0)},
	}
}

// MealCatalog returns the selectable meals.
func MealCatalog() []models.Entry {
	return []models.Entry{
		{Name: "Oats & Banana", Kcal: iptr(350), Protein: iptr(12), Carbs: iptr(60), Fat: iptr(7)},
		{Name: "Grilled Chicken & Rice", Kcal: iptr(520), Protein: iptr(42), Carbs: iptr(60), Fat: iptr(12)},
		{Name: "Paneer Wrap", Kcal: iptr(480), Protein: iptr(24), Carbs: iptr(45), Fat: iptr(22)},
		{Name: "Greek Yogurt & Nuts", Kcal: iptr(280), Protein: iptr(18), Carbs: iptr(15), Fat: iptr(16)},
		{Name: "Salmon & Quinoa", Kcal: iptr(560), Protein: iptr(40), Carbs: iptr(45), Fat: iptr(20)},
		{Name: "Veg Khichdi + Curd", Kcal: iptr(420), Protein: iptr(16), Carbs: iptr(68), Fat: iptr(10)},
	}
}

// Catalog returns the catalog for a domain.
func Catalog(d Domain) []models.Entry {
	if d == DomainMeals {
		return MealCatalog()
	}
	return WorkoutCatalog()
}

// CatalogItem looks a catalog entry up by exact name.
func CatalogItem(d Domain, name string) (models.Entry, error) {
	for _, item := range Catalog(d) {
		if item.Name == name {
			return item, nil
		}
	}
	return models.Entry{}, ErrNotInCatalog
}
