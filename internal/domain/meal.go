package domain

// MealRecord is one row of the append-only food log.
type MealRecord struct {
	ID      int64
	Date    string
	Food    string
	Protein float64
	Carbs   float64
	Fats    float64
	Advice  string
}

// CachedMeal holds the fields returned by a meal cache hit.
type CachedMeal struct {
	Protein float64
	Carbs   float64
	Fats    float64
	Advice  string
}

// DailyIntake sums the macros logged on a single day.
type DailyIntake struct {
	Date    string
	Protein float64
	Carbs   float64
	Fats    float64
	Meals   int
}
