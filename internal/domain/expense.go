package domain

// Default buckets for activities lacking a category or tags.
const (
	DefaultCategoryBucket = string(CategoryOther)
	DefaultTagBucket      = "Sans tag"
)

// ExpenseSummary is the derived spend recomputed from every activity.
//
// ByTag credits an activity's full price to each of its tags, so the sum over
// ByTag can exceed Spent.
type ExpenseSummary struct {
	Spent      float64            `json:"spent"`
	Booked     float64            `json:"booked"`
	Unbooked   float64            `json:"unbooked"`
	ByCategory map[string]float64 `json:"byCategory"`
	ByTag      map[string]float64 `json:"byTag"`
}

// BudgetOverview pairs the stored budget with a fresh expense summary.
type BudgetOverview struct {
	Budget   Budget         `json:"budget"`
	Expenses ExpenseSummary `json:"expenses"`
}
