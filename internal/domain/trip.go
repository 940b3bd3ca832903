// Package domain contains the core data types for the trip planner.
// This package has zero external dependencies and is imported by every other
// internal package (repo, service, handler).
package domain

// Trip is the root aggregate: the itinerary days plus the budget.
// Days are returned in itinerary order.
type Trip struct {
	Days   []Day  `json:"days"`
	Budget Budget `json:"budget"`
}

// Day is one calendar day of the itinerary.
//
// Key is the storage key assigned when the day was written; ID is the logical
// identifier carried in the payload. The two may differ, so every activity
// mutation resolves ID to Key first.
//
// ActivityOrder fixes the display order over ActivitiesByID. Every ID in the
// order must be a key of the map and every key should appear exactly once.
type Day struct {
	Key            string              `json:"key"`
	ID             string              `json:"id"`
	Date           string              `json:"date"`
	Title          string              `json:"title"`
	ActivityOrder  []string            `json:"activityOrder"`
	ActivitiesByID map[string]Activity `json:"activitiesById"`
}

// OrderedActivities returns the day's activities following ActivityOrder.
// IDs without a matching map entry are skipped.
func (d Day) OrderedActivities() []Activity {
	out := make([]Activity, 0, len(d.ActivityOrder))
	for _, id := range d.ActivityOrder {
		if a, ok := d.ActivitiesByID[id]; ok {
			a.ID = id
			out = append(out, a)
		}
	}
	return out
}

// Budget holds the user-set cap and the derived spend.
// Spent is overwritten by the budget recalculation after every activity
// mutation and is never user-authored. Limits are informational only.
type Budget struct {
	Total          float64            `json:"total"`
	Spent          float64            `json:"spent"`
	CategoryLimits map[string]float64 `json:"categoryLimits,omitempty"`
	TagLimits      map[string]float64 `json:"tagLimits,omitempty"`
}

// DefaultBudgetTotal is the cap written by the initial seed.
const DefaultBudgetTotal = 2000
