package domain

// Priority ranks a checklist item.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority. Empty means "not set".
func (p Priority) Valid() bool {
	switch p {
	case "", PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Checklist is an independent aggregate: items keyed by ID plus their order.
// It follows the same order/map invariant as Day.
type Checklist struct {
	Items     map[string]ChecklistItem `json:"items"`
	ItemOrder []string                 `json:"itemOrder"`
}

// Ordered returns the items following ItemOrder, skipping dangling IDs.
func (c Checklist) Ordered() []ChecklistItem {
	out := make([]ChecklistItem, 0, len(c.ItemOrder))
	for _, id := range c.ItemOrder {
		if it, ok := c.Items[id]; ok {
			it.ID = id
			out = append(out, it)
		}
	}
	return out
}

// ChecklistItem is one thing to prepare before the trip.
type ChecklistItem struct {
	ID        string   `json:"id,omitempty"`
	Text      string   `json:"text"`
	Completed bool     `json:"completed"`
	Category  string   `json:"category,omitempty"`
	Priority  Priority `json:"priority,omitempty"`
}

// ChecklistPatch is a partial update. Nil fields are left untouched.
type ChecklistPatch struct {
	Text      *string
	Completed *bool
	Category  *string
	Priority  *Priority
}

// Fields returns the patch keyed by persisted field name.
func (p ChecklistPatch) Fields() map[string]any {
	f := map[string]any{}
	if p.Text != nil {
		f["text"] = *p.Text
	}
	if p.Completed != nil {
		f["completed"] = *p.Completed
	}
	if p.Category != nil {
		f["category"] = *p.Category
	}
	if p.Priority != nil {
		f["priority"] = *p.Priority
	}
	return f
}

// ChecklistStatus selects items by completion.
type ChecklistStatus string

const (
	StatusAll       ChecklistStatus = "all"
	StatusPending   ChecklistStatus = "pending"
	StatusCompleted ChecklistStatus = "completed"
)

// ChecklistFilter narrows the checklist view. Empty fields match everything.
type ChecklistFilter struct {
	Status   ChecklistStatus
	Category string
}
