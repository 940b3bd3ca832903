// Package ordering maintains explicit order arrays over keyed maps.
//
// An order array is a slice of IDs that fixes the display order of entities
// otherwise held in a map (day activities, checklist items). All functions
// return a new slice and never modify their input.
package ordering

import "sort"

// Append returns order with id added at the end.
func Append(order []string, id string) []string {
	out := make([]string, 0, len(order)+1)
	out = append(out, order...)
	return append(out, id)
}

// Remove returns order without any occurrence of id.
func Remove(order []string, id string) []string {
	out := make([]string, 0, len(order))
	for _, v := range order {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Move relocates the element at index from to index to, the way a
// drag-and-drop list reports a move. It reports false when from is out of
// range. to is clamped to the valid range.
func Move(order []string, from, to int) ([]string, bool) {
	if from < 0 || from >= len(order) {
		return clone(order), false
	}
	return insertAt(Remove(order, order[from]), order[from], to), true
}

// MoveID removes id from its current position and inserts it at index to.
// An id absent from order is simply inserted, so the result always contains
// id exactly once.
func MoveID(order []string, id string, to int) []string {
	return insertAt(Remove(order, id), id, to)
}

// Reconcile makes order consistent with the set of keys actually present:
// IDs with no matching key and repeated IDs are dropped, then keys missing
// from order are appended in sorted key order. With an empty order this
// yields the keys in natural (sorted) order.
func Reconcile(order []string, keys []string) []string {
	present := make(map[string]bool, len(keys))
	for _, k := range keys {
		present[k] = true
	}

	out := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, id := range order {
		if present[id] && !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}

	var missing []string
	for _, k := range keys {
		if !seen[k] {
			missing = append(missing, k)
			seen[k] = true
		}
	}
	sort.Strings(missing)
	return append(out, missing...)
}

// IsPermutation reports whether order contains exactly the given keys, each
// once.
func IsPermutation(order []string, keys []string) bool {
	if len(order) != len(keys) {
		return false
	}
	want := make(map[string]int, len(keys))
	for _, k := range keys {
		want[k]++
	}
	for _, id := range order {
		if want[id] == 0 {
			return false
		}
		want[id]--
	}
	return true
}

// Keys returns the keys of m. The order is unspecified.
func Keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func insertAt(order []string, id string, to int) []string {
	if to < 0 {
		to = 0
	}
	if to > len(order) {
		to = len(order)
	}
	out := make([]string, 0, len(order)+1)
	out = append(out, order[:to]...)
	out = append(out, id)
	return append(out, order[to:]...)
}

func clone(order []string) []string {
	return append(make([]string, 0, len(order)), order...)
}
