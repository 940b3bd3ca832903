// Package watch delivers change notifications for store paths.
//
// Paths are slash-separated, e.g. "trip", "trip/budget", "checklist". A
// change published for one path wakes every subscriber whose path is the
// same, an ancestor, or a descendant: writing "trip/budget" wakes "trip"
// watchers, and replacing "trip" wakes "trip/budget" watchers.
//
// Notifications carry no payload. Each subscription buffers one pending
// wake-up, so a slow subscriber sees one notification for any burst of
// changes and re-reads the latest snapshot.
package watch

import (
	"strings"
	"sync"
)

// Standard paths published by the services.
const (
	PathTrip      = "trip"
	PathDays      = "trip/days"
	PathBudget    = "trip/budget"
	PathChecklist = "checklist"
)

// Subscription is a registered interest in a path.
type Subscription struct {
	path string
	ch   chan struct{}
	hub  *Hub
	once sync.Once
}

// Path returns the watched path.
func (s *Subscription) Path() string { return s.path }

// C fires after a change to the watched path. It is closed on Unsubscribe.
func (s *Subscription) C() <-chan struct{} { return s.ch }

// Unsubscribe stops delivery and closes C. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() { s.hub.remove(s) })
}

// Hub tracks subscriptions. The zero value is not usable; call NewHub.
type Hub struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers interest in path.
func (h *Hub) Subscribe(path string) *Subscription {
	s := &Subscription{path: normalize(path), ch: make(chan struct{}, 1), hub: h}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Publish notifies subscribers related to path. It never blocks.
func (h *Hub) Publish(path string) {
	path = normalize(path)
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		if related(s.path, path) {
			select {
			case s.ch <- struct{}{}:
			default: // a wake-up is already pending
			}
		}
	}
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
	close(s.ch)
}

func normalize(p string) string {
	return strings.Trim(p, "/")
}

// related reports whether a is b, or one is an ancestor of the other.
func related(a, b string) bool {
	return a == b || a == "" || b == "" ||
		strings.HasPrefix(b, a+"/") || strings.HasPrefix(a, b+"/")
}
