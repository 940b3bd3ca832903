// Package service holds the business rules of the trip planner. Services
// validate input, resolve day IDs to storage keys, keep the budget in sync
// with activity prices and announce changes to live subscribers.
//
// Services depend on repo interfaces only, so tests swap in hand-written
// doubles.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/repo"
)

// Notifier announces that the data under path changed. *watch.Hub satisfies it.
type Notifier interface {
	Publish(path string)
}

type nopNotifier struct{}

func (nopNotifier) Publish(string) {}

func orNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

// resolveDay maps a logical day ID to its storage key.
func resolveDay(ctx context.Context, days repo.DayRepo, dayID string) (string, error) {
	if strings.TrimSpace(dayID) == "" {
		return "", fmt.Errorf("%w: day id is required", domain.ErrValidation)
	}
	return days.ResolveKey(ctx, dayID)
}

// cleanTags trims tags, drops empty ones and repeats. Order is kept.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
