// Package aggregate recomputes derived sprint counters. Counters are
// always rebuilt by full recount from current child state, never
// incremented, so concurrent task writes cannot drift them; the recount
// runs inside the same transaction as the task write that triggered it.
package aggregate

import (
	"context"

	"github.com/atelierhq/portal-backend/internal/domain"
	"github.com/atelierhq/portal-backend/internal/store"
)

// RecountSprint rebuilds one sprint's totals from its tasks.
func RecountSprint(ctx context.Context, tx store.Tx, sprintID string) error {
	total, completed, err := tx.CountSprintTasks(ctx, sprintID)
	if err != nil {
		return err
	}
	return tx.UpdateSprintCounters(ctx, sprintID, total, completed)
}

// AffectedSprints lists every sprint whose counters a task write may have
// changed: the old membership, the new membership, or both on a move.
// Either task may be nil (create has no before, delete has no after).
func AffectedSprints(before, after *domain.Task) []string {
	seen := map[string]bool{}
	out := []string{}
	add := func(t *domain.Task) {
		if t == nil || t.SprintID == nil || *t.SprintID == "" {
			return
		}
		if !seen[*t.SprintID] {
			seen[*t.SprintID] = true
			out = append(out, *t.SprintID)
		}
	}
	add(before)
	add(after)
	return out
}

// RecountForTaskChange recounts every sprint affected by a task write.
func RecountForTaskChange(ctx context.Context, tx store.Tx, before, after *domain.Task) error {
	for _, id := range AffectedSprints(before, after) {
		if err := RecountSprint(ctx, tx, id); err != nil {
			return err
		}
	}
	return nil
}
