// Package scheduler ranks eligible Pending tasks for "what next"
// queries. The ordering is a strict total order, so repeated calls on
// an unchanged backlog return the identical sequence.
//
// Comparison chain, each step a tie-break on the previous:
//  1. Priority tier, P1 > P2 > P3 > P4
//  2. Unblocks count — tasks gating more pending work first
//  3. Category continuity with the most recently completed task
//  4. Older createdAt (antistarvation)
//  5. Lower id (final deterministic tie-break)
package scheduler

import (
	"sort"

	"github.com/backlogd/backlogd/internal/domain"
)

// Input bundles the ranking context the engine assembles from the
// store and the dependency graph.
type Input struct {
	// Unblocks maps task id to the number of Pending tasks whose
	// blocker set contains it.
	Unblocks map[int64]int

	// LastCategory is the category of the most recently completed
	// task; candidates sharing it get the continuity bonus.
	LastCategory string
}

// Rank orders candidates best-first. The input slice is not modified.
func Rank(candidates []domain.Task, in Input) []domain.Task {
	ranked := make([]domain.Task, len(candidates))
	copy(ranked, candidates)

	sort.Slice(ranked, func(i, j int) bool {
		return Less(ranked[i], ranked[j], in)
	})
	return ranked
}

// Less reports whether a ranks strictly before b. Because the final
// comparison is on immutable unique ids, no two distinct tasks ever
// compare equal.
func Less(a, b domain.Task, in Input) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}

	ua, ub := in.Unblocks[a.ID], in.Unblocks[b.ID]
	if ua != ub {
		return ua > ub
	}

	if in.LastCategory != "" {
		ca := a.Category == in.LastCategory
		cb := b.Category == in.LastCategory
		if ca != cb {
			return ca
		}
	}

	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}

	return a.ID < b.ID
}
