// Package conflict decides which tasks may safely execute together by
// intersecting their resource footprints. Two tasks conflict iff they
// would mutate at least one common resource; a set is admissible iff no
// pair conflicts.
package conflict

import (
	"sort"
	"strings"

	"github.com/backlogd/backlogd/internal/domain"
)

// Granularity selects how resource identifiers are compared.
type Granularity string

const (
	// GranularityResource compares exact resource identifiers. This is
	// the core semantic: overlaps are a hard block.
	GranularityResource Granularity = "resource"

	// GranularityModule compares only the leading path segment. Coarser
	// and advisory — module-level overlap is a policy warning, never a
	// hard block on its own.
	GranularityModule Granularity = "module"
)

// Valid reports whether g is a known granularity.
func (g Granularity) Valid() bool {
	return g == GranularityResource || g == GranularityModule
}

// Detector computes footprint intersections at a fixed granularity.
type Detector struct {
	granularity Granularity
}

// New creates a Detector. An empty granularity defaults to resource.
func New(g Granularity) *Detector {
	if g == "" {
		g = GranularityResource
	}
	return &Detector{granularity: g}
}

// key normalizes a resource identifier for comparison.
func (d *Detector) key(resource string) string {
	if d.granularity == GranularityModule {
		if i := strings.IndexByte(resource, '/'); i > 0 {
			return resource[:i]
		}
	}
	return resource
}

func (d *Detector) keySet(t domain.Task) map[string]struct{} {
	set := make(map[string]struct{}, len(t.Footprint))
	for _, r := range t.Footprint {
		set[d.key(r)] = struct{}{}
	}
	return set
}

// Conflicts reports whether the two tasks' footprints intersect. The
// relation is symmetric; a task never conflicts with itself.
func (d *Detector) Conflicts(a, b domain.Task) bool {
	if a.ID == b.ID {
		return false
	}
	bKeys := d.keySet(b)
	for _, r := range a.Footprint {
		if _, ok := bKeys[d.key(r)]; ok {
			return true
		}
	}
	return false
}

// ConflictsWithAny reports whether t conflicts with any task in running,
// returning the first conflicting task id (ids scanned in order).
func (d *Detector) ConflictsWithAny(t domain.Task, running []domain.Task) (int64, bool) {
	for _, r := range running {
		if d.Conflicts(t, r) {
			return r.ID, true
		}
	}
	return 0, false
}

// Admissible reports whether the tasks' footprints are pairwise disjoint.
func (d *Detector) Admissible(tasks []domain.Task) bool {
	owner := make(map[string]int64)
	for _, t := range tasks {
		for _, r := range t.Footprint {
			k := d.key(r)
			if prev, ok := owner[k]; ok && prev != t.ID {
				return false
			}
			owner[k] = t.ID
		}
	}
	return true
}

// Partition greedily assigns tasks to execution groups such that each
// group is admissible. Assignment order is priority tier then task id,
// so the grouping is deterministic for a given input set. It decides
// what may run together; it executes nothing.
func (d *Detector) Partition(tasks []domain.Task) [][]domain.Task {
	ordered := make([]domain.Task, len(tasks))
	copy(ordered, tasks)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		return ordered[i].ID < ordered[j].ID
	})

	var groups [][]domain.Task
	var claimed []map[string]struct{} // per-group resource keys

next:
	for _, t := range ordered {
		keys := d.keySet(t)
		for gi := range groups {
			if disjoint(keys, claimed[gi]) {
				groups[gi] = append(groups[gi], t)
				for k := range keys {
					claimed[gi][k] = struct{}{}
				}
				continue next
			}
		}
		groups = append(groups, []domain.Task{t})
		claimed = append(claimed, keys)
	}
	return groups
}

func disjoint(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return false
		}
	}
	return true
}
