// Package graph answers dependency questions over a backlog snapshot:
// which tasks are eligible to start, whether a new blocking edge would
// close a cycle, and which tasks an id unblocks. The graph is built
// from a point-in-time task snapshot and is read-only; the engine
// rebuilds it inside its admission critical section.
package graph

import (
	"sort"

	"github.com/backlogd/backlogd/internal/domain"
)

// Graph indexes blocking edges for a snapshot of all tasks (both
// partitions — blockers of active tasks usually live in the archive).
type Graph struct {
	tasks      map[int64]domain.Task
	dependents map[int64][]int64 // blocker id -> ids of tasks it blocks
}

// New builds a Graph from a task snapshot.
func New(tasks []domain.Task) *Graph {
	g := &Graph{
		tasks:      make(map[int64]domain.Task, len(tasks)),
		dependents: make(map[int64][]int64),
	}
	for _, t := range tasks {
		g.tasks[t.ID] = t
	}
	for _, t := range tasks {
		for _, b := range t.BlockedBy {
			g.dependents[b] = append(g.dependents[b], t.ID)
		}
	}
	for id := range g.dependents {
		deps := g.dependents[id]
		sort.Slice(deps, func(i, j int) bool { return deps[i] < deps[j] })
	}
	return g
}

// Eligible reports whether every blocker of t has reached Completed.
// The second return lists blocker ids that do not resolve to any known
// task: those are permanent blockers, and the caller must surface them
// as data-integrity warnings rather than ignore them.
func (g *Graph) Eligible(t domain.Task) (bool, []int64) {
	eligible := true
	var dangling []int64
	for _, b := range t.BlockedBy {
		blocker, ok := g.tasks[b]
		if !ok {
			dangling = append(dangling, b)
			eligible = false
			continue
		}
		if blocker.Status != domain.StatusCompleted {
			eligible = false
		}
	}
	return eligible, dangling
}

// WouldCycle reports whether adding the edge "task blocked by blocker"
// would close a cycle, by checking whether task is reachable from
// blocker along existing blocked-by edges. Runs in time proportional to
// the graph, never skipped for small inputs.
func (g *Graph) WouldCycle(taskID, blockerID int64) bool {
	if taskID == blockerID {
		return true
	}
	seen := make(map[int64]bool, len(g.tasks))
	stack := []int64{blockerID}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == taskID {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		if t, ok := g.tasks[cur]; ok {
			stack = append(stack, t.BlockedBy...)
		}
	}
	return false
}

// UnblocksOf returns the ids of tasks whose blocker set contains id,
// sorted ascending. This is the reverse-edge query behind the
// scheduler's unblocks-count tie-break.
func (g *Graph) UnblocksOf(id int64) []int64 {
	return g.dependents[id]
}

// PendingUnblocksCount counts Pending tasks that id would unblock.
func (g *Graph) PendingUnblocksCount(id int64) int {
	n := 0
	for _, dep := range g.dependents[id] {
		if t, ok := g.tasks[dep]; ok && t.Status == domain.StatusPending {
			n++
		}
	}
	return n
}
