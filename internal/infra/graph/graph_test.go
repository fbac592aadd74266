package graph

import (
	"testing"

	"github.com/backlogd/backlogd/internal/domain"
)

func task(id int64, status domain.Status, blockedBy ...int64) domain.Task {
	return domain.Task{ID: id, Status: status, BlockedBy: blockedBy}
}

// ─── Eligibility ────────────────────────────────────────────────────────────

func TestEligible_NoBlockers(t *testing.T) {
	g := New([]domain.Task{task(1, domain.StatusPending)})
	ok, dangling := g.Eligible(task(1, domain.StatusPending))
	if !ok || dangling != nil {
		t.Errorf("Eligible() = %v, %v, want true with no warnings", ok, dangling)
	}
}

func TestEligible_IncompleteBlocker(t *testing.T) {
	g := New([]domain.Task{
		task(1, domain.StatusPending),
		task(2, domain.StatusPending, 1),
	})
	if ok, _ := g.Eligible(task(2, domain.StatusPending, 1)); ok {
		t.Error("Eligible() = true with a pending blocker")
	}
}

func TestEligible_CompletedBlocker(t *testing.T) {
	g := New([]domain.Task{
		task(1, domain.StatusCompleted),
		task(2, domain.StatusPending, 1),
	})
	if ok, _ := g.Eligible(task(2, domain.StatusPending, 1)); !ok {
		t.Error("Eligible() = false with all blockers completed")
	}
}

func TestEligible_DanglingBlockerIsPermanent(t *testing.T) {
	g := New([]domain.Task{task(2, domain.StatusPending, 7)})
	ok, dangling := g.Eligible(task(2, domain.StatusPending, 7))
	if ok {
		t.Error("Eligible() = true with a blocker that resolves to nothing")
	}
	if len(dangling) != 1 || dangling[0] != 7 {
		t.Errorf("dangling = %v, want [7] surfaced for the integrity warning", dangling)
	}
}

// ─── Cycle Detection ────────────────────────────────────────────────────────

func TestWouldCycle_SelfLoop(t *testing.T) {
	g := New([]domain.Task{task(1, domain.StatusPending)})
	if !g.WouldCycle(1, 1) {
		t.Error("WouldCycle(1, 1) = false, want true")
	}
}

func TestWouldCycle_DirectBack(t *testing.T) {
	// 2 blocked by 1; adding "1 blocked by 2" closes the loop.
	g := New([]domain.Task{
		task(1, domain.StatusPending),
		task(2, domain.StatusPending, 1),
	})
	if !g.WouldCycle(1, 2) {
		t.Error("WouldCycle(1, 2) = false, want true")
	}
	if g.WouldCycle(3, 2) {
		t.Error("WouldCycle(3, 2) = true for an unrelated task")
	}
}

func TestWouldCycle_Transitive(t *testing.T) {
	// 3 <- 2 <- 1 (blocked-by chain); "1 blocked by 3" closes a 3-cycle.
	g := New([]domain.Task{
		task(1, domain.StatusPending),
		task(2, domain.StatusPending, 1),
		task(3, domain.StatusPending, 2),
	})
	if !g.WouldCycle(1, 3) {
		t.Error("WouldCycle(1, 3) = false, want true (transitive cycle)")
	}
	// Same chain the other way stays acyclic.
	if g.WouldCycle(3, 1) {
		t.Error("WouldCycle(3, 1) = true for an edge that only deepens the chain")
	}
}

// ─── Reverse Edges ──────────────────────────────────────────────────────────

func TestUnblocksOf(t *testing.T) {
	g := New([]domain.Task{
		task(1, domain.StatusPending),
		task(2, domain.StatusPending, 1),
		task(3, domain.StatusPending, 1),
		task(4, domain.StatusBlocked, 1),
	})
	got := g.UnblocksOf(1)
	want := []int64{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("UnblocksOf(1) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("UnblocksOf(1) = %v, want %v (sorted)", got, want)
		}
	}
}

func TestPendingUnblocksCount(t *testing.T) {
	g := New([]domain.Task{
		task(1, domain.StatusPending),
		task(2, domain.StatusPending, 1),
		task(3, domain.StatusBlocked, 1),
	})
	if n := g.PendingUnblocksCount(1); n != 1 {
		t.Errorf("PendingUnblocksCount(1) = %d, want 1 (only pending dependents)", n)
	}
	if n := g.PendingUnblocksCount(2); n != 0 {
		t.Errorf("PendingUnblocksCount(2) = %d, want 0", n)
	}
}
