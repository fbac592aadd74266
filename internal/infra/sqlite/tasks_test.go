package sqlite

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/backlogd/backlogd/internal/domain"
)

// ─── Insert / Get ───────────────────────────────────────────────────────────

func TestInsertTask_AssignsFreshIDs(t *testing.T) {
	db := newTestDB(t)

	a := mustInsert(t, db, domain.Task{Title: "first"})
	b := mustInsert(t, db, domain.Task{Title: "second"})
	if b.ID <= a.ID {
		t.Errorf("ids not monotonic: %d then %d", a.ID, b.ID)
	}
	if a.Version != 1 {
		t.Errorf("fresh task version = %d, want 1", a.Version)
	}
	if a.Status != domain.StatusPending {
		t.Errorf("fresh task status = %s, want PENDING", a.Status)
	}
}

func TestInsertTask_PersistsChildren(t *testing.T) {
	db := newTestDB(t)

	blocker := mustInsert(t, db, domain.Task{Title: "blocker"})
	task := mustInsert(t, db, domain.Task{
		Title:     "with children",
		BlockedBy: []int64{blocker.ID},
		Footprint: []string{"internal/api/server.go", "internal/api/router.go"},
		Criteria:  []domain.Criterion{{Text: "handler returns 200"}, {Text: "docs updated", Checked: true}},
	})

	if len(task.BlockedBy) != 1 || task.BlockedBy[0] != blocker.ID {
		t.Errorf("BlockedBy = %v, want [%d]", task.BlockedBy, blocker.ID)
	}
	if len(task.Footprint) != 2 {
		t.Errorf("Footprint = %v, want 2 resources", task.Footprint)
	}
	if len(task.Criteria) != 2 || task.Criteria[1].Checked != true {
		t.Errorf("Criteria = %+v, want 2 with second checked", task.Criteria)
	}
	if len(task.Progress) != 1 || task.Progress[0].Note != "created" {
		t.Errorf("Progress = %+v, want single 'created' entry", task.Progress)
	}
}

func TestGetTask_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetTask(999)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetTask(999) error = %v, want ErrNotFound", err)
	}
}

// ─── Optimistic Concurrency ─────────────────────────────────────────────────

func TestUpdateTask_BumpsVersion(t *testing.T) {
	db := newTestDB(t)
	task := mustInsert(t, db, domain.Task{Title: "v"})

	task.Category = "storage"
	got, err := db.UpdateTask(task, "recategorized")
	if err != nil {
		t.Fatalf("UpdateTask() error: %v", err)
	}
	if got.Version != task.Version+1 {
		t.Errorf("version = %d, want %d", got.Version, task.Version+1)
	}
	if got.Category != "storage" {
		t.Errorf("category = %q, want storage", got.Category)
	}
	if got.Progress[len(got.Progress)-1].Note != "recategorized" {
		t.Error("progress note not appended with the update")
	}
}

func TestUpdateTask_StaleVersionConflicts(t *testing.T) {
	db := newTestDB(t)
	task := mustInsert(t, db, domain.Task{Title: "contended"})

	// First writer wins.
	first := task
	first.Category = "a"
	if _, err := db.UpdateTask(first, ""); err != nil {
		t.Fatalf("first UpdateTask() error: %v", err)
	}

	// Second writer holds the stale version and must be told to retry.
	second := task
	second.Category = "b"
	_, err := db.UpdateTask(second, "")
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("stale UpdateTask() error = %v, want ErrConflict", err)
	}

	got, _ := db.GetTask(task.ID)
	if got.Category != "a" {
		t.Errorf("category = %q, want first writer's value", got.Category)
	}
}

func TestUpdateTask_MissingTask(t *testing.T) {
	db := newTestDB(t)
	_, err := db.UpdateTask(domain.Task{ID: 42, Version: 1, Status: domain.StatusPending, Priority: domain.P3}, "")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("UpdateTask(missing) error = %v, want ErrNotFound", err)
	}
}

// ─── Admission ──────────────────────────────────────────────────────────────

func TestAdmitTask(t *testing.T) {
	db := newTestDB(t)
	task := mustInsert(t, db, domain.Task{Title: "solo"})
	task.StartedAt = time.Now()

	got, err := db.AdmitTask(task, "started")
	if err != nil {
		t.Fatalf("AdmitTask() error: %v", err)
	}
	if got.Status != domain.StatusInProgress {
		t.Errorf("status = %s, want IN_PROGRESS", got.Status)
	}
	if got.Version != task.Version+1 {
		t.Errorf("version = %d, want %d", got.Version, task.Version+1)
	}
	if got.StartedAt.IsZero() {
		t.Error("started_at not set")
	}
	if got.Progress[len(got.Progress)-1].Note != "started" {
		t.Error("progress note not appended with the admission")
	}
}

func TestAdmitTask_RefusesSecondActive(t *testing.T) {
	db := newTestDB(t)
	a := mustInsert(t, db, domain.Task{Title: "a"})
	b := mustInsert(t, db, domain.Task{Title: "b"})

	a.StartedAt = time.Now()
	if _, err := db.AdmitTask(a, ""); err != nil {
		t.Fatalf("AdmitTask(a) error: %v", err)
	}

	b.StartedAt = time.Now()
	_, err := db.AdmitTask(b, "")
	if !errors.Is(err, domain.ErrActiveLimitExceeded) {
		t.Errorf("AdmitTask(b) error = %v, want ErrActiveLimitExceeded", err)
	}
	got, _ := db.GetTask(b.ID)
	if got.Status != domain.StatusPending {
		t.Errorf("refused task status = %s, want PENDING", got.Status)
	}
}

func TestAdmitTask_StaleVersionConflicts(t *testing.T) {
	db := newTestDB(t)
	task := mustInsert(t, db, domain.Task{Title: "contended"})

	stale := task
	stale.Version = task.Version + 3
	stale.StartedAt = time.Now()
	if _, err := db.AdmitTask(stale, ""); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("AdmitTask(stale) error = %v, want ErrConflict", err)
	}

	_, err := db.AdmitTask(domain.Task{ID: 404, Version: 1}, "")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("AdmitTask(missing) error = %v, want ErrNotFound", err)
	}
}

func TestAdmitTask_SessionFootprintOverlap(t *testing.T) {
	db := newTestDB(t)
	a := mustInsert(t, db, domain.Task{Title: "a", Footprint: []string{"internal/api"}})
	b := mustInsert(t, db, domain.Task{Title: "b", Footprint: []string{"internal/api", "docs"}})
	c := mustInsert(t, db, domain.Task{Title: "c", Footprint: []string{"internal/storage"}})

	a.SessionID = "s1"
	a.StartedAt = time.Now()
	if _, err := db.AdmitTask(a, ""); err != nil {
		t.Fatalf("AdmitTask(a) error: %v", err)
	}

	// Overlapping footprint with a running task is refused.
	b.SessionID = "s1"
	b.StartedAt = time.Now()
	if _, err := db.AdmitTask(b, ""); !errors.Is(err, domain.ErrResourceConflict) {
		t.Errorf("AdmitTask(b) error = %v, want ErrResourceConflict", err)
	}

	// Disjoint footprint is admitted alongside.
	c.SessionID = "s1"
	c.StartedAt = time.Now()
	if _, err := db.AdmitTask(c, ""); err != nil {
		t.Fatalf("AdmitTask(c) error: %v", err)
	}
	running, _ := db.ListByStatus(domain.StatusInProgress)
	if len(running) != 2 {
		t.Errorf("running = %d tasks, want 2", len(running))
	}
}

// Two handles on the same database file are two independent processes
// as far as locking is concerned. The invariant has to hold in the
// statement itself, not in any one process's memory.
func TestAdmitTask_CrossHandleSingleActive(t *testing.T) {
	dir := t.TempDir()
	db1, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db1.Close()
	db2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open() error: %v", err)
	}
	defer db2.Close()

	for i := 0; i < 25; i++ {
		a := mustInsert(t, db1, domain.Task{Title: "a"})
		b := mustInsert(t, db1, domain.Task{Title: "b"})
		a.StartedAt = time.Now()
		b.StartedAt = time.Now()

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() { defer wg.Done(); _, errs[0] = db1.AdmitTask(a, "") }()
		go func() { defer wg.Done(); _, errs[1] = db2.AdmitTask(b, "") }()
		wg.Wait()

		running, err := db1.ListByStatus(domain.StatusInProgress)
		if err != nil {
			t.Fatalf("iteration %d: ListByStatus() error: %v", i, err)
		}
		if len(running) != 1 {
			var ids []int64
			for _, r := range running {
				ids = append(ids, r.ID)
			}
			t.Fatalf("iteration %d: tasks %v in progress at once", i, ids)
		}
		for _, e := range errs {
			if e != nil && !errors.Is(e, domain.ErrActiveLimitExceeded) {
				t.Fatalf("iteration %d: loser error = %v, want ErrActiveLimitExceeded", i, e)
			}
		}

		// Reset the winner so the next round starts clean.
		winner := running[0]
		winner.Status = domain.StatusPending
		if _, err := db1.UpdateTask(winner, ""); err != nil {
			t.Fatalf("iteration %d: reset error: %v", i, err)
		}
	}
}

// ─── Partition Move ─────────────────────────────────────────────────────────

func TestCompleteTask_MovesToArchive(t *testing.T) {
	db := newTestDB(t)
	task := mustInsert(t, db, domain.Task{Title: "done soon"})

	got, err := db.CompleteTask(task, "all criteria verified")
	if err != nil {
		t.Fatalf("CompleteTask() error: %v", err)
	}
	if got.Status != domain.StatusCompleted {
		t.Errorf("status = %s, want COMPLETED", got.Status)
	}
	if got.CompletedAt.IsZero() {
		t.Error("completed_at not set")
	}

	// Exactly one partition holds the task.
	active, _ := db.ListActive()
	for _, a := range active {
		if a.ID == task.ID {
			t.Error("completed task still present in active partition")
		}
	}
	archived, _ := db.ListArchive(0)
	found := false
	for _, a := range archived {
		if a.ID == task.ID {
			found = true
		}
	}
	if !found {
		t.Error("completed task missing from archive partition")
	}
}

func TestCompleteTask_StaleVersionLeavesPartitionsUntouched(t *testing.T) {
	db := newTestDB(t)
	task := mustInsert(t, db, domain.Task{Title: "contended completion"})

	stale := task
	stale.Version = task.Version + 5
	_, err := db.CompleteTask(stale, "")
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("CompleteTask(stale) error = %v, want ErrConflict", err)
	}

	got, err := db.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask() after failed complete: %v", err)
	}
	if got.Status != domain.StatusPending {
		t.Errorf("status = %s, want PENDING (failure must be all-or-nothing)", got.Status)
	}
	archived, _ := db.ListArchive(0)
	if len(archived) != 0 {
		t.Error("failed completion leaked a row into the archive")
	}
}

func TestReopenTask(t *testing.T) {
	db := newTestDB(t)
	task := mustInsert(t, db, domain.Task{Title: "to reopen"})
	if _, err := db.CompleteTask(task, ""); err != nil {
		t.Fatalf("CompleteTask() error: %v", err)
	}

	got, err := db.ReopenTask(task.ID, "regression found in review")
	if err != nil {
		t.Fatalf("ReopenTask() error: %v", err)
	}
	if got.Status != domain.StatusPending {
		t.Errorf("status = %s, want PENDING", got.Status)
	}
	if !got.CompletedAt.IsZero() {
		t.Error("completed_at not cleared on reopen")
	}
	last := got.Progress[len(got.Progress)-1].Note
	if last != "reopened: regression found in review" {
		t.Errorf("audit note = %q", last)
	}

	archived, _ := db.ListArchive(0)
	if len(archived) != 0 {
		t.Error("reopened task still in archive partition")
	}
}

func TestReopenTask_ActiveTaskIsInvalid(t *testing.T) {
	db := newTestDB(t)
	task := mustInsert(t, db, domain.Task{Title: "never completed"})

	_, err := db.ReopenTask(task.ID, "oops")
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("ReopenTask(active) error = %v, want ErrInvalidState", err)
	}
	_, err = db.ReopenTask(999, "oops")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("ReopenTask(missing) error = %v, want ErrNotFound", err)
	}
}

func TestReopenTask_PreservesID(t *testing.T) {
	db := newTestDB(t)
	task := mustInsert(t, db, domain.Task{Title: "keeps id"})
	if _, err := db.CompleteTask(task, ""); err != nil {
		t.Fatalf("CompleteTask() error: %v", err)
	}
	got, err := db.ReopenTask(task.ID, "again")
	if err != nil {
		t.Fatalf("ReopenTask() error: %v", err)
	}
	if got.ID != task.ID {
		t.Errorf("id changed on reopen: %d -> %d", task.ID, got.ID)
	}

	// New tasks still get fresh ids after the round trip.
	next := mustInsert(t, db, domain.Task{Title: "after reopen"})
	if next.ID <= task.ID {
		t.Errorf("id %d reused after reopen (previous max %d)", next.ID, task.ID)
	}
}

// ─── Criteria ───────────────────────────────────────────────────────────────

func TestSetCriterion(t *testing.T) {
	db := newTestDB(t)
	task := mustInsert(t, db, domain.Task{
		Title:    "checkable",
		Criteria: []domain.Criterion{{Text: "a"}, {Text: "b"}},
	})

	if err := db.SetCriterion(task.ID, task.Version, 1, true); err != nil {
		t.Fatalf("SetCriterion() error: %v", err)
	}
	got, _ := db.GetTask(task.ID)
	if !got.Criteria[1].Checked {
		t.Error("criterion 1 not checked")
	}
	if got.Version != task.Version+1 {
		t.Errorf("version = %d, want bump on criterion change", got.Version)
	}

	// Stale version is rejected.
	err := db.SetCriterion(task.ID, task.Version, 0, true)
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("SetCriterion(stale) error = %v, want ErrConflict", err)
	}

	// Bad position is rejected with its own sentinel: the task exists,
	// the criterion does not.
	err = db.SetCriterion(task.ID, got.Version, 9, true)
	if !errors.Is(err, domain.ErrCriterionNotFound) {
		t.Errorf("SetCriterion(bad position) error = %v, want ErrCriterionNotFound", err)
	}
	if errors.Is(err, domain.ErrNotFound) {
		t.Error("SetCriterion(bad position) reported the task itself as missing")
	}
}

// ─── Listing & Aggregation ──────────────────────────────────────────────────

func TestListByStatus(t *testing.T) {
	db := newTestDB(t)
	mustInsert(t, db, domain.Task{Title: "p1"})
	mustInsert(t, db, domain.Task{Title: "p2"})
	blocked := mustInsert(t, db, domain.Task{Title: "b1"})
	blocked.Status = domain.StatusBlocked
	if _, err := db.UpdateTask(blocked, ""); err != nil {
		t.Fatalf("UpdateTask() error: %v", err)
	}

	pending, err := db.ListByStatus(domain.StatusPending)
	if err != nil {
		t.Fatalf("ListByStatus() error: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("pending = %d, want 2", len(pending))
	}
}

func TestSummary_MatchesScan(t *testing.T) {
	db := newTestDB(t)
	mustInsert(t, db, domain.Task{Title: "a"})
	b := mustInsert(t, db, domain.Task{Title: "b"})
	c := mustInsert(t, db, domain.Task{Title: "c"})

	b.Status = domain.StatusInProgress
	if _, err := db.UpdateTask(b, ""); err != nil {
		t.Fatalf("UpdateTask() error: %v", err)
	}
	if _, err := db.CompleteTask(domain.Task{ID: c.ID, Version: c.Version}, ""); err != nil {
		t.Fatalf("CompleteTask() error: %v", err)
	}

	s, err := db.Summary()
	if err != nil {
		t.Fatalf("Summary() error: %v", err)
	}

	// Recompute by scanning — the summary is a projection, never a store.
	all, _ := db.ListAll()
	var pending, inProgress, blocked, completed int
	for _, task := range all {
		switch task.Status {
		case domain.StatusPending:
			pending++
		case domain.StatusInProgress:
			inProgress++
		case domain.StatusBlocked:
			blocked++
		case domain.StatusCompleted:
			completed++
		}
	}
	if s.Pending != pending || s.InProgress != inProgress || s.Blocked != blocked || s.Completed != completed {
		t.Errorf("Summary() = %+v, scan says %d/%d/%d/%d", s, pending, inProgress, blocked, completed)
	}
	if len(s.Active) != 1 || s.Active[0] != b.ID {
		t.Errorf("Active = %v, want [%d]", s.Active, b.ID)
	}
}

func TestLastCompleted(t *testing.T) {
	db := newTestDB(t)
	if got, err := db.LastCompleted(); err != nil || got != nil {
		t.Fatalf("LastCompleted() on empty archive = %v, %v", got, err)
	}

	a := mustInsert(t, db, domain.Task{Title: "a", Category: "api"})
	if _, err := db.CompleteTask(domain.Task{ID: a.ID, Version: a.Version}, ""); err != nil {
		t.Fatalf("CompleteTask() error: %v", err)
	}

	got, err := db.LastCompleted()
	if err != nil {
		t.Fatalf("LastCompleted() error: %v", err)
	}
	if got == nil || got.ID != a.ID {
		t.Errorf("LastCompleted() = %+v, want task %d", got, a.ID)
	}
}

func TestCountTitle(t *testing.T) {
	db := newTestDB(t)
	a := mustInsert(t, db, domain.Task{Title: "dup"})
	mustInsert(t, db, domain.Task{Title: "dup"})
	if _, err := db.CompleteTask(domain.Task{ID: a.ID, Version: a.Version}, ""); err != nil {
		t.Fatalf("CompleteTask() error: %v", err)
	}

	n, err := db.CountTitle("dup")
	if err != nil {
		t.Fatalf("CountTitle() error: %v", err)
	}
	if n != 2 {
		t.Errorf("CountTitle() = %d, want 2 (both partitions)", n)
	}
}
