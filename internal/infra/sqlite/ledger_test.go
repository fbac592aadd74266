package sqlite

import (
	"errors"
	"testing"

	"github.com/backlogd/backlogd/internal/domain"
)

// ─── Learning Ledger Tests ──────────────────────────────────────────────────

func TestAppendLearning_MonotonicIDs(t *testing.T) {
	db := newTestDB(t)

	first, err := db.AppendLearning(domain.LearningEntry{
		Insight: "WAL mode makes concurrent readers cheap",
	})
	if err != nil {
		t.Fatalf("AppendLearning() error: %v", err)
	}
	second, err := db.AppendLearning(domain.LearningEntry{
		Insight: "retry on version conflict, never overwrite",
	})
	if err != nil {
		t.Fatalf("AppendLearning() error: %v", err)
	}
	if second <= first {
		t.Errorf("ids not monotonic: %d then %d", first, second)
	}
}

func TestLearningsByTask(t *testing.T) {
	db := newTestDB(t)
	task := mustInsert(t, db, domain.Task{Title: "with learnings"})

	db.AppendLearning(domain.LearningEntry{TaskID: task.ID, Insight: "first"})
	db.AppendLearning(domain.LearningEntry{Insight: "general, untied"})
	db.AppendLearning(domain.LearningEntry{TaskID: task.ID, Insight: "second", AppliedAction: "split the migration"})

	entries, err := db.LearningsByTask(task.ID)
	if err != nil {
		t.Fatalf("LearningsByTask() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Insight != "first" || entries[1].Insight != "second" {
		t.Errorf("entries out of order: %+v", entries)
	}
}

func TestListLearnings_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	for _, in := range []string{"a", "b", "c"} {
		db.AppendLearning(domain.LearningEntry{Insight: in})
	}

	entries, err := db.ListLearnings(2)
	if err != nil {
		t.Fatalf("ListLearnings() error: %v", err)
	}
	if len(entries) != 2 || entries[0].Insight != "c" {
		t.Errorf("ListLearnings(2) = %+v, want newest first, limited", entries)
	}
}

// ─── Session Tests ──────────────────────────────────────────────────────────

func TestSessionRoundTrip(t *testing.T) {
	db := newTestDB(t)
	a := mustInsert(t, db, domain.Task{Title: "a"})
	b := mustInsert(t, db, domain.Task{Title: "b"})

	s := domain.Session{ID: "sess-1", TaskIDs: []int64{a.ID, b.ID}}
	if err := db.InsertSession(s); err != nil {
		t.Fatalf("InsertSession() error: %v", err)
	}

	got, err := db.GetSession("sess-1")
	if err != nil {
		t.Fatalf("GetSession() error: %v", err)
	}
	if !got.Open() {
		t.Error("fresh session not open")
	}
	if len(got.TaskIDs) != 2 || !got.Contains(a.ID) || !got.Contains(b.ID) {
		t.Errorf("TaskIDs = %v, want both members", got.TaskIDs)
	}

	if err := db.CloseSession("sess-1"); err != nil {
		t.Fatalf("CloseSession() error: %v", err)
	}
	got, _ = db.GetSession("sess-1")
	if got.Open() {
		t.Error("closed session still open")
	}

	// Closing twice is a no-op.
	if err := db.CloseSession("sess-1"); err != nil {
		t.Errorf("second CloseSession() error: %v", err)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.GetSession("nope")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("GetSession(missing) error = %v, want ErrSessionNotFound", err)
	}
	err = db.CloseSession("nope")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("CloseSession(missing) error = %v, want ErrSessionNotFound", err)
	}
}
