package domain

// ─── Store Interfaces ───────────────────────────────────────────────────────
// These interfaces define the boundary between the engine and storage.
// Infrastructure implements them; the engine and API depend on them, so
// any backend that can hold plain structured records (flat files, an
// embedded database, a relational store) can stand in.

// TaskStore is the durable task record store. All mutating methods that
// take a Task use its Version field as the optimistic-concurrency
// precondition: if the stored version differs, the write fails with
// ErrConflict and nothing is changed.
type TaskStore interface {
	// InsertTask persists a new task and returns its fresh id.
	InsertTask(t Task) (int64, error)

	// GetTask returns a task from either partition, or ErrNotFound.
	GetTask(id int64) (*Task, error)

	// ListActive returns every task in the active partition, ordered by id.
	ListActive() ([]Task, error)

	// ListArchive returns archived tasks, most recently completed first.
	// limit <= 0 means no limit.
	ListArchive(limit int) ([]Task, error)

	// ListAll returns both partitions, ordered by id.
	ListAll() ([]Task, error)

	// ListByStatus filters on status. Completed reads the archive.
	ListByStatus(status Status) ([]Task, error)

	// UpdateTask writes t's scalar fields (status, priority, category,
	// session, timestamps, title) and appends note to the progress log
	// when non-empty, atomically. Returns the refreshed task.
	UpdateTask(t Task, note string) (*Task, error)

	// AdmitTask transitions t to InProgress, re-asserting the admission
	// invariant inside the write itself so concurrent processes sharing
	// the store cannot both admit. Without a session it fails with
	// ErrActiveLimitExceeded if any other task is in progress; with one
	// it fails with ErrResourceConflict if an in-progress task shares a
	// footprint resource with t.
	AdmitTask(t Task, note string) (*Task, error)

	// CompleteTask atomically marks t Completed and moves it from the
	// active partition to the archive. The task is never observable in
	// both partitions or neither.
	CompleteTask(t Task, note string) (*Task, error)

	// ReopenTask moves an archived task back to the active partition in
	// Pending status, clearing completed_at and recording reason in the
	// progress log.
	ReopenTask(id int64, reason string) (*Task, error)

	// AddBlocker persists a blocking edge. Cycle checking is the
	// engine's responsibility before calling this.
	AddBlocker(taskID, blockerID int64) error

	// SetCriterion flips the checked state of one acceptance criterion,
	// version-checked against the owning task.
	SetCriterion(id, version int64, position int, checked bool) error

	// AppendProgress appends a progress log entry without touching the
	// task row.
	AppendProgress(taskID int64, note string) error

	// LastCompleted returns the most recently archived task, or nil.
	LastCompleted() (*Task, error)

	// Summary recomputes the derived index view by live aggregation.
	Summary() (Summary, error)

	// CountTitle returns how many tasks (either partition) share title.
	CountTitle(title string) (int, error)
}

// SessionStore persists parallel-session declarations.
type SessionStore interface {
	InsertSession(s Session) error
	GetSession(id string) (*Session, error)
	CloseSession(id string) error
}

// LearningStore is the append-only learning ledger. No update or delete.
type LearningStore interface {
	AppendLearning(e LearningEntry) (int64, error)
	LearningsByTask(taskID int64) ([]LearningEntry, error)
	ListLearnings(limit int) ([]LearningEntry, error)
}

// Store is the full persistence surface the engine is wired against.
type Store interface {
	TaskStore
	SessionStore
	LearningStore
}
