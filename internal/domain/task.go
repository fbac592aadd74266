// Package domain defines the backlog entities and the rules that travel
// with them: tasks, lifecycle statuses, acceptance criteria, parallel
// sessions, and learning entries.
package domain

import "time"

// Status tracks the task lifecycle.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusBlocked    Status = "BLOCKED"
	StatusCompleted  Status = "COMPLETED"
)

// Active reports whether the status belongs to the active partition.
// Completed tasks live in the archive.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusInProgress || s == StatusBlocked
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusBlocked, StatusCompleted:
		return true
	default:
		return false
	}
}

// CanTransition reports whether from -> to is a legal lifecycle edge.
// Completed is terminal; reopening a completed task is a separate
// audited operation, not a transition.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusInProgress || to == StatusBlocked
	case StatusInProgress:
		return to == StatusBlocked || to == StatusCompleted
	case StatusBlocked:
		return to == StatusPending
	default:
		return false
	}
}

// Priority is the ordered task tier. P1 ranks before P4.
type Priority int

const (
	P1 Priority = 1 // top of the backlog
	P2 Priority = 2
	P3 Priority = 3
	P4 Priority = 4 // best-effort
)

// Valid reports whether p is within the P1..P4 range.
func (p Priority) Valid() bool { return p >= P1 && p <= P4 }

// String returns the tier label ("P1".."P4").
func (p Priority) String() string {
	switch p {
	case P1:
		return "P1"
	case P2:
		return "P2"
	case P3:
		return "P3"
	case P4:
		return "P4"
	default:
		return "P?"
	}
}

// ParsePriority parses a tier label such as "P2".
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "P1", "p1", "1":
		return P1, nil
	case "P2", "p2", "2":
		return P2, nil
	case "P3", "p3", "3":
		return P3, nil
	case "P4", "p4", "4":
		return P4, nil
	default:
		return 0, ErrBadPriority
	}
}

// Criterion is a single acceptance criterion on a task.
type Criterion struct {
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
}

// ProgressEntry is one append-only progress log line.
type ProgressEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note"`
}

// Task is a unit of backlog work. IDs are assigned monotonically by the
// store and never reused. Version is the optimistic-concurrency token:
// every committed mutation increments it, and writers must present the
// version they last read.
type Task struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Status      Status          `json:"status"`
	Priority    Priority        `json:"priority"`
	Category    string          `json:"category,omitempty"`
	BlockedBy   []int64         `json:"blocked_by,omitempty"`
	Footprint   []string        `json:"footprint,omitempty"`
	Criteria    []Criterion     `json:"criteria,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   time.Time       `json:"started_at,omitempty"`
	CompletedAt time.Time       `json:"completed_at,omitempty"`
	Version     int64           `json:"version"`
	SessionID   string          `json:"session_id,omitempty"`
	Progress    []ProgressEntry `json:"progress,omitempty"`
}

// CriteriaDone reports whether every acceptance criterion is checked.
// True for tasks with no criteria.
func (t *Task) CriteriaDone() bool {
	for _, c := range t.Criteria {
		if !c.Checked {
			return false
		}
	}
	return true
}

// Stale reports whether the task has been InProgress longer than the
// given threshold. An observability flag, never a forced transition.
// A threshold of 0 disables the check.
func (t *Task) Stale(threshold time.Duration, now time.Time) bool {
	if threshold <= 0 || t.Status != StatusInProgress || t.StartedAt.IsZero() {
		return false
	}
	return now.Sub(t.StartedAt) > threshold
}

// BlockedByID reports whether blocker appears in the task's blocker set.
func (t *Task) BlockedByID(blocker int64) bool {
	for _, b := range t.BlockedBy {
		if b == blocker {
			return true
		}
	}
	return false
}
