package domain

import "time"

// Session is an explicit, caller-declared scope that permits a fixed set
// of tasks to run concurrently, provided their resource footprints are
// pairwise disjoint. Outside a session the engine enforces the
// single-active-task constraint. Sessions never time out implicitly.
type Session struct {
	ID       string    `json:"id"`
	OpenedAt time.Time `json:"opened_at"`
	ClosedAt time.Time `json:"closed_at,omitempty"`
	TaskIDs  []int64   `json:"task_ids"`
}

// Open reports whether the session is still accepting admissions.
func (s *Session) Open() bool { return s.ClosedAt.IsZero() }

// Contains reports whether id is one of the session's declared tasks.
func (s *Session) Contains(id int64) bool {
	for _, t := range s.TaskIDs {
		if t == id {
			return true
		}
	}
	return false
}
