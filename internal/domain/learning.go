package domain

import "time"

// LearningEntry is one append-only line in the learning ledger. Entries
// are never edited or deleted. TaskID 0 means the entry is general and
// not tied to a task.
type LearningEntry struct {
	ID            int64     `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	TaskID        int64     `json:"task_id,omitempty"`
	Context       string    `json:"context,omitempty"`
	Insight       string    `json:"insight"`
	AppliedAction string    `json:"applied_action,omitempty"`
}
