package domain

// Summary is the derived index view: per-status counts plus the ids of
// the currently in-progress task(s). It is always recomputed by a live
// aggregation over the store and is never an independent source of
// truth — renderers must treat it as read-only.
type Summary struct {
	Pending    int     `json:"pending"`
	InProgress int     `json:"in_progress"`
	Blocked    int     `json:"blocked"`
	Completed  int     `json:"completed"`
	Active     []int64 `json:"active,omitempty"`
	Stale      []int64 `json:"stale,omitempty"`
}

// Total returns the number of tasks across both partitions.
func (s Summary) Total() int {
	return s.Pending + s.InProgress + s.Blocked + s.Completed
}
