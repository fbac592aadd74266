// Package health provides periodic integrity checks over the backlog
// store. Failures are reported, never auto-fixed: a dangling blocker or
// an orphaned session reference is a warning for the operator, not a
// reason to mutate task state.
package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/backlogd/backlogd/internal/domain"
	"github.com/backlogd/backlogd/internal/infra/metrics"
	"github.com/backlogd/backlogd/internal/infra/sqlite"
)

// Check defines a single integrity check.
type Check struct {
	Name    string
	CheckFn func(ctx context.Context) error
}

// Status represents the result of an integrity check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker runs periodic integrity checks.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
}

// NewChecker creates a checker with the standard backlog checks.
func NewChecker(db *sqlite.DB) *Checker {
	return &Checker{
		interval: 60 * time.Second,
		checks: []Check{
			{
				Name: "sqlite",
				CheckFn: func(ctx context.Context) error {
					return db.Ping()
				},
			},
			{
				Name: "dangling_blockers",
				CheckFn: func(ctx context.Context) error {
					return checkDanglingBlockers(db)
				},
			},
			{
				Name: "session_references",
				CheckFn: func(ctx context.Context) error {
					return checkSessionReferences(db)
				},
			},
		},
	}
}

// Run starts the check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	// Run immediately on start
	c.runAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runAll(ctx)
		}
	}
}

func (c *Checker) runAll(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{
			Name:      check.Name,
			CheckedAt: time.Now(),
		}
		if err := check.CheckFn(ctx); err != nil {
			s.Healthy = false
			s.Error = err.Error()
			metrics.IntegrityWarnings.Inc()
		} else {
			s.Healthy = true
		}
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all checks pass.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

// ─── Check Implementations ──────────────────────────────────────────────────

// checkDanglingBlockers flags blocker ids that resolve to no task in
// either partition. Such edges act as permanent blockers.
func checkDanglingBlockers(store domain.Store) error {
	tasks, err := store.ListAll()
	if err != nil {
		return err
	}
	known := make(map[int64]bool, len(tasks))
	for _, t := range tasks {
		known[t.ID] = true
	}

	var dangling int
	for _, t := range tasks {
		for _, b := range t.BlockedBy {
			if !known[b] {
				dangling++
			}
		}
	}
	if dangling > 0 {
		return fmt.Errorf("%d blocker reference(s) resolve to no task", dangling)
	}
	return nil
}

// checkSessionReferences flags in-progress tasks whose session id
// points at a closed or missing session.
func checkSessionReferences(store domain.Store) error {
	tasks, err := store.ListByStatus(domain.StatusInProgress)
	if err != nil {
		return err
	}

	var broken int
	for _, t := range tasks {
		if t.SessionID == "" {
			continue
		}
		s, err := store.GetSession(t.SessionID)
		if errors.Is(err, domain.ErrSessionNotFound) {
			broken++
			continue
		}
		if err != nil {
			return err
		}
		if !s.Open() {
			broken++
		}
	}
	if broken > 0 {
		return fmt.Errorf("%d in-progress task(s) reference a closed or missing session", broken)
	}
	return nil
}
