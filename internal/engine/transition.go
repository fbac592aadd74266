package engine

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/backlogd/backlogd/internal/domain"
	"github.com/backlogd/backlogd/internal/infra/graph"
	"github.com/backlogd/backlogd/internal/infra/metrics"
)

// TransitionContext carries the caller's intent alongside a transition.
type TransitionContext struct {
	// Note is appended to the progress log with the transition.
	Note string

	// Override forces completion past unchecked acceptance criteria.
	// The override is always recorded in the progress log.
	Override bool

	// SessionID, when set, admits the task under a parallel session
	// instead of the single-active rule.
	SessionID string
}

// Transition drives a task along one legal lifecycle edge. The whole
// decision — legality, dependency eligibility, active-limit or session
// membership, resource conflicts — and the resulting write happen
// inside one critical section, so two callers can never both observe
// eligibility and both commit.
func (e *Engine) Transition(id int64, target domain.Status, tc TransitionContext) (*domain.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.store.GetTask(id)
	if err != nil {
		return nil, err
	}
	if !target.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", target, domain.ErrIllegalTransition)
	}
	if !domain.CanTransition(t.Status, target) {
		return nil, fmt.Errorf("%s -> %s: %w", t.Status, target, domain.ErrIllegalTransition)
	}

	var updated *domain.Task
	switch target {
	case domain.StatusInProgress:
		updated, err = e.admit(t, tc)
	case domain.StatusCompleted:
		updated, err = e.complete(t, tc)
	case domain.StatusBlocked:
		t.Status = domain.StatusBlocked
		t.SessionID = ""
		updated, err = e.store.UpdateTask(*t, noteOr(tc.Note, "blocked"))
	case domain.StatusPending:
		t.Status = domain.StatusPending
		updated, err = e.store.UpdateTask(*t, noteOr(tc.Note, "back to pending"))
	}
	if err != nil {
		return nil, err
	}
	metrics.Transitions.WithLabelValues(string(target)).Inc()
	return updated, nil
}

// admit is the Pending -> InProgress decision: dependency check,
// single-active or session check, conflict check, then an admission
// write that re-asserts the invariant as the final test-and-set.
func (e *Engine) admit(t *domain.Task, tc TransitionContext) (*domain.Task, error) {
	snapshot, err := e.store.ListAll()
	if err != nil {
		return nil, err
	}
	g := graph.New(snapshot)

	ok, dangling := g.Eligible(*t)
	e.warnDangling(t.ID, dangling)
	if !ok {
		metrics.AdmissionsRejected.WithLabelValues("dependency").Inc()
		return nil, fmt.Errorf("task %d: %w", t.ID, domain.ErrDependencyUnmet)
	}

	var running []domain.Task
	for _, s := range snapshot {
		if s.Status == domain.StatusInProgress {
			running = append(running, s)
		}
	}

	if tc.SessionID == "" {
		if len(running) > 0 {
			metrics.AdmissionsRejected.WithLabelValues("active_limit").Inc()
			return nil, fmt.Errorf("task %d already in progress: %w",
				running[0].ID, domain.ErrActiveLimitExceeded)
		}
	} else {
		sess, err := e.store.GetSession(tc.SessionID)
		if err != nil {
			return nil, err
		}
		if !sess.Open() {
			return nil, domain.ErrSessionClosed
		}
		if !sess.Contains(t.ID) {
			return nil, fmt.Errorf("task %d, session %s: %w", t.ID, sess.ID, domain.ErrNotInSession)
		}
		if other, clash := e.strict.ConflictsWithAny(*t, running); clash {
			metrics.AdmissionsRejected.WithLabelValues("resource").Inc()
			return nil, fmt.Errorf("footprint overlaps task %d: %w", other, domain.ErrResourceConflict)
		}
		if e.coarse != nil {
			if other, clash := e.coarse.ConflictsWithAny(*t, running); clash {
				log.Printf("[engine] WARNING: task %d shares a module with in-progress task %d (advisory)", t.ID, other)
			}
		}
	}

	t.Status = domain.StatusInProgress
	t.SessionID = tc.SessionID
	if t.StartedAt.IsZero() {
		t.StartedAt = time.Now()
	}
	// The store re-asserts the invariant inside the write: another
	// process over the same database cannot slip in between the checks
	// above and this commit.
	updated, err := e.store.AdmitTask(*t, noteOr(tc.Note, "started"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrActiveLimitExceeded):
			metrics.AdmissionsRejected.WithLabelValues("active_limit").Inc()
		case errors.Is(err, domain.ErrResourceConflict):
			metrics.AdmissionsRejected.WithLabelValues("resource").Inc()
		}
		return nil, err
	}
	return updated, nil
}

// complete gates on acceptance criteria, then performs the atomic
// partition move.
func (e *Engine) complete(t *domain.Task, tc TransitionContext) (*domain.Task, error) {
	note := noteOr(tc.Note, "completed")
	if !t.CriteriaDone() {
		if !tc.Override {
			return nil, fmt.Errorf("task %d: %w", t.ID, domain.ErrCriteriaIncomplete)
		}
		note = "completed with override (criteria incomplete): " + noteOr(tc.Note, "no reason given")
	}
	return e.store.CompleteTask(*t, note)
}

// Reopen moves a completed task back to Pending. Not a lifecycle
// transition: it is a distinct, audited operation, and the reason is
// always recorded in the progress log.
func (e *Engine) Reopen(id int64, reason string) (*domain.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if reason == "" {
		return nil, fmt.Errorf("reopen requires a reason")
	}
	t, err := e.store.ReopenTask(id, reason)
	if err != nil {
		return nil, err
	}
	log.Printf("[engine] task %d reopened: %s", id, reason)
	return t, nil
}

// Fail reverts one InProgress task to Blocked with a failure note.
// Inside a parallel session this isolates the failure: the other
// constituents keep running untouched.
func (e *Engine) Fail(id int64, reason string) (*domain.Task, error) {
	return e.Transition(id, domain.StatusBlocked, TransitionContext{
		Note: "failed: " + noteOr(reason, "unspecified"),
	})
}

func noteOr(note, fallback string) string {
	if note == "" {
		return fallback
	}
	return note
}
