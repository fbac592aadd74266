package engine

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/backlogd/backlogd/internal/domain"
)

// ─── Parallel Sessions ──────────────────────────────────────────────────────

// OpenSession declares a fixed set of tasks intended to run
// concurrently. Membership is validated; footprint disjointness is not
// a precondition — conflicting members are simply refused later, at
// admission. A non-admissible declaration is surfaced as a warning.
func (e *Engine) OpenSession(taskIDs []int64) (*domain.Session, []string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(taskIDs) == 0 {
		return nil, nil, fmt.Errorf("a session needs at least one task")
	}

	members := make([]domain.Task, 0, len(taskIDs))
	for _, id := range taskIDs {
		t, err := e.store.GetTask(id)
		if err != nil {
			return nil, nil, fmt.Errorf("session member %d: %w", id, err)
		}
		if !t.Status.Active() {
			return nil, nil, fmt.Errorf("session member %d is completed: %w", id, domain.ErrInvalidState)
		}
		members = append(members, *t)
	}

	var warnings []string
	if !e.strict.Admissible(members) {
		w := "declared set is not pairwise disjoint — conflicting members will be refused at admission"
		warnings = append(warnings, w)
		log.Printf("[engine] WARNING: session: %s", w)
	}

	s := domain.Session{
		ID:      uuid.New().String(),
		TaskIDs: taskIDs,
	}
	if err := e.store.InsertSession(s); err != nil {
		return nil, nil, err
	}
	return e.session(s.ID, warnings)
}

func (e *Engine) session(id string, warnings []string) (*domain.Session, []string, error) {
	s, err := e.store.GetSession(id)
	return s, warnings, err
}

// Session returns a session by id.
func (e *Engine) Session(id string) (*domain.Session, error) {
	return e.store.GetSession(id)
}

// CloseSession ends a session. Members still InProgress must be
// completed or failed first; sessions never time out implicitly.
func (e *Engine) CloseSession(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.store.GetSession(id)
	if err != nil {
		return err
	}
	if !s.Open() {
		return nil // closing twice is a no-op
	}
	for _, taskID := range s.TaskIDs {
		t, err := e.store.GetTask(taskID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if t.Status == domain.StatusInProgress {
			return fmt.Errorf("task %d still in progress: %w", taskID, domain.ErrSessionBusy)
		}
	}
	return e.store.CloseSession(id)
}
