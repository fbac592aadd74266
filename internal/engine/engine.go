// Package engine is the backlog orchestration core. It enforces the
// task lifecycle, admits work under the single-active or
// parallel-session rules, ranks eligible tasks, and owns the only code
// paths that mutate task state. External callers — humans or automated
// agents — go through the engine; storage and projections stay dumb.
package engine

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/backlogd/backlogd/internal/domain"
	"github.com/backlogd/backlogd/internal/infra/conflict"
	"github.com/backlogd/backlogd/internal/infra/graph"
	"github.com/backlogd/backlogd/internal/infra/metrics"
	"github.com/backlogd/backlogd/internal/infra/scheduler"
	"github.com/backlogd/backlogd/internal/reconcile"
)

// Config tunes engine policy.
type Config struct {
	// StaleAfter flags tasks that stay InProgress past this age.
	// Observability only — nothing is force-transitioned. 0 disables.
	StaleAfter time.Duration

	// Granularity selects the advisory conflict policy. Strict
	// resource-level intersection is always enforced; module
	// granularity adds coarse-overlap warnings on top.
	Granularity conflict.Granularity
}

// DefaultConfig returns production engine defaults.
func DefaultConfig() Config {
	return Config{
		StaleAfter:  4 * time.Hour,
		Granularity: conflict.GranularityResource,
	}
}

// Engine coordinates every mutation of backlog state. The mutex makes
// the admission decision — dependency check, active-limit/session
// check, conflict check, and the resulting write — a single critical
// section in-process; across processes sharing the database, the
// admission write itself re-asserts the invariant (AdmitTask).
type Engine struct {
	mu     sync.Mutex
	store  domain.Store
	strict *conflict.Detector
	coarse *conflict.Detector // advisory, nil unless module granularity
	config Config
}

// New creates an Engine over the given store.
func New(store domain.Store, cfg Config) *Engine {
	e := &Engine{
		store:  store,
		strict: conflict.New(conflict.GranularityResource),
		config: cfg,
	}
	if cfg.Granularity == conflict.GranularityModule {
		e.coarse = conflict.New(conflict.GranularityModule)
	}
	return e
}

// Detector returns the strict conflict detector, for callers that want
// to preview admissible groupings.
func (e *Engine) Detector() *conflict.Detector { return e.strict }

// ─── Create / Read ──────────────────────────────────────────────────────────

// CreateParams are the caller-supplied fields for a new task.
type CreateParams struct {
	Title     string
	Priority  domain.Priority
	Category  string
	BlockedBy []int64
	Footprint []string
	Criteria  []string
}

// Create adds a task in Pending status and returns it together with
// any soft warnings (duplicate title, blockers that resolve to
// nothing). Warnings never fail the create.
func (e *Engine) Create(p CreateParams) (*domain.Task, []string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p.Title == "" {
		return nil, nil, domain.ErrTitleRequired
	}
	if p.Priority == 0 {
		p.Priority = domain.P3
	}
	if !p.Priority.Valid() {
		return nil, nil, domain.ErrBadPriority
	}

	var warnings []string
	if n, err := e.store.CountTitle(p.Title); err != nil {
		return nil, nil, err
	} else if n > 0 {
		warnings = append(warnings, fmt.Sprintf("title %q already used by %d task(s)", p.Title, n))
	}
	for _, b := range p.BlockedBy {
		if _, err := e.store.GetTask(b); errors.Is(err, domain.ErrNotFound) {
			warnings = append(warnings,
				fmt.Sprintf("blocker %d does not resolve to a task — permanent blocker until fixed", b))
			metrics.IntegrityWarnings.Inc()
		} else if err != nil {
			return nil, nil, err
		}
	}

	criteria := make([]domain.Criterion, len(p.Criteria))
	for i, text := range p.Criteria {
		criteria[i] = domain.Criterion{Text: text}
	}

	id, err := e.store.InsertTask(domain.Task{
		Title:     p.Title,
		Status:    domain.StatusPending,
		Priority:  p.Priority,
		Category:  p.Category,
		BlockedBy: p.BlockedBy,
		Footprint: p.Footprint,
		Criteria:  criteria,
	})
	if err != nil {
		return nil, nil, err
	}
	for _, w := range warnings {
		log.Printf("[engine] WARNING: task %d: %s", id, w)
	}

	t, err := e.store.GetTask(id)
	return t, warnings, err
}

// Get returns a task from either partition.
func (e *Engine) Get(id int64) (*domain.Task, error) {
	return e.store.GetTask(id)
}

// Tasks lists active tasks, optionally filtered by status.
func (e *Engine) Tasks(status domain.Status) ([]domain.Task, error) {
	if status == "" {
		return e.store.ListActive()
	}
	return e.store.ListByStatus(status)
}

// Archive lists archived tasks, most recently completed first.
func (e *Engine) Archive(limit int) ([]domain.Task, error) {
	return e.store.ListArchive(limit)
}

// ─── Dependencies ───────────────────────────────────────────────────────────

// AddBlocker records "taskID is blocked by blockerID" after proving the
// edge closes no cycle. A blocker id that resolves to nothing is
// allowed but surfaced as a data-integrity warning — it acts as a
// permanent blocker until repaired.
func (e *Engine) AddBlocker(taskID, blockerID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.store.GetTask(taskID)
	if err != nil {
		return err
	}
	if !t.Status.Active() {
		return fmt.Errorf("task %d is completed: %w", taskID, domain.ErrInvalidState)
	}
	if t.BlockedByID(blockerID) {
		return nil // edge already present
	}

	snapshot, err := e.store.ListAll()
	if err != nil {
		return err
	}
	g := graph.New(snapshot)
	if g.WouldCycle(taskID, blockerID) {
		return fmt.Errorf("task %d -> blocker %d: %w", taskID, blockerID, domain.ErrCycleDetected)
	}
	if _, err := e.store.GetTask(blockerID); errors.Is(err, domain.ErrNotFound) {
		log.Printf("[engine] WARNING: task %d: blocker %d does not resolve to a task", taskID, blockerID)
		metrics.IntegrityWarnings.Inc()
	} else if err != nil {
		return err
	}

	return e.store.AddBlocker(taskID, blockerID)
}

// Unblocks returns the ids of tasks that would become closer to
// eligible when id completes.
func (e *Engine) Unblocks(id int64) ([]int64, error) {
	snapshot, err := e.store.ListAll()
	if err != nil {
		return nil, err
	}
	return graph.New(snapshot).UnblocksOf(id), nil
}

// ─── Ranking ────────────────────────────────────────────────────────────────

// Next returns all currently eligible Pending tasks, best first. The
// ordering is a strict total order, so unchanged input yields an
// identical sequence on every call.
func (e *Engine) Next() ([]domain.Task, error) {
	snapshot, err := e.store.ListAll()
	if err != nil {
		return nil, err
	}
	g := graph.New(snapshot)

	var candidates []domain.Task
	unblocks := make(map[int64]int)
	for _, t := range snapshot {
		if t.Status != domain.StatusPending {
			continue
		}
		ok, dangling := g.Eligible(t)
		e.warnDangling(t.ID, dangling)
		if !ok {
			continue
		}
		candidates = append(candidates, t)
		unblocks[t.ID] = g.PendingUnblocksCount(t.ID)
	}

	last, err := e.store.LastCompleted()
	if err != nil {
		return nil, err
	}
	in := scheduler.Input{Unblocks: unblocks}
	if last != nil {
		in.LastCategory = last.Category
	}
	return scheduler.Rank(candidates, in), nil
}

// ─── Projections ────────────────────────────────────────────────────────────

// Summary recomputes the derived index view, including stale flags.
func (e *Engine) Summary() (domain.Summary, error) {
	s, err := e.store.Summary()
	if err != nil {
		return s, err
	}
	stale, err := e.Stale()
	if err != nil {
		return s, err
	}
	for _, t := range stale {
		s.Stale = append(s.Stale, t.ID)
	}
	metrics.TasksInProgress.Set(float64(s.InProgress))
	return s, nil
}

// Stale returns InProgress tasks older than the configured threshold.
// Read-only, non-fatal: an observability signal, never a transition.
func (e *Engine) Stale() ([]domain.Task, error) {
	running, err := e.store.ListByStatus(domain.StatusInProgress)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	var stale []domain.Task
	for _, t := range running {
		if t.Stale(e.config.StaleAfter, now) {
			stale = append(stale, t)
		}
	}
	return stale, nil
}

// Reconcile compares a task's recorded criteria against observed
// evidence and returns a recommendation. Read-only: applying the
// recommendation is a separate, explicit call.
func (e *Engine) Reconcile(id int64, evidence reconcile.Evidence) (reconcile.Classification, error) {
	t, err := e.store.GetTask(id)
	if err != nil {
		return "", err
	}
	c := reconcile.Classify(*t, evidence)
	metrics.ReconcileResults.WithLabelValues(string(c)).Inc()
	return c, nil
}

// ─── Progress, Criteria, Ledger ─────────────────────────────────────────────

// Note appends a free-form progress log entry.
func (e *Engine) Note(id int64, note string) error {
	if _, err := e.store.GetTask(id); err != nil {
		return err
	}
	return e.store.AppendProgress(id, note)
}

// CheckCriterion flips the checked state of one acceptance criterion.
func (e *Engine) CheckCriterion(id int64, position int, checked bool) (*domain.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.store.GetTask(id)
	if err != nil {
		return nil, err
	}
	if !t.Status.Active() {
		return nil, fmt.Errorf("task %d is completed: %w", id, domain.ErrInvalidState)
	}
	if err := e.store.SetCriterion(t.ID, t.Version, position, checked); err != nil {
		return nil, err
	}
	return e.store.GetTask(id)
}

// Learn appends a learning ledger entry, optionally tied to a task.
func (e *Engine) Learn(entry domain.LearningEntry) (int64, error) {
	if entry.TaskID != 0 {
		if _, err := e.store.GetTask(entry.TaskID); err != nil {
			return 0, err
		}
	}
	id, err := e.store.AppendLearning(entry)
	if err == nil {
		metrics.LearningsAppended.Inc()
	}
	return id, err
}

// Learnings returns ledger entries for a task, oldest first.
func (e *Engine) Learnings(taskID int64) ([]domain.LearningEntry, error) {
	return e.store.LearningsByTask(taskID)
}

// RecentLearnings returns the newest ledger entries.
func (e *Engine) RecentLearnings(limit int) ([]domain.LearningEntry, error) {
	return e.store.ListLearnings(limit)
}

// warnDangling logs and counts blocker references that resolve to
// nothing. Warn-only: the originating operation proceeds.
func (e *Engine) warnDangling(taskID int64, dangling []int64) {
	for _, b := range dangling {
		log.Printf("[engine] WARNING: task %d: blocker %d does not resolve to a task", taskID, b)
		metrics.IntegrityWarnings.Inc()
	}
}
