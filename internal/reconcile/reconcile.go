// Package reconcile compares a task's recorded acceptance-criteria
// state against externally supplied evidence (linter results, test
// runs, codebase searches) and classifies the drift. It never mutates
// task state — acting on a classification is the caller's decision.
package reconcile

import "github.com/backlogd/backlogd/internal/domain"

// Classification is the outcome of comparing recorded state to evidence.
type Classification string

const (
	// Consistent — recorded state matches the evidence.
	Consistent Classification = "CONSISTENT"

	// ShouldComplete — every criterion is observed true but the task
	// has not reached Completed.
	ShouldComplete Classification = "SHOULD_COMPLETE"

	// ShouldReopen — the task is Completed but evidence shows a
	// previously-true criterion is now false.
	ShouldReopen Classification = "SHOULD_REOPEN"

	// PartialUpdateNeeded — some recorded checked-states disagree with
	// the evidence, without changing what the status should be.
	PartialUpdateNeeded Classification = "PARTIAL_UPDATE_NEEDED"
)

// Evidence maps criterion text to an observed boolean. The engine
// treats it as opaque; criteria without an entry are taken at their
// recorded value (no observation, no drift).
type Evidence map[string]bool

// Classify compares t's criteria against the evidence.
func Classify(t domain.Task, ev Evidence) Classification {
	mismatches := 0
	allObservedTrue := len(t.Criteria) > 0
	regressed := false

	for _, c := range t.Criteria {
		observed, seen := ev[c.Text]
		if !seen {
			observed = c.Checked
		}
		if observed != c.Checked {
			mismatches++
			if c.Checked && !observed {
				regressed = true
			}
		}
		if !observed {
			allObservedTrue = false
		}
	}

	if t.Status == domain.StatusCompleted {
		if regressed {
			return ShouldReopen
		}
		if mismatches > 0 {
			return PartialUpdateNeeded
		}
		return Consistent
	}

	if allObservedTrue {
		return ShouldComplete
	}
	if mismatches > 0 {
		return PartialUpdateNeeded
	}
	return Consistent
}
