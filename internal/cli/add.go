package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/backlogd/backlogd/internal/domain"
	"github.com/backlogd/backlogd/internal/engine"
)

func init() {
	addCmd.Flags().IntVarP(&addPriority, "priority", "p", 3, "Priority tier 1 (urgent) to 4 (backlog)")
	addCmd.Flags().StringVarP(&addCategory, "category", "c", "", "Free-form category label")
	addCmd.Flags().Int64SliceVarP(&addBlockedBy, "blocked-by", "b", nil, "Task ids that must complete first")
	addCmd.Flags().StringSliceVarP(&addFootprint, "footprint", "f", nil, "Resource identifiers this task will touch")
	addCmd.Flags().StringSliceVarP(&addCriteria, "criterion", "a", nil, "Acceptance criterion (repeatable)")
	rootCmd.AddCommand(addCmd)
}

var (
	addPriority  int
	addCategory  string
	addBlockedBy []int64
	addFootprint []string
	addCriteria  []string
)

var addCmd = &cobra.Command{
	Use:   "add TITLE",
	Short: "Add a task to the backlog",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	d, err := newDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	task, warnings, err := d.Engine.Create(engine.CreateParams{
		Title:     args[0],
		Priority:  domain.Priority(addPriority),
		Category:  addCategory,
		BlockedBy: addBlockedBy,
		Footprint: addFootprint,
		Criteria:  addCriteria,
	})
	if err != nil {
		return err
	}

	printWarnings(warnings)
	fmt.Printf("Added task %d: %s\n", task.ID, task.Title)
	return nil
}
