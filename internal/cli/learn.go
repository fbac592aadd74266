package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/backlogd/backlogd/internal/domain"
)

func init() {
	learnCmd.Flags().Int64VarP(&learnTask, "task", "t", 0, "Task id this insight came from")
	learnCmd.Flags().StringVar(&learnContext, "context", "", "What was happening when the insight surfaced")
	learnCmd.Flags().StringVar(&learnAction, "action", "", "What was changed in response")
	learnCmd.Flags().IntVarP(&learnLimit, "limit", "n", 20, "How many entries to list")
	rootCmd.AddCommand(learnCmd)
}

var (
	learnTask    int64
	learnContext string
	learnAction  string
	learnLimit   int
)

var learnCmd = &cobra.Command{
	Use:   "learn [INSIGHT]",
	Short: "Append to the learning ledger, or list it with no argument",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLearn,
}

func runLearn(cmd *cobra.Command, args []string) error {
	d, err := newDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	// No argument: list the ledger.
	if len(args) == 0 {
		var entries []domain.LearningEntry
		if learnTask != 0 {
			entries, err = d.Engine.Learnings(learnTask)
		} else {
			entries, err = d.Engine.RecentLearnings(learnLimit)
		}
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("The ledger is empty.")
			return nil
		}
		for _, e := range entries {
			ref := ""
			if e.TaskID != 0 {
				ref = fmt.Sprintf(" (task %d)", e.TaskID)
			}
			fmt.Printf("%s%s  %s\n", e.CreatedAt.Format("2006-01-02 15:04"), ref, e.Insight)
			if e.Context != "" {
				fmt.Printf("    context: %s\n", e.Context)
			}
			if e.AppliedAction != "" {
				fmt.Printf("    applied: %s\n", e.AppliedAction)
			}
		}
		return nil
	}

	id, err := d.Engine.Learn(domain.LearningEntry{
		TaskID:        learnTask,
		Context:       learnContext,
		Insight:       args[0],
		AppliedAction: learnAction,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Recorded learning %d\n", id)
	return nil
}
