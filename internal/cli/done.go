package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/backlogd/backlogd/internal/domain"
	"github.com/backlogd/backlogd/internal/engine"
)

func init() {
	doneCmd.Flags().StringVarP(&doneNote, "note", "m", "", "Progress note to record with the completion")
	doneCmd.Flags().BoolVar(&doneForce, "force", false, "Complete despite unchecked acceptance criteria (recorded)")
	rootCmd.AddCommand(doneCmd)
}

var (
	doneNote  string
	doneForce bool
)

var doneCmd = &cobra.Command{
	Use:   "done ID",
	Short: "Complete an in-progress task and archive it",
	Args:  cobra.ExactArgs(1),
	RunE:  runDone,
}

func runDone(cmd *cobra.Command, args []string) error {
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}

	d, err := newDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	t, err := d.Engine.Transition(id, domain.StatusCompleted, engine.TransitionContext{
		Note:     doneNote,
		Override: doneForce,
	})
	if errors.Is(err, domain.ErrCriteriaIncomplete) {
		return fmt.Errorf("%w (use 'backlogd check' to tick criteria, or --force to override)", err)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Completed task %d: %s\n", t.ID, t.Title)
	return nil
}
