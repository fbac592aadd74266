package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/backlogd/backlogd/internal/domain"
	"github.com/backlogd/backlogd/internal/engine"
)

func init() {
	resumeCmd.Flags().StringVarP(&resumeNote, "note", "m", "", "Progress note to record with the transition")
	rootCmd.AddCommand(resumeCmd)
}

var resumeNote string

var resumeCmd = &cobra.Command{
	Use:   "resume ID",
	Short: "Return a blocked task to pending",
	Args:  cobra.ExactArgs(1),
	RunE:  runResume,
}

func runResume(cmd *cobra.Command, args []string) error {
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}

	d, err := newDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	t, err := d.Engine.Transition(id, domain.StatusPending, engine.TransitionContext{Note: resumeNote})
	if err != nil {
		return err
	}
	fmt.Printf("Task %d back in the queue: %s\n", t.ID, t.Title)
	return nil
}
