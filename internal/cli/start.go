package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/backlogd/backlogd/internal/domain"
	"github.com/backlogd/backlogd/internal/engine"
)

func init() {
	startCmd.Flags().StringVarP(&startNote, "note", "m", "", "Progress note to record with the transition")
	startCmd.Flags().StringVar(&startSession, "session", "", "Session id to admit the task under")
	rootCmd.AddCommand(startCmd)
}

var (
	startNote    string
	startSession string
)

var startCmd = &cobra.Command{
	Use:   "start ID",
	Short: "Move a pending task to in progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}

	d, err := newDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	t, err := d.Engine.Transition(id, domain.StatusInProgress, engine.TransitionContext{
		Note:      startNote,
		SessionID: startSession,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Started task %d: %s\n", t.ID, t.Title)
	return nil
}
