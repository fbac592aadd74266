package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/backlogd/backlogd/internal/domain"
	"github.com/backlogd/backlogd/internal/engine"
)

func init() {
	blockCmd.Flags().StringVarP(&blockNote, "note", "m", "", "What the task is waiting on")
	blockCmd.Flags().Int64Var(&blockOn, "on", 0, "Record a dependency on another task instead of pausing")
	rootCmd.AddCommand(blockCmd)
}

var (
	blockNote string
	blockOn   int64
)

var blockCmd = &cobra.Command{
	Use:   "block ID",
	Short: "Pause a task, or record a dependency with --on",
	Args:  cobra.ExactArgs(1),
	RunE:  runBlock,
}

func runBlock(cmd *cobra.Command, args []string) error {
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}

	d, err := newDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	// --on adds a dependency edge without touching the status.
	if blockOn != 0 {
		if err := d.Engine.AddBlocker(id, blockOn); err != nil {
			return err
		}
		fmt.Printf("Task %d now blocked by task %d\n", id, blockOn)
		return nil
	}

	t, err := d.Engine.Transition(id, domain.StatusBlocked, engine.TransitionContext{Note: blockNote})
	if err != nil {
		return err
	}
	fmt.Printf("Blocked task %d: %s\n", t.ID, t.Title)
	return nil
}
