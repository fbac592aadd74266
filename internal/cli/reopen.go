package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(reopenCmd)
}

var reopenCmd = &cobra.Command{
	Use:   "reopen ID REASON",
	Short: "Move a completed task back to pending (audited)",
	Args:  cobra.ExactArgs(2),
	RunE:  runReopen,
}

func runReopen(cmd *cobra.Command, args []string) error {
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}

	d, err := newDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	t, err := d.Engine.Reopen(id, args[1])
	if err != nil {
		return err
	}
	fmt.Printf("Reopened task %d: %s\n", t.ID, t.Title)
	return nil
}
