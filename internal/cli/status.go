package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the backlog summary",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	d, err := newDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	s, err := d.Engine.Summary()
	if err != nil {
		return err
	}

	fmt.Printf("%d tasks: %d pending, %d in progress, %d blocked, %d completed\n",
		s.Total(), s.Pending, s.InProgress, s.Blocked, s.Completed)

	for _, id := range s.Active {
		t, err := d.Engine.Get(id)
		if err != nil {
			return err
		}
		fmt.Printf("  active: %d %s\n", t.ID, t.Title)
	}
	for _, id := range s.Stale {
		fmt.Printf("  stale:  %d has been in progress past the configured threshold\n", id)
	}
	return nil
}
