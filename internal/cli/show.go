package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one task in full, including its progress log",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}

	d, err := newDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	t, err := d.Engine.Get(id)
	if err != nil {
		return err
	}

	fmt.Printf("Task %d: %s\n", t.ID, t.Title)
	fmt.Printf("  Status:    %s\n", t.Status)
	fmt.Printf("  Priority:  %s\n", t.Priority)
	if t.Category != "" {
		fmt.Printf("  Category:  %s\n", t.Category)
	}
	fmt.Printf("  Created:   %s\n", t.CreatedAt.Format("2006-01-02 15:04"))
	if !t.StartedAt.IsZero() {
		fmt.Printf("  Started:   %s\n", t.StartedAt.Format("2006-01-02 15:04"))
	}
	if !t.CompletedAt.IsZero() {
		fmt.Printf("  Completed: %s\n", t.CompletedAt.Format("2006-01-02 15:04"))
	}
	if t.SessionID != "" {
		fmt.Printf("  Session:   %s\n", t.SessionID)
	}
	if len(t.BlockedBy) != 0 {
		fmt.Printf("  Blocked by: %s\n", joinIDs(t.BlockedBy))
	}
	if len(t.Footprint) != 0 {
		fmt.Printf("  Footprint: %s\n", strings.Join(t.Footprint, ", "))
	}

	if len(t.Criteria) != 0 {
		fmt.Println("  Criteria:")
		for i, c := range t.Criteria {
			mark := " "
			if c.Checked {
				mark = "x"
			}
			fmt.Printf("    %d. [%s] %s\n", i, mark, c.Text)
		}
	}

	unblocks, err := d.Engine.Unblocks(id)
	if err != nil {
		return err
	}
	if len(unblocks) != 0 {
		fmt.Printf("  Unblocks:  %s\n", joinIDs(unblocks))
	}

	if len(t.Progress) != 0 {
		fmt.Println("  Progress:")
		for _, p := range t.Progress {
			fmt.Printf("    %s  %s\n", p.Timestamp.Format("2006-01-02 15:04"), p.Note)
		}
	}
	return nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}
