package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/backlogd/backlogd/internal/domain"
)

func init() {
	listCmd.Flags().StringVarP(&listStatus, "status", "s", "", "Filter by status (PENDING, IN_PROGRESS, BLOCKED)")
	listCmd.Flags().BoolVar(&listArchive, "archive", false, "List completed tasks instead")
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "Maximum archived tasks to list")
	rootCmd.AddCommand(listCmd)
}

var (
	listStatus  string
	listArchive bool
	listLimit   int
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List backlog tasks",
	RunE:    runList,
}

func runList(cmd *cobra.Command, args []string) error {
	d, err := newDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	var tasks []domain.Task
	if listArchive {
		tasks, err = d.Engine.Archive(listLimit)
	} else {
		status := domain.Status(strings.ToUpper(listStatus))
		if status != "" && !status.Valid() {
			return fmt.Errorf("unknown status %q", listStatus)
		}
		tasks, err = d.Engine.Tasks(status)
	}
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		fmt.Println("Backlog is empty. Run 'backlogd add <title>' to get started.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, " \tID\tPRI\tSTATUS\tCATEGORY\tTITLE")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
			statusGlyph(t.Status),
			t.ID,
			t.Priority,
			t.Status,
			t.Category,
			t.Title,
		)
	}
	return w.Flush()
}
