package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	nextCmd.Flags().IntVarP(&nextLimit, "limit", "n", 10, "Maximum candidates to show")
	rootCmd.AddCommand(nextCmd)
}

var nextLimit int

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show eligible tasks, best candidate first",
	RunE:  runNext,
}

func runNext(cmd *cobra.Command, args []string) error {
	d, err := newDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	tasks, err := d.Engine.Next()
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("Nothing is eligible right now.")
		return nil
	}
	if nextLimit > 0 && len(tasks) > nextLimit {
		tasks = tasks[:nextLimit]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRI\tCATEGORY\tUNBLOCKS\tTITLE")
	for _, t := range tasks {
		unblocks, err := d.Engine.Unblocks(t.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n",
			t.ID, t.Priority, t.Category, len(unblocks), t.Title)
	}
	return w.Flush()
}
