package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(noteCmd)
}

var noteCmd = &cobra.Command{
	Use:   "note ID TEXT",
	Short: "Append a progress note to a task",
	Args:  cobra.ExactArgs(2),
	RunE:  runNote,
}

func runNote(cmd *cobra.Command, args []string) error {
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}

	d, err := newDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Engine.Note(id, args[1]); err != nil {
		return err
	}
	fmt.Printf("Noted on task %d\n", id)
	return nil
}
