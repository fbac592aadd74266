package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	checkCmd.Flags().BoolVar(&checkUndo, "undo", false, "Untick the criterion instead")
	rootCmd.AddCommand(checkCmd)
}

var checkUndo bool

var checkCmd = &cobra.Command{
	Use:   "check ID POSITION",
	Short: "Tick one acceptance criterion off",
	Args:  cobra.ExactArgs(2),
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}
	position, err := strconv.Atoi(args[1])
	if err != nil || position < 0 {
		return fmt.Errorf("bad criterion position %q", args[1])
	}

	d, err := newDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	t, err := d.Engine.CheckCriterion(id, position, !checkUndo)
	if err != nil {
		return err
	}

	remaining := 0
	for _, c := range t.Criteria {
		if !c.Checked {
			remaining++
		}
	}
	if remaining == 0 {
		fmt.Printf("Task %d: all criteria met\n", t.ID)
	} else {
		fmt.Printf("Task %d: %d criteria remaining\n", t.ID, remaining)
	}
	return nil
}
