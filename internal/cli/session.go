package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	sessionCmd.AddCommand(sessionPlanCmd)
	sessionCmd.AddCommand(sessionOpenCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionCloseCmd)
	sessionCmd.AddCommand(sessionFailCmd)
	rootCmd.AddCommand(sessionCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage parallel work sessions",
}

var sessionPlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Partition the eligible tasks into admissible parallel groups",
	RunE:  runSessionPlan,
}

func runSessionPlan(cmd *cobra.Command, args []string) error {
	d, err := newDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	eligible, err := d.Engine.Next()
	if err != nil {
		return err
	}
	if len(eligible) == 0 {
		fmt.Println("Nothing is eligible right now.")
		return nil
	}

	groups := d.Engine.Detector().Partition(eligible)
	for i, group := range groups {
		fmt.Printf("Group %d:\n", i+1)
		for _, t := range group {
			fmt.Printf("  %d [%s] %s\n", t.ID, t.Priority, t.Title)
		}
	}
	fmt.Println("Each group has pairwise disjoint footprints; open one with 'backlogd session open <ids>'.")
	return nil
}

var sessionOpenCmd = &cobra.Command{
	Use:   "open ID...",
	Short: "Open a session over a fixed set of tasks",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSessionOpen,
}

func runSessionOpen(cmd *cobra.Command, args []string) error {
	ids, err := parseTaskIDs(args)
	if err != nil {
		return err
	}

	d, err := newDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	s, warnings, err := d.Engine.OpenSession(ids)
	if err != nil {
		return err
	}
	printWarnings(warnings)
	fmt.Printf("Opened session %s over tasks %s\n", s.ID, joinIDs(s.TaskIDs))
	fmt.Printf("Admit members with 'backlogd start <id> --session %s'\n", s.ID)
	return nil
}

var sessionShowCmd = &cobra.Command{
	Use:   "show SESSION",
	Short: "Show a session's members and their states",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionShow,
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	d, err := newDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	s, err := d.Engine.Session(args[0])
	if err != nil {
		return err
	}

	state := "open"
	if !s.Open() {
		state = "closed " + s.ClosedAt.Format("2006-01-02 15:04")
	}
	fmt.Printf("Session %s (%s), opened %s\n", s.ID, state, s.OpenedAt.Format("2006-01-02 15:04"))
	for _, id := range s.TaskIDs {
		t, err := d.Engine.Get(id)
		if err != nil {
			fmt.Printf("  %d: %v\n", id, err)
			continue
		}
		fmt.Printf("  %d [%s] %s\n", t.ID, t.Status, t.Title)
	}
	return nil
}

var sessionCloseCmd = &cobra.Command{
	Use:   "close SESSION",
	Short: "Close a session once no member is still in progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionClose,
}

func runSessionClose(cmd *cobra.Command, args []string) error {
	d, err := newDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Engine.CloseSession(args[0]); err != nil {
		return err
	}
	fmt.Printf("Closed session %s\n", args[0])
	return nil
}

var sessionFailCmd = &cobra.Command{
	Use:   "fail ID REASON",
	Short: "Mark one in-progress task as failed without touching its siblings",
	Args:  cobra.ExactArgs(2),
	RunE:  runSessionFail,
}

func runSessionFail(cmd *cobra.Command, args []string) error {
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}

	d, err := newDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	t, err := d.Engine.Fail(id, args[1])
	if err != nil {
		return err
	}
	fmt.Printf("Task %d failed and is now %s\n", t.ID, t.Status)
	return nil
}
