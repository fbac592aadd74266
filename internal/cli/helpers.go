package cli

import (
	"fmt"
	"strconv"

	"github.com/backlogd/backlogd/internal/daemon"
	"github.com/backlogd/backlogd/internal/domain"
)

// newDaemon opens the local store and engine for a one-shot command.
func newDaemon() (*daemon.Daemon, error) {
	return daemon.New(rootCmd.Version)
}

// parseTaskID parses a positional task id argument.
func parseTaskID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("bad task id %q", arg)
	}
	return id, nil
}

// parseTaskIDs parses a list of positional task id arguments.
func parseTaskIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := parseTaskID(a)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// statusGlyph renders a one-character status marker for list output.
func statusGlyph(s domain.Status) string {
	switch s {
	case domain.StatusPending:
		return " "
	case domain.StatusInProgress:
		return ">"
	case domain.StatusBlocked:
		return "!"
	case domain.StatusCompleted:
		return "x"
	}
	return "?"
}

// printWarnings echoes soft warnings to the terminal.
func printWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Printf("warning: %s\n", w)
	}
}
