package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/backlogd/backlogd/internal/reconcile"
)

func init() {
	reconcileCmd.Flags().StringVarP(&reconcileFile, "evidence", "e", "", "JSON file mapping criterion text to observed state ('-' for stdin)")
	rootCmd.AddCommand(reconcileCmd)
}

var reconcileFile string

var reconcileCmd = &cobra.Command{
	Use:   "reconcile ID",
	Short: "Compare a task's recorded criteria against observed evidence",
	Long: `Reconcile reads observed evidence — a JSON object mapping criterion text
to true/false — and reports whether the task's recorded state still
matches reality. It only recommends; nothing is changed.`,
	Args: cobra.ExactArgs(1),
	RunE: runReconcile,
}

func runReconcile(cmd *cobra.Command, args []string) error {
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}

	evidence, err := readEvidence(reconcileFile)
	if err != nil {
		return err
	}

	d, err := newDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	c, err := d.Engine.Reconcile(id, evidence)
	if err != nil {
		return err
	}

	fmt.Printf("Task %d: %s\n", id, c)
	switch c {
	case reconcile.ShouldComplete:
		fmt.Printf("  All criteria are observed met. Apply with 'backlogd done %d'.\n", id)
	case reconcile.ShouldReopen:
		fmt.Printf("  A completed criterion regressed. Apply with 'backlogd reopen %d <reason>'.\n", id)
	case reconcile.PartialUpdateNeeded:
		fmt.Printf("  Recorded checkmarks disagree with the evidence. Fix with 'backlogd check %d <position>'.\n", id)
	}
	return nil
}

// readEvidence parses the evidence JSON from a file, stdin, or returns
// an empty map when no source is given (recorded values stand).
func readEvidence(path string) (reconcile.Evidence, error) {
	if path == "" {
		return reconcile.Evidence{}, nil
	}

	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var ev reconcile.Evidence
	if err := json.NewDecoder(r).Decode(&ev); err != nil {
		return nil, fmt.Errorf("parse evidence: %w", err)
	}
	return ev, nil
}
