package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/leapstack-labs/leapglot/internal/cli/output"
	"github.com/leapstack-labs/leapglot/pkg/analyzer"
	"github.com/leapstack-labs/leapglot/pkg/divergence"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command group.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded check runs",
		Long: `List the runs recorded by 'check --record', newest first.

Subcommands show a single run's report or prune old runs.`,
		Example: `  leapglot history
  leapglot history --limit 5 -o json
  leapglot history show 3f2a...
  leapglot history prune --keep 100`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContextWithoutFixtures(cmd)
			store, err := cc.OpenHistory()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return cc.Renderer.Runs(runs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")

	cmd.AddCommand(newHistoryShowCommand())
	cmd.AddCommand(newHistoryPruneCommand())
	return cmd
}

// storedReport is the part of a recorded result needed to re-render it.
type storedReport struct {
	Source        string             `json:"source"`
	Report        *divergence.Report `json:"report"`
	Redefinitions int                `json:"redefinitions"`
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the report of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContextWithoutFixtures(cmd)
			store, err := cc.OpenHistory()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				r.Println(run.Report)
				return nil
			}

			var stored storedReport
			if err := json.Unmarshal([]byte(run.Report), &stored); err != nil {
				return fmt.Errorf("failed to decode stored report: %w", err)
			}
			res := &analyzer.Result{Source: stored.Source, Report: stored.Report, Redefinitions: stored.Redefinitions}

			r.KeyValue("Run", run.ID)
			r.KeyValue("Recorded", run.CreatedAt.Local().Format(time.DateTime))
			r.Println("")
			return r.Result(res, nil, true)
		},
	}
}

func newHistoryPruneCommand() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if keep < 0 {
				return fmt.Errorf("--keep must not be negative, got %d", keep)
			}
			cc := NewCommandContextWithoutFixtures(cmd)
			store, err := cc.OpenHistory()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			n, err := store.PruneRuns(cmd.Context(), keep)
			if err != nil {
				return err
			}
			cc.Renderer.Success(fmt.Sprintf("Pruned %d runs", n))
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 100, "Number of newest runs to keep")
	return cmd
}
