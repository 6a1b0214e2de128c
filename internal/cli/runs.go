package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/database"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/database/models"
)

func parseStatus(s string) (*models.RunStatus, error) {
	if s == "" {
		return nil, nil
	}
	for _, st := range []models.RunStatus{
		models.RunStatusPending, models.RunStatusProcessing, models.RunStatusCompleted, models.RunStatusFailed,
	} {
		if strings.EqualFold(st.String(), s) {
			return &st, nil
		}
	}
	return nil, fmt.Errorf("unknown run status %q", s)
}

type runView struct {
	*models.IngestRun
	StatusName string            `json:"status_name"`
	PhaseName  string            `json:"phase_name"`
	Steps      []*models.RunStep `json:"steps,omitempty"`
}

func newRunsCmd(a *app) *cobra.Command {
	var (
		status    string
		limit     int
		withSteps bool
	)
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List recorded ingest runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := parseStatus(status)
			if err != nil {
				return err
			}

			store, closeStore, err := a.providers.Runs(ctx, a.cfg.Store)
			if err != nil {
				return err
			}
			defer closeStore()

			var runs []*models.IngestRun
			if len(args) == 1 {
				run, err := store.GetRunByRunID(ctx, args[0])
				if err != nil {
					return fmt.Errorf("run %s: %w", args[0], err)
				}
				runs = []*models.IngestRun{run}
				withSteps = true
			} else if runs, err = store.ListRuns(ctx, database.RunFilter{Status: st, Limit: limit}); err != nil {
				return err
			}

			views := make([]runView, len(runs))
			for i, r := range runs {
				views[i] = runView{IngestRun: r, StatusName: r.Status.String(), PhaseName: r.CurrentPhase.String()}
				if withSteps {
					if views[i].Steps, err = store.GetRunSteps(ctx, r.ID); err != nil {
						return err
					}
				}
			}
			return writeJSON(cmd.OutOrStdout(), views)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only list runs in this status (pending, processing, completed, failed)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	cmd.Flags().BoolVar(&withSteps, "steps", false, "include the per-phase steps")
	return cmd
}
