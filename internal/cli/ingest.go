package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/database/models"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/repository"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/topology"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/usecase/ingest"
)

type ingestOutput struct {
	Run    *models.IngestRun      `json:"run"`
	Report *topology.Report       `json:"report"`
	Stats  ingest.Stats           `json:"stats"`
	Counts repository.GraphCounts `json:"counts"`
}

func newIngestCmd(a *app) *cobra.Command {
	var (
		flags      analysisFlags
		clearFirst bool
	)
	cmd := &cobra.Command{
		Use:   "ingest <model.json>",
		Short: "Analyze a model file and write the relationship graph to Neo4j",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.cfg.Neo4j.Validate(); err != nil {
				return fmt.Errorf("neo4j config: %w", err)
			}
			if err := a.cfg.Ingest.Validate(a.cfg.Neo4j.MaxConnectionPoolSize); err != nil {
				return fmt.Errorf("ingest config: %w", err)
			}

			res, err := a.loadAndAnalyze(ctx, args[0], flags)
			if err != nil {
				return err
			}
			defer a.writeMetrics(res, flags)

			graph, closeGraph, err := a.providers.Graph(ctx, a.cfg.Neo4j, a.logger)
			if err != nil {
				return err
			}
			defer closeGraph()

			runs, closeRuns, err := a.providers.Runs(ctx, a.cfg.Store)
			if err != nil {
				return err
			}
			defer closeRuns()

			opts := ingest.OptionsFromConfig(a.cfg.Ingest)
			opts.Metrics = res.metrics
			writer := ingest.NewWriter(graph, opts, a.logger)
			runner := ingest.NewRunner(writer, runs, a.logger)
			run, stats, err := runner.Run(ctx, res.graph, ingest.RunOptions{
				ModelPath: args[0],
				Database:  a.cfg.Neo4j.Database,
				Clear:     clearFirst,
			})
			if err != nil {
				if run != nil {
					return fmt.Errorf("ingest run %s: %w", run.RunID, err)
				}
				return err
			}

			counts, err := graph.Counts(ctx)
			if err != nil {
				a.logger.Warn("Failed to read store counts", zap.Error(err))
			}
			return writeJSON(cmd.OutOrStdout(), ingestOutput{Run: run, Report: res.report, Stats: stats, Counts: counts})
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&clearFirst, "clear", false, "delete previously written analysis relationships first")
	return cmd
}
