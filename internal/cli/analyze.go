package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/model"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/geometry"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/observability"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/parser"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/topology"
)

type analysisFlags struct {
	structuralOnly bool
	tolerance      float64
	metricsFile    string
}

func (f *analysisFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.structuralOnly, "structural-only", false, "skip the geometry kernel and use explicit model relationships only")
	cmd.Flags().Float64Var(&f.tolerance, "tolerance", 0, "distance tolerance in model units (default from config)")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus timings for the run to this file")
}

type analysis struct {
	session *topology.Session
	graph   *model.ConnectivityGraph
	report  *topology.Report
	parsed  parser.Stats
	metrics *observability.Metrics
}

// writeMetrics dumps the collected timings when --metrics-file was given.
// A failed dump is logged and does not fail the command.
func (a *app) writeMetrics(res *analysis, flags analysisFlags) {
	if res == nil || flags.metricsFile == "" {
		return
	}
	if err := res.metrics.WriteFile(flags.metricsFile); err != nil {
		a.logger.Warn("Failed to write metrics file", zap.String("path", flags.metricsFile), zap.Error(err))
	}
}

// loadAndAnalyze parses the model file and runs a full analysis pass.
func (a *app) loadAndAnalyze(ctx context.Context, path string, flags analysisFlags) (*analysis, error) {
	cfg := a.cfg.Analysis
	if flags.tolerance > 0 {
		cfg.Tolerance = flags.tolerance
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("analysis config: %w", err)
	}

	m, stats, err := parser.NewLoader(a.logger).LoadFile(path)
	if err != nil {
		return nil, err
	}

	var metrics *observability.Metrics
	if flags.metricsFile != "" {
		metrics = observability.NewMetrics()
	}

	var kernel topology.Kernel
	if !flags.structuralOnly {
		kernel = geometry.NewKernel()
	}
	session, err := topology.NewSession(m, kernel,
		topology.WithTolerance(cfg.Tolerance),
		topology.WithWorkers(cfg.Workers),
		topology.WithLogger(a.logger),
		topology.WithMetrics(metrics),
	)
	if err != nil {
		return nil, err
	}
	g, report, err := session.Analyze(ctx)
	if err != nil {
		return nil, fmt.Errorf("analysis of %s: %w", path, err)
	}
	a.logger.Info("Analysis completed",
		zap.String("model", path),
		zap.Int("nodes", report.Nodes),
		zap.Int("edges", report.Edges),
		zap.Duration("duration", report.Duration))
	return &analysis{session: session, graph: g, report: report, parsed: stats, metrics: metrics}, nil
}

type analyzeOutput struct {
	Parser parser.Stats         `json:"parser"`
	Report *topology.Report     `json:"report"`
	Nodes  []model.Node         `json:"nodes,omitempty"`
	Edges  []model.Relationship `json:"edges,omitempty"`
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		flags     analysisFlags
		withGraph bool
	)
	cmd := &cobra.Command{
		Use:   "analyze <model.json>",
		Short: "Analyze a model file and print the relationship report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.loadAndAnalyze(cmd.Context(), args[0], flags)
			if err != nil {
				return err
			}
			a.writeMetrics(res, flags)
			out := analyzeOutput{Parser: res.parsed, Report: res.report}
			if withGraph {
				out.Nodes = sortedNodes(res.graph)
				out.Edges = res.graph.Edges
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&withGraph, "graph", false, "include nodes and edges in the output")
	return cmd
}

func sortedNodes(g *model.ConnectivityGraph) []model.Node {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	nodes := make([]model.Node, len(ids))
	for i, id := range ids {
		nodes[i] = g.Nodes[id]
	}
	return nodes
}
