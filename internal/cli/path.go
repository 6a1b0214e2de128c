package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/model"
)

func parseKinds(names []string) ([]model.RelationshipKind, error) {
	kinds := make([]model.RelationshipKind, 0, len(names))
	for _, n := range names {
		k, err := model.ParseKind(n)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func newPathCmd(a *app) *cobra.Command {
	var (
		flags    analysisFlags
		kinds    []string
		maxDepth int
		fromDB   bool
	)
	cmd := &cobra.Command{
		Use:   "path [<model.json>] <from> <to>",
		Short: "Find the shortest relationship path between two elements",
		Long: "Find the shortest path between two GlobalIds. By default the model file is analyzed\n" +
			"in memory; with --db the stored graph is queried instead and no model file is given.",
		Args: func(cmd *cobra.Command, args []string) error {
			if fromDB {
				return cobra.ExactArgs(2)(cmd, args)
			}
			return cobra.ExactArgs(3)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ks, err := parseKinds(kinds)
			if err != nil {
				return err
			}
			if maxDepth <= 0 {
				maxDepth = a.cfg.Analysis.MaxPathDepth
			}

			var path model.Path
			if fromDB {
				if err := a.cfg.Neo4j.Validate(); err != nil {
					return fmt.Errorf("neo4j config: %w", err)
				}
				graph, closeGraph, err := a.providers.Graph(ctx, a.cfg.Neo4j, a.logger)
				if err != nil {
					return err
				}
				defer closeGraph()
				if path, err = graph.FindPath(ctx, args[0], args[1], ks, maxDepth); err != nil {
					return err
				}
			} else {
				res, err := a.loadAndAnalyze(ctx, args[0], flags)
				if err != nil {
					return err
				}
				if path, err = res.session.FindPath(ctx, args[1], args[2], ks, maxDepth); err != nil {
					return err
				}
			}

			if !path.Found() {
				a.logger.Info("No path found")
			}
			return writeJSON(cmd.OutOrStdout(), path)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringSliceVar(&kinds, "kinds", nil, "relationship kinds to traverse (default ADJACENT,CONTAINS,IS_CONTAINED_IN,BOUNDS,IS_BOUNDED_BY)")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "maximum number of hops (default from config)")
	cmd.Flags().BoolVar(&fromDB, "db", false, "query the graph stored in Neo4j")
	return cmd
}
