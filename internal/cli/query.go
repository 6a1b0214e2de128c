package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/usecase/query"
)

func newSchemaCmd(a *app) *cobra.Command {
	var (
		live   bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the graph schema used for question answering",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema := query.DescribeSchema()
			if live {
				if err := a.cfg.Neo4j.Validate(); err != nil {
					return fmt.Errorf("neo4j config: %w", err)
				}
				graph, closeGraph, err := a.providers.Graph(cmd.Context(), a.cfg.Neo4j, a.logger)
				if err != nil {
					return err
				}
				defer closeGraph()
				schema = query.NewTranslator(nil, graph, a.logger).Schema(cmd.Context())
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), schema)
			}
			_, err := fmt.Fprint(cmd.OutOrStdout(), schema.String())
			return err
		},
	}
	cmd.Flags().BoolVar(&live, "live", false, "merge labels and relationship types reported by Neo4j")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the schema as JSON")
	return cmd
}

func newAskCmd(a *app) *cobra.Command {
	var cypherOnly bool
	cmd := &cobra.Command{
		Use:   `ask "<question>"`,
		Short: "Answer a question about the stored building graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			router, closeLLM, err := a.providers.LLM(ctx, a.cfg.LLM, a.logger)
			if err != nil {
				return err
			}
			defer closeLLM()

			graph, closeGraph, err := a.providers.Graph(ctx, a.cfg.Neo4j, a.logger)
			if err != nil {
				return err
			}
			defer closeGraph()

			tr := query.NewTranslator(router, graph, a.logger)
			if cypherOnly {
				cypher, err := tr.Translate(ctx, args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), cypher)
				return err
			}
			answer, err := tr.Ask(ctx, args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), answer)
		},
	}
	cmd.Flags().BoolVar(&cypherOnly, "cypher-only", false, "print the generated query without running it")
	return cmd
}
