package cli

import (
	"context"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/config"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/observability"
)

// Version is set at build time.
var Version = "dev"

type app struct {
	cfgFile   string
	cfg       *config.Config
	logger    *zap.Logger
	providers Providers
}

// NewRootCmd builds the ifcgraph command tree. Zero-valued providers are
// replaced by the production ones.
func NewRootCmd(p Providers) *cobra.Command {
	a := &app{providers: p.withDefaults()}

	root := &cobra.Command{
		Use:           "ifcgraph",
		Short:         "Extract topological relationships from building models and load them into Neo4j.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.NewViper(a.cfgFile)
			if err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "ifcgraph"})
				return err
			}
			a.cfg = cfg
			observability.InitializeLogger(cfg.Logger)
			a.logger = observability.GetLogger()
			a.logger.Debug("Starting ifcgraph", zap.String("version", Version), zap.String("command", cmd.Name()))
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./ifcgraph.yaml)")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		newAnalyzeCmd(a),
		newIngestCmd(a),
		newPathCmd(a),
		newSchemaCmd(a),
		newAskCmd(a),
		newRunsCmd(a),
	)
	return root
}

// Execute runs the command tree with ctx and returns the process exit code.
func Execute(ctx context.Context) int {
	defer observability.Sync()

	cmd := NewRootCmd(Providers{})
	if err := cmd.ExecuteContext(ctx); err != nil {
		cmd.PrintErrln("Error:", err)
		return 1
	}
	return 0
}

func writeJSON(w io.Writer, v any) error {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
