package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/database"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/database/models"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/model"
)

// RunOptions describes one tracked ingest.
type RunOptions struct {
	ModelPath string
	Database  string
	// Clear deletes earlier analysis relationships before writing.
	Clear bool
}

// Runner tracks every ingest as a run with one step per phase.
type Runner struct {
	writer *Writer
	runs   database.RunRepository
	logger *zap.Logger
}

func NewRunner(w *Writer, runs database.RunRepository, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{writer: w, runs: runs, logger: logger.Named("runner")}
}

// Run ingests g and records the outcome. The returned run reflects the final
// state even when err is non-nil.
func (r *Runner) Run(ctx context.Context, g *model.ConnectivityGraph, opts RunOptions) (*models.IngestRun, Stats, error) {
	var stats Stats

	phases := []models.IngestPhase{models.PhaseConstraints, models.PhaseNodes, models.PhaseEdges}
	if opts.Clear {
		phases = append([]models.IngestPhase{models.PhaseClear}, phases...)
	}

	run := &models.IngestRun{
		RunID:        uuid.NewString(),
		ModelPath:    opts.ModelPath,
		Database:     opts.Database,
		Status:       models.RunStatusPending,
		CurrentPhase: phases[0],
	}
	id, err := r.runs.CreateRun(ctx, run)
	if err != nil {
		return nil, stats, fmt.Errorf("create run: %w", err)
	}
	run.ID = id
	run.Version = 1

	log := r.logger.With(zap.String("run_id", run.RunID))
	log.Info("Starting ingest run", zap.String("model", opts.ModelPath), zap.Int("nodes", len(g.Nodes)), zap.Int("edges", len(g.Edges)))

	for _, phase := range phases {
		if err := r.setStatus(ctx, run, models.RunStatusProcessing, phase, ""); err != nil {
			return run, stats, err
		}

		step := &models.RunStep{RunID: run.ID, Phase: phase, Status: models.RunStatusProcessing}
		stepID, err := r.runs.UpsertRunStep(ctx, step)
		if err != nil {
			log.Warn("Failed to record step", zap.Stringer("phase", phase), zap.Error(err))
		}
		step.ID = stepID

		ps, err := r.runPhase(ctx, phase, g, &stats)
		step.Batches, step.Written, step.Retries = ps.Batches, ps.Written, ps.Retries
		if err != nil {
			err = withStats(err, stats)
			log.Error("Ingest phase failed", zap.Stringer("phase", phase), zap.Error(err))

			step.Status = models.RunStatusFailed
			step.ErrorLog = err.Error()
			if _, stepErr := r.runs.UpsertRunStep(ctx, step); stepErr != nil {
				log.Warn("Failed to upsert run step", zap.Error(stepErr))
			}
			if statusErr := r.setStatus(ctx, run, models.RunStatusFailed, phase, err.Error()); statusErr != nil {
				log.Warn("Failed to update run status", zap.Error(statusErr))
			}
			r.saveTotals(ctx, run, stats)
			return run, stats, err
		}

		step.Status = models.RunStatusCompleted
		if _, stepErr := r.runs.UpsertRunStep(ctx, step); stepErr != nil {
			log.Warn("Failed to upsert run step", zap.Error(stepErr))
		}
	}

	r.saveTotals(ctx, run, stats)
	if err := r.setStatus(ctx, run, models.RunStatusCompleted, phases[len(phases)-1], ""); err != nil {
		return run, stats, err
	}
	log.Info("Ingest run completed", zap.Int("nodes", run.Nodes), zap.Int("edges", run.Edges))
	return run, stats, nil
}

func (r *Runner) runPhase(ctx context.Context, phase models.IngestPhase, g *model.ConnectivityGraph, stats *Stats) (PhaseStats, error) {
	switch phase {
	case models.PhaseClear:
		n, err := r.writer.Clear(ctx)
		stats.Cleared = n
		return PhaseStats{Written: int(n)}, err
	case models.PhaseConstraints:
		n, err := r.writer.EnsureConstraints(ctx, g)
		stats.Constraints = n
		return PhaseStats{Written: n}, err
	case models.PhaseNodes:
		ps, err := r.writer.WriteNodes(ctx, g)
		stats.Nodes = ps
		return ps, err
	case models.PhaseEdges:
		ps, err := r.writer.WriteEdges(ctx, g)
		stats.Edges = ps
		return ps, err
	}
	return PhaseStats{}, fmt.Errorf("unknown ingest phase %d", phase)
}

func (r *Runner) setStatus(ctx context.Context, run *models.IngestRun, status models.RunStatus, phase models.IngestPhase, errMsg string) error {
	if err := r.runs.UpdateRunStatus(ctx, run.ID, run.Version, status, phase, errMsg); err != nil {
		return fmt.Errorf("update run %s: %w", run.RunID, err)
	}
	run.Version++
	run.Status = status
	run.CurrentPhase = phase
	run.ErrorMessage = errMsg
	return nil
}

func (r *Runner) saveTotals(ctx context.Context, run *models.IngestRun, stats Stats) {
	run.Nodes, run.Edges = stats.Nodes.Written, stats.Edges.Written
	if err := r.runs.UpdateRunTotals(ctx, run.ID, run.Nodes, run.Edges); err != nil {
		r.logger.Warn("Failed to update run totals", zap.String("run_id", run.RunID), zap.Error(err))
	}
}
