package database

import (
	"context"
	"errors"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/database/models"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrConcurrentUpdate = errors.New("concurrent update detected: version mismatch")
)

// RunFilter narrows ListRuns. A nil Status lists every run.
type RunFilter struct {
	Status *models.RunStatus
	Limit  int
}

// RunRepository handles ingestion run state persistence
type RunRepository interface {
	CreateRun(ctx context.Context, run *models.IngestRun) (int64, error)
	GetRunByID(ctx context.Context, id int64) (*models.IngestRun, error)
	GetRunByRunID(ctx context.Context, runID string) (*models.IngestRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*models.IngestRun, error)
	UpdateRunStatus(ctx context.Context, id int64, currentVersion int, status models.RunStatus, phase models.IngestPhase, errorMsg string) error
	UpdateRunTotals(ctx context.Context, id int64, nodes, edges int) error

	UpsertRunStep(ctx context.Context, step *models.RunStep) (int64, error)
	GetRunSteps(ctx context.Context, runID int64) ([]*models.RunStep, error)
}
