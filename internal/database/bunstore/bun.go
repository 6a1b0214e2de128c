package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/database"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/database/models"
)

type BunStore struct {
	db *bun.DB
}

var _ database.RunRepository = (*BunStore)(nil)

// Open opens the SQLite database at dsn and prepares the run tables.
func Open(ctx context.Context, dsn string) (*BunStore, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", dsn, err)
	}
	store, err := NewBunStore(ctx, sqldb, sqlitedialect.New())
	if err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return store, nil
}

func NewBunStore(ctx context.Context, db *sql.DB, dialect schema.Dialect) (*BunStore, error) {
	bunDB := bun.NewDB(db, dialect)
	store := &BunStore{db: bunDB}

	if _, err := bunDB.NewCreateTable().Model((*models.IngestRun)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create ingest_runs table: %w", err)
	}
	if _, err := bunDB.NewCreateTable().Model((*models.RunStep)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create run_steps table: %w", err)
	}
	return store, nil
}

// Close closes the underlying database.
func (s *BunStore) Close() error {
	return s.db.Close()
}

func (s *BunStore) CreateRun(ctx context.Context, run *models.IngestRun) (int64, error) {
	if run.Version == 0 {
		run.Version = 1
	}
	if _, err := s.db.NewInsert().Model(run).Exec(ctx); err != nil {
		return 0, err
	}
	return run.ID, nil
}

func (s *BunStore) GetRunByID(ctx context.Context, id int64) (*models.IngestRun, error) {
	run := new(models.IngestRun)
	if err := s.db.NewSelect().Model(run).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, notFound(err)
	}
	return run, nil
}

func (s *BunStore) GetRunByRunID(ctx context.Context, runID string) (*models.IngestRun, error) {
	run := new(models.IngestRun)
	if err := s.db.NewSelect().Model(run).Where("run_id = ?", runID).Scan(ctx); err != nil {
		return nil, notFound(err)
	}
	return run, nil
}

func (s *BunStore) ListRuns(ctx context.Context, filter database.RunFilter) ([]*models.IngestRun, error) {
	var runs []*models.IngestRun
	q := s.db.NewSelect().Model(&runs).Order("id DESC")
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return runs, nil
}

func (s *BunStore) UpdateRunStatus(ctx context.Context, id int64, currentVersion int, status models.RunStatus, phase models.IngestPhase, errorMsg string) error {
	res, err := s.db.NewUpdate().Model((*models.IngestRun)(nil)).
		Set("status = ?", status).
		Set("current_phase = ?", phase).
		Set("error_message = ?", errorMsg).
		Set("version = version + 1").
		Set("updated_at = current_timestamp").
		Where("id = ? AND version = ?", id, currentVersion).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return database.ErrConcurrentUpdate
	}
	return nil
}

func (s *BunStore) UpdateRunTotals(ctx context.Context, id int64, nodes, edges int) error {
	res, err := s.db.NewUpdate().Model((*models.IngestRun)(nil)).
		Set("nodes = ?", nodes).
		Set("edges = ?", edges).
		Set("updated_at = current_timestamp").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (s *BunStore) UpsertRunStep(ctx context.Context, step *models.RunStep) (int64, error) {
	if step.ID == 0 {
		if _, err := s.db.NewInsert().Model(step).Exec(ctx); err != nil {
			return 0, err
		}
		return step.ID, nil
	}
	step.UpdatedAt = time.Now()
	if _, err := s.db.NewUpdate().Model(step).
		Column("status", "batches", "written", "retries", "error_log", "updated_at").
		WherePK().
		Exec(ctx); err != nil {
		return 0, err
	}
	return step.ID, nil
}

func (s *BunStore) GetRunSteps(ctx context.Context, runID int64) ([]*models.RunStep, error) {
	var steps []*models.RunStep
	if err := s.db.NewSelect().Model(&steps).Where("run_id = ?", runID).Order("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return steps, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return database.ErrNotFound
	}
	return err
}
