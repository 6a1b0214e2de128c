package models

import (
	"time"

	"github.com/uptrace/bun"
)

// RunStatus represents the state of an ingestion run or of one of its steps.
type RunStatus int

const (
	RunStatusPending    RunStatus = 0
	RunStatusProcessing RunStatus = 1
	RunStatusCompleted  RunStatus = 2
	RunStatusFailed     RunStatus = 3
)

func (s RunStatus) String() string {
	switch s {
	case RunStatusPending:
		return "pending"
	case RunStatusProcessing:
		return "processing"
	case RunStatusCompleted:
		return "completed"
	case RunStatusFailed:
		return "failed"
	}
	return "unknown"
}

// IngestPhase is one phase of writing a graph to the store.
type IngestPhase int

const (
	PhaseClear       IngestPhase = 0
	PhaseConstraints IngestPhase = 1
	PhaseNodes       IngestPhase = 2
	PhaseEdges       IngestPhase = 3
)

func (p IngestPhase) String() string {
	switch p {
	case PhaseClear:
		return "clear"
	case PhaseConstraints:
		return "constraints"
	case PhaseNodes:
		return "nodes"
	case PhaseEdges:
		return "edges"
	}
	return "unknown"
}

// IngestRun is the ledger entry of one ingest invocation.
type IngestRun struct {
	bun.BaseModel `bun:"table:ingest_runs,alias:ir"`

	ID           int64       `bun:",pk,autoincrement"`
	RunID        string      `bun:",unique,notnull"`
	ModelPath    string      `bun:",notnull"`
	Database     string      `bun:",nullzero"`
	Status       RunStatus   `bun:",notnull"`
	Version      int         `bun:",notnull,default:1"`
	CurrentPhase IngestPhase `bun:",notnull,default:0"`
	Nodes        int         `bun:",notnull,default:0"`
	Edges        int         `bun:",notnull,default:0"`
	ErrorMessage string      `bun:",nullzero"`
	CreatedAt    time.Time   `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time   `bun:",nullzero,notnull,default:current_timestamp"`
}

// RunStep records the outcome of one phase of a run.
type RunStep struct {
	bun.BaseModel `bun:"table:run_steps,alias:rs"`

	ID        int64       `bun:",pk,autoincrement"`
	RunID     int64       `bun:",notnull"`
	Run       *IngestRun  `bun:"rel:belongs-to,join:run_id=id"`
	Phase     IngestPhase `bun:",notnull"`
	Status    RunStatus   `bun:",notnull"`
	Batches   int         `bun:",notnull,default:0"`
	Written   int         `bun:",notnull,default:0"`
	Retries   int         `bun:",notnull,default:0"`
	ErrorLog  string      `bun:",nullzero"`
	CreatedAt time.Time   `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time   `bun:",nullzero,notnull,default:current_timestamp"`
}
