package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DependencyType is one of the four classic project-scheduling dependency
// relations between a predecessor and a successor task.
type DependencyType string

const (
	DependencyFinishToStart  DependencyType = "FS"
	DependencyStartToStart   DependencyType = "SS"
	DependencyFinishToFinish DependencyType = "FF"
	DependencyStartToFinish  DependencyType = "SF"
)

// Valid reports whether t is a known dependency type.
func (t DependencyType) Valid() bool {
	switch t {
	case DependencyFinishToStart, DependencyStartToStart, DependencyFinishToFinish, DependencyStartToFinish:
		return true
	default:
		return false
	}
}

// Description returns the human-readable name of the dependency type.
func (t DependencyType) Description() string {
	switch t {
	case DependencyFinishToStart:
		return "Finish-to-Start"
	case DependencyStartToStart:
		return "Start-to-Start"
	case DependencyFinishToFinish:
		return "Finish-to-Finish"
	case DependencyStartToFinish:
		return "Start-to-Finish"
	default:
		return string(t)
	}
}

type LagUnit string

const (
	LagHours LagUnit = "hours"
	LagDays  LagUnit = "days"
)

// Lag is the minimum elapsed time after the predecessor's gating event before
// the successor's gated event is permitted.
type Lag struct {
	Amount int
	Unit   LagUnit
}

// Valid reports whether the lag has a non-negative amount and a known unit.
func (l Lag) Valid() bool {
	if l.Amount < 0 {
		return false
	}
	return l.Unit == LagHours || l.Unit == LagDays
}

// Duration converts the lag to a time.Duration.
func (l Lag) Duration() time.Duration {
	switch l.Unit {
	case LagDays:
		return time.Duration(l.Amount) * 24 * time.Hour
	default:
		return time.Duration(l.Amount) * time.Hour
	}
}

// DependencyEdge is a directed, typed edge in the task dependency graph. Edges
// are immutable after creation: changing type or lag is modeled as retire plus
// recreate so the audit trail stays intact. The set of active edges must form
// a DAG at all times.
type DependencyEdge struct {
	ID                uuid.UUID
	PredecessorTaskID uuid.UUID
	SuccessorTaskID   uuid.UUID
	Type              DependencyType
	Lag               Lag
	NotifyUserIDs     []uuid.UUID
	IsActive          bool
	CreatedBy         uuid.UUID
	CreatedAt         time.Time
}

type EdgeRepository interface {
	Insert(ctx context.Context, e *DependencyEdge) error
	GetByID(ctx context.Context, id uuid.UUID) (*DependencyEdge, error)
	// Retire marks an active edge inactive. Returns ErrNotFound for unknown
	// or already-retired edges.
	Retire(ctx context.Context, id uuid.UUID) error
	// RetireForTask retires every active edge touching taskID (either end)
	// and returns how many were retired.
	RetireForTask(ctx context.Context, taskID uuid.UUID) (int, error)
	// ListActiveBySuccessor returns active edges where taskID is the successor.
	ListActiveBySuccessor(ctx context.Context, taskID uuid.UUID) ([]*DependencyEdge, error)
	// ListActiveByPredecessor returns active edges where taskID is the predecessor.
	ListActiveByPredecessor(ctx context.Context, taskID uuid.UUID) ([]*DependencyEdge, error)
	ListActive(ctx context.Context) ([]*DependencyEdge, error)
}
