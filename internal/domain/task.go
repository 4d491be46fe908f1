package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskStatusTodo        TaskStatus = "todo"
	TaskStatusInProgress  TaskStatus = "in_progress"
	TaskStatusUnderReview TaskStatus = "under_review"
	TaskStatusDone        TaskStatus = "done"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusUnderReview, TaskStatusDone:
		return true
	default:
		return false
	}
}

// TaskState is the slice of a task this service owns: the lifecycle status and
// its timestamps. The rest of the task (description, assignees, board position)
// lives in the external tracker and is referenced by ID only. Title is carried
// read-only for notification messages.
//
// Status is the single source of truth; the timestamps are metadata set and
// cleared by the state machine and must never be mutated independently.
type TaskState struct {
	ID                   uuid.UUID
	Title                string
	Status               TaskStatus
	StartedAt            *time.Time
	SubmittedForReviewAt *time.Time
	CompletedAt          *time.Time
	ApprovedBy           *uuid.UUID
	ApprovedAt           *time.Time
	Version              int64
}

// Clone returns a deep copy so the state machine can build a candidate next
// state without touching the loaded snapshot.
func (t *TaskState) Clone() *TaskState {
	c := *t
	c.StartedAt = cloneTime(t.StartedAt)
	c.SubmittedForReviewAt = cloneTime(t.SubmittedForReviewAt)
	c.CompletedAt = cloneTime(t.CompletedAt)
	c.ApprovedAt = cloneTime(t.ApprovedAt)
	if t.ApprovedBy != nil {
		id := *t.ApprovedBy
		c.ApprovedBy = &id
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

type TaskStateRepository interface {
	Create(ctx context.Context, t *TaskState) error
	Get(ctx context.Context, id uuid.UUID) (*TaskState, error)
	// CompareAndSet persists t only if the stored version equals
	// expectedVersion, bumping t.Version on success. Returns
	// ErrVersionConflict when another transition won the race.
	CompareAndSet(ctx context.Context, t *TaskState, expectedVersion int64) error
}
