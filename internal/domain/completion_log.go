package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LogAction names what happened to a task in a completion log entry.
type LogAction string

const (
	LogActionStarted            LogAction = "started"
	LogActionSubmittedForReview LogAction = "submitted-for-review"
	LogActionCompleted          LogAction = "completed"
	LogActionApproved           LogAction = "approved"
	LogActionRejected           LogAction = "rejected"
	LogActionUncompleted        LogAction = "uncompleted"
)

// RequiresReason reports whether the action is invalid without a
// non-whitespace reason.
func (a LogAction) RequiresReason() bool {
	return a == LogActionRejected || a == LogActionUncompleted
}

// Metadata keys written by the state machine.
const (
	MetaPreviousStatus       = "previous_status"
	MetaPreviousCompletedAt  = "previous_completed_at"
	MetaSubmittedForReviewAt = "submitted_for_review_at"
	MetaActorRole            = "actor_role"
)

// CompletionLogEntry records one task lifecycle transition: who did what, why,
// and a snapshot of the prior state. Entries are append-only and never updated
// or deleted; they are the ground truth for what happened.
type CompletionLogEntry struct {
	ID          uuid.UUID
	TaskID      uuid.UUID
	ActorUserID uuid.UUID
	Action      LogAction
	Reason      string
	Metadata    map[string]any
	CreatedAt   time.Time
}

type CompletionLogRepository interface {
	Append(ctx context.Context, entry *CompletionLogEntry) error
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*CompletionLogEntry, error)
}
