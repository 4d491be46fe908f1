// Package lifecycle implements the per-task finite-state machine. Apply is a
// pure function over a TaskState snapshot: it performs the role check, the
// reason check, and the current-state precondition, then returns the candidate
// next state plus a completion log draft. Persistence, dependency gating, and
// notification fan-out are the workflow coordinator's job.
package lifecycle

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/taskflow/internal/domain"
)

type Action string

const (
	ActionStart           Action = "start"
	ActionSubmitForReview Action = "submit_for_review"
	ActionComplete        Action = "complete"
	ActionApprove         Action = "approve"
	ActionReject          Action = "reject"
	ActionUncomplete      Action = "uncomplete"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionStart, ActionSubmitForReview, ActionComplete, ActionApprove, ActionReject, ActionUncomplete:
		return true
	default:
		return false
	}
}

// RequiresModerator reports whether the action is gated to moderator/admin
// roles. Regular users can only reach done through review and approval.
func (a Action) RequiresModerator() bool {
	switch a {
	case ActionComplete, ActionApprove, ActionReject, ActionUncomplete:
		return true
	default:
		return false
	}
}

// ReservedForUsers reports whether the action is only meaningful for
// non-moderating roles. A moderating actor's completion is final, so there is
// no review step for it to feed.
func (a Action) ReservedForUsers() bool {
	return a == ActionSubmitForReview
}

// RequiresReason reports whether the action must carry a non-whitespace reason.
func (a Action) RequiresReason() bool {
	return a == ActionReject || a == ActionUncomplete
}

// Target returns the status the action moves a task into.
func (a Action) Target() domain.TaskStatus {
	switch a {
	case ActionStart, ActionReject, ActionUncomplete:
		return domain.TaskStatusInProgress
	case ActionSubmitForReview:
		return domain.TaskStatusUnderReview
	case ActionComplete, ActionApprove:
		return domain.TaskStatusDone
	default:
		return ""
	}
}

// Gated reports whether the action's target must pass dependency constraint
// evaluation: every transition into in_progress or done is graph-gated.
func (a Action) Gated() bool {
	t := a.Target()
	return t == domain.TaskStatusInProgress || t == domain.TaskStatusDone
}

// LogAction maps the action to its completion log name.
func (a Action) LogAction() domain.LogAction {
	switch a {
	case ActionStart:
		return domain.LogActionStarted
	case ActionSubmitForReview:
		return domain.LogActionSubmittedForReview
	case ActionComplete:
		return domain.LogActionCompleted
	case ActionApprove:
		return domain.LogActionApproved
	case ActionReject:
		return domain.LogActionRejected
	case ActionUncomplete:
		return domain.LogActionUncompleted
	default:
		return domain.LogAction(a)
	}
}

// allowedFrom maps each action to the statuses it is legal from. There are no
// skip transitions (todo -> done is impossible) and no self-transitions.
var allowedFrom = map[Action][]domain.TaskStatus{
	ActionStart:           {domain.TaskStatusTodo},
	ActionSubmitForReview: {domain.TaskStatusInProgress},
	ActionComplete:        {domain.TaskStatusInProgress, domain.TaskStatusUnderReview},
	ActionApprove:         {domain.TaskStatusUnderReview},
	ActionReject:          {domain.TaskStatusUnderReview},
	ActionUncomplete:      {domain.TaskStatusDone},
}

// Result is the outcome of a validated transition: the candidate next state
// and the completion log entry to append alongside it.
type Result struct {
	State *domain.TaskState
	Entry *domain.CompletionLogEntry
}

// Apply validates action against the snapshot and, if legal, returns the next
// state with timestamps set or cleared, plus a log entry capturing the prior
// status and timestamps. The snapshot itself is never mutated.
//
// Check order: known action, role gate, reason, current-state precondition.
func Apply(state *domain.TaskState, action Action, actor domain.Actor, reason string, now time.Time) (*Result, error) {
	if !action.Valid() {
		return nil, domain.ErrUnknownAction
	}

	if action.RequiresModerator() && !actor.Role.CanModerate() {
		return nil, &domain.UnauthorizedRoleError{Role: actor.Role, Action: string(action)}
	}

	if action.ReservedForUsers() && actor.Role.CanModerate() {
		return nil, &domain.UnauthorizedRoleError{Role: actor.Role, Action: string(action)}
	}

	reason = strings.TrimSpace(reason)
	if action.RequiresReason() && reason == "" {
		return nil, domain.ErrReasonRequired
	}

	if !legalFrom(action, state.Status) {
		return nil, &domain.InvalidTransitionError{From: state.Status, Action: string(action)}
	}

	meta := map[string]any{
		domain.MetaPreviousStatus: string(state.Status),
		domain.MetaActorRole:      string(actor.Role),
	}

	next := state.Clone()
	next.Status = action.Target()

	switch action {
	case ActionStart:
		next.StartedAt = &now

	case ActionSubmitForReview:
		next.SubmittedForReviewAt = &now

	case ActionComplete:
		next.CompletedAt = &now

	case ActionApprove:
		if state.SubmittedForReviewAt != nil {
			meta[domain.MetaSubmittedForReviewAt] = state.SubmittedForReviewAt.Format(time.RFC3339Nano)
		}
		next.CompletedAt = &now
		next.ApprovedAt = &now
		approver := actor.UserID
		next.ApprovedBy = &approver

	case ActionReject:
		if state.SubmittedForReviewAt != nil {
			meta[domain.MetaSubmittedForReviewAt] = state.SubmittedForReviewAt.Format(time.RFC3339Nano)
		}
		next.SubmittedForReviewAt = nil

	case ActionUncomplete:
		if state.CompletedAt != nil {
			meta[domain.MetaPreviousCompletedAt] = state.CompletedAt.Format(time.RFC3339Nano)
		}
		next.CompletedAt = nil
		next.ApprovedBy = nil
		next.ApprovedAt = nil
		next.SubmittedForReviewAt = nil
	}

	entry := &domain.CompletionLogEntry{
		ID:          uuid.New(),
		TaskID:      state.ID,
		ActorUserID: actor.UserID,
		Action:      action.LogAction(),
		Reason:      reason,
		Metadata:    meta,
		CreatedAt:   now,
	}

	return &Result{State: next, Entry: entry}, nil
}

func legalFrom(action Action, from domain.TaskStatus) bool {
	for _, s := range allowedFrom[action] {
		if s == from {
			return true
		}
	}
	return false
}
