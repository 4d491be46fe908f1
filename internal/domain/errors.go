package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for the domain layer.
var (
	ErrNotFound        = errors.New("domain: not found")
	ErrVersionConflict = errors.New("domain: version conflict")
	ErrDuplicateEdge   = errors.New("domain: dependency already exists")
	ErrReasonRequired  = errors.New("domain: reason is required")
	ErrUnknownAction   = errors.New("domain: unknown action")
	ErrInvalidEdge     = errors.New("domain: invalid dependency")
	// ErrGraphCorrupt marks a cycle found in the stored graph on read. The
	// acyclicity invariant is enforced on every write, so this implies a
	// concurrency bug elsewhere; it is surfaced loudly, never repaired.
	ErrGraphCorrupt = errors.New("domain: dependency graph contains a cycle")
)

// CycleError rejects an edge insertion that would close a directed cycle.
// Path is the task-id chain from the proposed successor back to the proposed
// predecessor through existing active edges.
type CycleError struct {
	Path []uuid.UUID
}

func (e *CycleError) Error() string {
	ids := make([]string, len(e.Path))
	for i, id := range e.Path {
		ids[i] = id.String()
	}
	return "domain: cycle detected: " + strings.Join(ids, " -> ")
}

// BlockedByDependencyError rejects a transition whose gating predecessor has
// not yet reached the required state.
type BlockedByDependencyError struct {
	EdgeID            uuid.UUID
	PredecessorTaskID uuid.UUID
	Type              DependencyType
	RequiredStatus    TaskStatus
}

func (e *BlockedByDependencyError) Error() string {
	return fmt.Sprintf("domain: blocked by %s dependency %s: task %s must reach %s",
		e.Type.Description(), e.EdgeID, e.PredecessorTaskID, e.RequiredStatus)
}

// LagNotElapsedError rejects a transition whose gating event has occurred but
// whose lag window is still open.
type LagNotElapsedError struct {
	EdgeID      uuid.UUID
	AvailableAt time.Time
}

func (e *LagNotElapsedError) Error() string {
	return fmt.Sprintf("domain: dependency %s lag not elapsed, available at %s",
		e.EdgeID, e.AvailableAt.Format(time.RFC3339))
}

// InvalidTransitionError rejects an action that is not legal from the task's
// current status.
type InvalidTransitionError struct {
	From   TaskStatus
	Action string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("domain: action %q is not valid from status %q", e.Action, e.From)
}

// UnauthorizedRoleError rejects an action the actor's role does not permit.
type UnauthorizedRoleError struct {
	Role   Role
	Action string
}

func (e *UnauthorizedRoleError) Error() string {
	return fmt.Sprintf("domain: role %q may not perform %q", e.Role, e.Action)
}
