package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/taskflow/internal/domain"
)

// Evaluator decides whether the active edges gating a task currently permit a
// candidate transition. For an edge predecessor --type,lag--> successor:
//
//	type  predecessor gating event   successor gated event
//	FS    reaches done               entering in_progress
//	SS    enters in_progress         entering in_progress
//	FF    reaches done               reaching done
//	SF    enters in_progress         reaching done
//
// The gated event must wait until the gating event has occurred and the lag
// has elapsed.
type Evaluator struct {
	edges domain.EdgeRepository
	tasks domain.TaskStateRepository
}

func NewEvaluator(edges domain.EdgeRepository, tasks domain.TaskStateRepository) *Evaluator {
	return &Evaluator{edges: edges, tasks: tasks}
}

// Violation pairs a blocking edge with the reason it blocks, for UI display.
type Violation struct {
	Edge   *domain.DependencyEdge
	Reason error
}

// gatedTarget returns which successor status entry the edge type gates.
func gatedTarget(typ domain.DependencyType) domain.TaskStatus {
	switch typ {
	case domain.DependencyFinishToStart, domain.DependencyStartToStart:
		return domain.TaskStatusInProgress
	default:
		return domain.TaskStatusDone
	}
}

// gatingStatus returns the predecessor status required before the gated event
// may occur.
func gatingStatus(typ domain.DependencyType) domain.TaskStatus {
	switch typ {
	case domain.DependencyFinishToStart, domain.DependencyFinishToFinish:
		return domain.TaskStatusDone
	default:
		return domain.TaskStatusInProgress
	}
}

// gatingTime returns the timestamp of the predecessor's gating event, or nil
// if it has not occurred. The timestamps are authoritative: an uncompleted
// task has its CompletedAt cleared and blocks again.
func gatingTime(typ domain.DependencyType, pred *domain.TaskState) *time.Time {
	if gatingStatus(typ) == domain.TaskStatusDone {
		return pred.CompletedAt
	}
	return pred.StartedAt
}

// Permits checks one edge against the clock. Returns nil when the edge allows
// its gated event now, BlockedByDependencyError when the gating event has not
// occurred, or LagNotElapsedError when it has but the lag window is open.
func (ev *Evaluator) Permits(ctx context.Context, edge *domain.DependencyEdge, now time.Time) error {
	pred, err := ev.tasks.Get(ctx, edge.PredecessorTaskID)
	if err != nil {
		return fmt.Errorf("graph.Evaluator.Permits: predecessor %s: %w", edge.PredecessorTaskID, err)
	}

	ts := gatingTime(edge.Type, pred)
	if ts == nil {
		return &domain.BlockedByDependencyError{
			EdgeID:            edge.ID,
			PredecessorTaskID: edge.PredecessorTaskID,
			Type:              edge.Type,
			RequiredStatus:    gatingStatus(edge.Type),
		}
	}

	availableAt := ts.Add(edge.Lag.Duration())
	if now.Before(availableAt) {
		return &domain.LagNotElapsedError{EdgeID: edge.ID, AvailableAt: availableAt}
	}

	return nil
}

// EvaluateAll checks every active edge gating taskID's move to target and
// returns the first violation. Targets other than in_progress and done are
// never graph-gated.
func (ev *Evaluator) EvaluateAll(ctx context.Context, taskID uuid.UUID, target domain.TaskStatus, now time.Time) error {
	if target != domain.TaskStatusInProgress && target != domain.TaskStatusDone {
		return nil
	}

	edges, err := ev.edges.ListActiveBySuccessor(ctx, taskID)
	if err != nil {
		return fmt.Errorf("graph.Evaluator.EvaluateAll: %w", err)
	}

	for _, edge := range edges {
		if gatedTarget(edge.Type) != target {
			continue
		}
		if err := ev.Permits(ctx, edge, now); err != nil {
			return err
		}
	}
	return nil
}

// BlockingEdges collects every violation instead of short-circuiting, so the
// UI can explain all of them at once.
func (ev *Evaluator) BlockingEdges(ctx context.Context, taskID uuid.UUID, target domain.TaskStatus, now time.Time) ([]Violation, error) {
	if target != domain.TaskStatusInProgress && target != domain.TaskStatusDone {
		return nil, nil
	}

	edges, err := ev.edges.ListActiveBySuccessor(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("graph.Evaluator.BlockingEdges: %w", err)
	}

	var violations []Violation
	for _, edge := range edges {
		if gatedTarget(edge.Type) != target {
			continue
		}
		if permitErr := ev.Permits(ctx, edge, now); permitErr != nil {
			violations = append(violations, Violation{Edge: edge, Reason: permitErr})
		}
	}
	return violations, nil
}
