package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/taskflow/internal/domain"
	"github.com/gosuda/taskflow/internal/graph"
	"github.com/gosuda/taskflow/internal/lifecycle"
	"github.com/gosuda/taskflow/internal/workflow"
)

// WorkflowService abstracts the coordinator for handler testing.
// *workflow.Coordinator satisfies this interface.
type WorkflowService interface {
	CreateDependency(ctx context.Context, cmd workflow.CreateDependencyCommand, actor domain.Actor) (*workflow.DependencyResult, error)
	RetireDependency(ctx context.Context, edgeID uuid.UUID, actor domain.Actor) (*workflow.DependencyResult, error)
	RetireTaskEdges(ctx context.Context, taskID uuid.UUID, actor domain.Actor) (int, error)
	Dependencies(ctx context.Context, taskID uuid.UUID, direction workflow.Direction) ([]*domain.DependencyEdge, error)
	Transition(ctx context.Context, taskID uuid.UUID, action lifecycle.Action, actor domain.Actor, reason string) (*workflow.TransitionResult, error)
	BlockingDependencies(ctx context.Context, taskID uuid.UUID, target domain.TaskStatus) ([]graph.Violation, error)
	TaskState(ctx context.Context, taskID uuid.UUID) (*domain.TaskState, error)
	TaskLog(ctx context.Context, taskID uuid.UUID) ([]*domain.CompletionLogEntry, error)
}
