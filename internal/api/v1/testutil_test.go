package v1_test

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/taskflow/internal/domain"
	"github.com/gosuda/taskflow/internal/graph"
	"github.com/gosuda/taskflow/internal/lifecycle"
	"github.com/gosuda/taskflow/internal/server/middleware"
	"github.com/gosuda/taskflow/internal/workflow"
)

// ---------------------------------------------------------------------------
// Context helpers — inject user/role into context for DoCtx
// ---------------------------------------------------------------------------

func actorCtx(userID uuid.UUID, role domain.Role) context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, middleware.ContextKeyUserID, userID)
	ctx = context.WithValue(ctx, middleware.ContextKeyUserRole, role)
	return ctx
}

func userCtx(userID uuid.UUID) context.Context {
	return actorCtx(userID, domain.RoleUser)
}

func moderatorCtx(userID uuid.UUID) context.Context {
	return actorCtx(userID, domain.RoleModerator)
}

// ---------------------------------------------------------------------------
// Mock WorkflowService
// ---------------------------------------------------------------------------

type mockWorkflowService struct {
	createDependencyFunc     func(ctx context.Context, cmd workflow.CreateDependencyCommand, actor domain.Actor) (*workflow.DependencyResult, error)
	retireDependencyFunc     func(ctx context.Context, edgeID uuid.UUID, actor domain.Actor) (*workflow.DependencyResult, error)
	retireTaskEdgesFunc      func(ctx context.Context, taskID uuid.UUID, actor domain.Actor) (int, error)
	dependenciesFunc         func(ctx context.Context, taskID uuid.UUID, direction workflow.Direction) ([]*domain.DependencyEdge, error)
	transitionFunc           func(ctx context.Context, taskID uuid.UUID, action lifecycle.Action, actor domain.Actor, reason string) (*workflow.TransitionResult, error)
	blockingDependenciesFunc func(ctx context.Context, taskID uuid.UUID, target domain.TaskStatus) ([]graph.Violation, error)
	taskStateFunc            func(ctx context.Context, taskID uuid.UUID) (*domain.TaskState, error)
	taskLogFunc              func(ctx context.Context, taskID uuid.UUID) ([]*domain.CompletionLogEntry, error)
}

func (m *mockWorkflowService) CreateDependency(ctx context.Context, cmd workflow.CreateDependencyCommand, actor domain.Actor) (*workflow.DependencyResult, error) {
	return m.createDependencyFunc(ctx, cmd, actor)
}

func (m *mockWorkflowService) RetireDependency(ctx context.Context, edgeID uuid.UUID, actor domain.Actor) (*workflow.DependencyResult, error) {
	return m.retireDependencyFunc(ctx, edgeID, actor)
}

func (m *mockWorkflowService) RetireTaskEdges(ctx context.Context, taskID uuid.UUID, actor domain.Actor) (int, error) {
	return m.retireTaskEdgesFunc(ctx, taskID, actor)
}

func (m *mockWorkflowService) Dependencies(ctx context.Context, taskID uuid.UUID, direction workflow.Direction) ([]*domain.DependencyEdge, error) {
	return m.dependenciesFunc(ctx, taskID, direction)
}

func (m *mockWorkflowService) Transition(ctx context.Context, taskID uuid.UUID, action lifecycle.Action, actor domain.Actor, reason string) (*workflow.TransitionResult, error) {
	return m.transitionFunc(ctx, taskID, action, actor, reason)
}

func (m *mockWorkflowService) BlockingDependencies(ctx context.Context, taskID uuid.UUID, target domain.TaskStatus) ([]graph.Violation, error) {
	return m.blockingDependenciesFunc(ctx, taskID, target)
}

func (m *mockWorkflowService) TaskState(ctx context.Context, taskID uuid.UUID) (*domain.TaskState, error) {
	return m.taskStateFunc(ctx, taskID)
}

func (m *mockWorkflowService) TaskLog(ctx context.Context, taskID uuid.UUID) ([]*domain.CompletionLogEntry, error) {
	return m.taskLogFunc(ctx, taskID)
}
