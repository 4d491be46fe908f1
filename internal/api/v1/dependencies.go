package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/taskflow/internal/domain"
	"github.com/gosuda/taskflow/internal/server/middleware"
	"github.com/gosuda/taskflow/internal/workflow"
)

type CreateDependencyInput struct {
	Body struct {
		PredecessorTaskID uuid.UUID   `json:"predecessor_task_id" doc:"Task that gates the successor"`
		SuccessorTaskID   uuid.UUID   `json:"successor_task_id" doc:"Task being gated"`
		Type              string      `json:"type" enum:"FS,SS,FF,SF" doc:"Dependency type"`
		LagAmount         int         `json:"lag_amount,omitempty" minimum:"0" doc:"Lag amount (default 0)"`
		LagUnit           string      `json:"lag_unit,omitempty" enum:"hours,days" doc:"Lag unit (default hours)"`
		NotifyUserIDs     []uuid.UUID `json:"notify_user_ids,omitempty" doc:"Users to notify about this dependency"`
	}
}

type CreateDependencyOutput struct {
	Status int
	Body   *domain.DependencyEdge
}

type ListDependenciesInput struct {
	ID        uuid.UUID `path:"id" doc:"Task ID"`
	Direction string    `query:"direction" enum:"predecessor,successor,both" doc:"Which edges to list (default both)"`
}

type ListDependenciesOutput struct {
	Body []*domain.DependencyEdge
}

type RetireDependencyInput struct {
	ID uuid.UUID `path:"id" doc:"Dependency edge ID"`
}

type RetireTaskDependenciesInput struct {
	ID uuid.UUID `path:"id" doc:"Task ID"`
}

type RetireTaskDependenciesOutput struct {
	Body struct {
		Retired int `json:"retired" doc:"Number of edges retired"`
	}
}

func RegisterDependencyRoutes(api huma.API, wf WorkflowService) {
	huma.Register(api, huma.Operation{
		OperationID: "create-dependency",
		Method:      http.MethodPost,
		Path:        "/dependencies",
		Summary:     "Create a dependency between two tasks",
		Tags:        []string{"Dependencies"},
	}, func(ctx context.Context, input *CreateDependencyInput) (*CreateDependencyOutput, error) {
		actor, ok := middleware.ActorFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		lagUnit := domain.LagUnit(input.Body.LagUnit)
		if lagUnit == "" {
			lagUnit = domain.LagHours
		}

		cmd := workflow.CreateDependencyCommand{
			PredecessorTaskID: input.Body.PredecessorTaskID,
			SuccessorTaskID:   input.Body.SuccessorTaskID,
			Type:              domain.DependencyType(input.Body.Type),
			Lag:               domain.Lag{Amount: input.Body.LagAmount, Unit: lagUnit},
			NotifyUserIDs:     input.Body.NotifyUserIDs,
		}

		res, err := wf.CreateDependency(ctx, cmd, actor)
		if err != nil {
			return nil, mapDomainError(err)
		}

		return &CreateDependencyOutput{Status: http.StatusCreated, Body: res.Edge}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-task-dependencies",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}/dependencies",
		Summary:     "List a task's active dependency edges",
		Tags:        []string{"Dependencies"},
	}, func(ctx context.Context, input *ListDependenciesInput) (*ListDependenciesOutput, error) {
		if _, ok := middleware.ActorFromContext(ctx); !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		direction := workflow.Direction(input.Direction)
		if direction == "" {
			direction = workflow.DirectionBoth
		}

		edges, err := wf.Dependencies(ctx, input.ID, direction)
		if err != nil {
			return nil, mapDomainError(err)
		}

		return &ListDependenciesOutput{Body: edges}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "retire-dependency",
		Method:      http.MethodDelete,
		Path:        "/dependencies/{id}",
		Summary:     "Retire a dependency edge",
		Description: "Soft-retires the edge; history is preserved. Moderator or admin only.",
		Tags:        []string{"Dependencies"},
	}, func(ctx context.Context, input *RetireDependencyInput) (*struct{}, error) {
		actor, ok := middleware.ActorFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		if _, err := wf.RetireDependency(ctx, input.ID, actor); err != nil {
			return nil, mapDomainError(err)
		}

		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "retire-task-dependencies",
		Method:      http.MethodDelete,
		Path:        "/tasks/{id}/dependencies",
		Summary:     "Retire every edge touching a task",
		Description: "Cascade used when the tracker deletes a task. Moderator or admin only.",
		Tags:        []string{"Dependencies"},
	}, func(ctx context.Context, input *RetireTaskDependenciesInput) (*RetireTaskDependenciesOutput, error) {
		actor, ok := middleware.ActorFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		n, err := wf.RetireTaskEdges(ctx, input.ID, actor)
		if err != nil {
			return nil, mapDomainError(err)
		}

		out := &RetireTaskDependenciesOutput{}
		out.Body.Retired = n
		return out, nil
	})
}
