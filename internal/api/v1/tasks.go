package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/taskflow/internal/domain"
	"github.com/gosuda/taskflow/internal/lifecycle"
	"github.com/gosuda/taskflow/internal/server/middleware"
)

type TransitionTaskInput struct {
	ID   uuid.UUID `path:"id" doc:"Task ID"`
	Body struct {
		Action string `json:"action" enum:"start,submit_for_review,complete,approve,reject,uncomplete" doc:"Lifecycle action"`
		Reason string `json:"reason,omitempty" doc:"Required for reject and uncomplete"`
	}
}

type TransitionTaskOutput struct {
	Body struct {
		Task            *domain.TaskState          `json:"task"`
		LogEntry        *domain.CompletionLogEntry `json:"log_entry"`
		NotifiedUserIDs []uuid.UUID                `json:"notified_user_ids,omitempty"`
	}
}

type GetTaskStateInput struct {
	ID uuid.UUID `path:"id" doc:"Task ID"`
}

type GetTaskStateOutput struct {
	Body *domain.TaskState
}

type BlockingDependenciesInput struct {
	ID     uuid.UUID `path:"id" doc:"Task ID"`
	Target string    `query:"target" required:"true" enum:"in_progress,done" doc:"Target status to evaluate"`
}

// BlockingEdge is one violation rendered for UI display.
type BlockingEdge struct {
	EdgeID            uuid.UUID `json:"edge_id"`
	PredecessorTaskID uuid.UUID `json:"predecessor_task_id"`
	Type              string    `json:"type"`
	Reason            string    `json:"reason"`
}

type BlockingDependenciesOutput struct {
	Body []BlockingEdge
}

type TaskLogInput struct {
	ID uuid.UUID `path:"id" doc:"Task ID"`
}

type TaskLogOutput struct {
	Body []*domain.CompletionLogEntry
}

func RegisterTaskRoutes(api huma.API, wf WorkflowService) {
	huma.Register(api, huma.Operation{
		OperationID: "transition-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/transition",
		Summary:     "Apply a lifecycle action to a task",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TransitionTaskInput) (*TransitionTaskOutput, error) {
		actor, ok := middleware.ActorFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		res, err := wf.Transition(ctx, input.ID, lifecycle.Action(input.Body.Action), actor, input.Body.Reason)
		if err != nil {
			return nil, mapDomainError(err)
		}

		out := &TransitionTaskOutput{}
		out.Body.Task = res.Task
		out.Body.LogEntry = res.Entry
		out.Body.NotifiedUserIDs = res.NotifiedUserIDs
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task-state",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}/state",
		Summary:     "Get the lifecycle state of a task",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *GetTaskStateInput) (*GetTaskStateOutput, error) {
		if _, ok := middleware.ActorFromContext(ctx); !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		state, err := wf.TaskState(ctx, input.ID)
		if err != nil {
			return nil, mapDomainError(err)
		}

		return &GetTaskStateOutput{Body: state}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-blocking-dependencies",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}/blocking",
		Summary:     "List every edge currently blocking a task from a target status",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *BlockingDependenciesInput) (*BlockingDependenciesOutput, error) {
		if _, ok := middleware.ActorFromContext(ctx); !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		violations, err := wf.BlockingDependencies(ctx, input.ID, domain.TaskStatus(input.Target))
		if err != nil {
			return nil, mapDomainError(err)
		}

		out := make([]BlockingEdge, 0, len(violations))
		for _, v := range violations {
			out = append(out, BlockingEdge{
				EdgeID:            v.Edge.ID,
				PredecessorTaskID: v.Edge.PredecessorTaskID,
				Type:              string(v.Edge.Type),
				Reason:            v.Reason.Error(),
			})
		}

		return &BlockingDependenciesOutput{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task-log",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}/log",
		Summary:     "Get a task's completion log, newest first",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskLogInput) (*TaskLogOutput, error) {
		if _, ok := middleware.ActorFromContext(ctx); !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		entries, err := wf.TaskLog(ctx, input.ID)
		if err != nil {
			return nil, mapDomainError(err)
		}

		return &TaskLogOutput{Body: entries}, nil
	})
}
