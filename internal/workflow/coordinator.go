// Package workflow orchestrates the graph store, the constraint evaluator,
// and the lifecycle state machine into the operations callers actually invoke,
// and computes notification fan-out for each of them. The coordinator performs
// no delivery I/O itself; dispatch and event publication failures are logged
// and non-fatal, while audit persistence failures always propagate.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskflow/internal/domain"
	"github.com/gosuda/taskflow/internal/graph"
	"github.com/gosuda/taskflow/internal/lifecycle"
	"github.com/gosuda/taskflow/internal/notify"
	redisstore "github.com/gosuda/taskflow/internal/store/redis"
)

// Direction selects which edges of a task to list.
type Direction string

const (
	DirectionPredecessor Direction = "predecessor"
	DirectionSuccessor   Direction = "successor"
	DirectionBoth        Direction = "both"
)

// Notifier delivers a fan-out description. *notify.Notifier satisfies this.
type Notifier interface {
	Dispatch(ctx context.Context, recipients []uuid.UUID, kind notify.EventKind, payload map[string]any) error
}

// EventPublisher pushes task events to the live event stream.
// *redisstore.PubSub satisfies this.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// DependencyCache is the best-effort edge list cache. *redisstore.Cache
// satisfies this.
type DependencyCache interface {
	GetEdges(ctx context.Context, taskID uuid.UUID, direction string) ([]*domain.DependencyEdge, bool)
	SetEdges(ctx context.Context, taskID uuid.UUID, direction string, edges []*domain.DependencyEdge)
	Invalidate(ctx context.Context, taskIDs ...uuid.UUID)
}

type Coordinator struct {
	tasks    domain.TaskStateRepository
	logs     domain.CompletionLogRepository
	graph    *graph.Store
	eval     *graph.Evaluator
	notifier Notifier
	events   EventPublisher
	cache    DependencyCache
}

// NewCoordinator wires the core components. notifier, events, and cache may be
// nil; the corresponding side effects are then skipped.
func NewCoordinator(
	tasks domain.TaskStateRepository,
	logs domain.CompletionLogRepository,
	graphStore *graph.Store,
	eval *graph.Evaluator,
	notifier Notifier,
	events EventPublisher,
	cache DependencyCache,
) *Coordinator {
	return &Coordinator{
		tasks:    tasks,
		logs:     logs,
		graph:    graphStore,
		eval:     eval,
		notifier: notifier,
		events:   events,
		cache:    cache,
	}
}

// CreateDependencyCommand is the validated input for CreateDependency.
type CreateDependencyCommand struct {
	PredecessorTaskID uuid.UUID
	SuccessorTaskID   uuid.UUID
	Type              domain.DependencyType
	Lag               domain.Lag
	NotifyUserIDs     []uuid.UUID
}

// DependencyResult is a created or retired edge plus the users notified.
type DependencyResult struct {
	Edge            *domain.DependencyEdge
	NotifiedUserIDs []uuid.UUID
}

// TransitionResult is the outcome of a successful lifecycle transition.
type TransitionResult struct {
	Task            *domain.TaskState
	Entry           *domain.CompletionLogEntry
	NotifiedUserIDs []uuid.UUID
}

// CreateDependency validates both endpoints, inserts the edge through the
// graph store's cycle check, and fans out to the edge's configured watchers.
func (c *Coordinator) CreateDependency(ctx context.Context, cmd CreateDependencyCommand, actor domain.Actor) (*DependencyResult, error) {
	pred, err := c.tasks.Get(ctx, cmd.PredecessorTaskID)
	if err != nil {
		return nil, fmt.Errorf("workflow.CreateDependency: predecessor: %w", err)
	}
	succ, err := c.tasks.Get(ctx, cmd.SuccessorTaskID)
	if err != nil {
		return nil, fmt.Errorf("workflow.CreateDependency: successor: %w", err)
	}

	edge, err := c.graph.AddEdge(ctx, cmd.PredecessorTaskID, cmd.SuccessorTaskID, cmd.Type, cmd.Lag, cmd.NotifyUserIDs, actor)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Invalidate(ctx, edge.PredecessorTaskID, edge.SuccessorTaskID)
	}

	payload := map[string]any{
		"edge_id":           edge.ID.String(),
		"predecessor_title": pred.Title,
		"successor_title":   succ.Title,
		"type":              string(edge.Type),
		"type_description":  edge.Type.Description(),
		"lag_amount":        edge.Lag.Amount,
		"lag_unit":          string(edge.Lag.Unit),
	}
	c.dispatch(ctx, edge.NotifyUserIDs, notify.EventDependencyCreated, payload)
	c.publishTaskEvent(ctx, edge.SuccessorTaskID, "dependency_created", payload)

	return &DependencyResult{Edge: edge, NotifiedUserIDs: edge.NotifyUserIDs}, nil
}

// RetireDependency soft-retires an edge. Moderator-gated: watchers rely on
// edges for planning, so removing one is a privileged act.
func (c *Coordinator) RetireDependency(ctx context.Context, edgeID uuid.UUID, actor domain.Actor) (*DependencyResult, error) {
	if !actor.Role.CanModerate() {
		return nil, &domain.UnauthorizedRoleError{Role: actor.Role, Action: "retire_dependency"}
	}

	edge, err := c.graph.GetEdge(ctx, edgeID)
	if err != nil {
		return nil, err
	}

	if err := c.graph.RetireEdge(ctx, edgeID); err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Invalidate(ctx, edge.PredecessorTaskID, edge.SuccessorTaskID)
	}

	payload := map[string]any{
		"edge_id":             edge.ID.String(),
		"predecessor_task_id": edge.PredecessorTaskID.String(),
		"successor_task_id":   edge.SuccessorTaskID.String(),
		"type":                string(edge.Type),
	}
	if pred, getErr := c.tasks.Get(ctx, edge.PredecessorTaskID); getErr == nil {
		payload["predecessor_title"] = pred.Title
	}
	if succ, getErr := c.tasks.Get(ctx, edge.SuccessorTaskID); getErr == nil {
		payload["successor_title"] = succ.Title
	}
	c.dispatch(ctx, edge.NotifyUserIDs, notify.EventDependencyRetired, payload)
	c.publishTaskEvent(ctx, edge.SuccessorTaskID, "dependency_retired", payload)

	return &DependencyResult{Edge: edge, NotifiedUserIDs: edge.NotifyUserIDs}, nil
}

// RetireTaskEdges cascade-retires every edge touching a task, for the external
// tracker's task deletion.
func (c *Coordinator) RetireTaskEdges(ctx context.Context, taskID uuid.UUID, actor domain.Actor) (int, error) {
	if !actor.Role.CanModerate() {
		return 0, &domain.UnauthorizedRoleError{Role: actor.Role, Action: "retire_task_edges"}
	}

	// Collect the neighbor ids before retiring so their caches can be dropped.
	neighbors := map[uuid.UUID]struct{}{taskID: {}}
	if preds, err := c.graph.PredecessorsOf(ctx, taskID); err == nil {
		for _, e := range preds {
			neighbors[e.PredecessorTaskID] = struct{}{}
		}
	}
	if succs, err := c.graph.SuccessorsOf(ctx, taskID); err == nil {
		for _, e := range succs {
			neighbors[e.SuccessorTaskID] = struct{}{}
		}
	}

	n, err := c.graph.RetireEdgesForTask(ctx, taskID)
	if err != nil {
		return 0, err
	}

	if c.cache != nil && n > 0 {
		ids := make([]uuid.UUID, 0, len(neighbors))
		for id := range neighbors {
			ids = append(ids, id)
		}
		c.cache.Invalidate(ctx, ids...)
	}

	return n, nil
}

// Dependencies lists a task's active edges, served from the cache when warm.
func (c *Coordinator) Dependencies(ctx context.Context, taskID uuid.UUID, direction Direction) ([]*domain.DependencyEdge, error) {
	if direction == "" {
		direction = DirectionBoth
	}

	if c.cache != nil {
		if edges, ok := c.cache.GetEdges(ctx, taskID, string(direction)); ok {
			return edges, nil
		}
	}

	var edges []*domain.DependencyEdge
	switch direction {
	case DirectionPredecessor:
		preds, err := c.graph.PredecessorsOf(ctx, taskID)
		if err != nil {
			return nil, err
		}
		edges = preds
	case DirectionSuccessor:
		succs, err := c.graph.SuccessorsOf(ctx, taskID)
		if err != nil {
			return nil, err
		}
		edges = succs
	case DirectionBoth:
		preds, err := c.graph.PredecessorsOf(ctx, taskID)
		if err != nil {
			return nil, err
		}
		succs, err := c.graph.SuccessorsOf(ctx, taskID)
		if err != nil {
			return nil, err
		}
		edges = append(preds, succs...)
	default:
		return nil, fmt.Errorf("workflow.Dependencies: direction %q: %w", direction, domain.ErrInvalidEdge)
	}

	if c.cache != nil {
		c.cache.SetEdges(ctx, taskID, string(direction), edges)
	}
	return edges, nil
}

// Transition runs one lifecycle action end to end: state machine validation,
// dependency gating at a fresh read, compare-and-swap commit, audit append,
// then fan-out. Any rejection before the commit leaves task state, graph, and
// log untouched.
func (c *Coordinator) Transition(ctx context.Context, taskID uuid.UUID, action lifecycle.Action, actor domain.Actor, reason string) (*TransitionResult, error) {
	state, err := c.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("workflow.Transition: %w", err)
	}

	now := time.Now().UTC()

	res, err := lifecycle.Apply(state, action, actor, reason, now)
	if err != nil {
		return nil, err
	}

	if action.Gated() {
		if err := c.eval.EvaluateAll(ctx, taskID, action.Target(), now); err != nil {
			return nil, err
		}
	}

	if err := c.tasks.CompareAndSet(ctx, res.State, state.Version); err != nil {
		return nil, fmt.Errorf("workflow.Transition: %w", err)
	}

	// The audit sink must not fail silently: a commit without its log entry
	// is reported to the caller even though the status change stuck.
	if err := c.logs.Append(ctx, res.Entry); err != nil {
		return nil, fmt.Errorf("workflow.Transition: audit append: %w", err)
	}

	fanout, err := c.dependentWatchers(ctx, taskID)
	if err != nil {
		log.Warn().Err(err).Str("task_id", taskID.String()).Msg("fan-out computation failed")
		fanout = nil
	}

	payload := map[string]any{
		"task_id": taskID.String(),
		"title":   res.State.Title,
		"action":  string(action),
		"from":    string(state.Status),
		"to":      string(res.State.Status),
	}
	if reason != "" {
		payload["reason"] = reason
	}
	c.dispatch(ctx, fanout, notify.EventTaskTransitioned, payload)
	c.publishTaskEvent(ctx, taskID, "task_transitioned", payload)

	return &TransitionResult{Task: res.State, Entry: res.Entry, NotifiedUserIDs: fanout}, nil
}

// BlockingDependencies surfaces every edge currently blocking taskID from
// reaching target, for UI display.
func (c *Coordinator) BlockingDependencies(ctx context.Context, taskID uuid.UUID, target domain.TaskStatus) ([]graph.Violation, error) {
	return c.eval.BlockingEdges(ctx, taskID, target, time.Now().UTC())
}

// TaskState returns the current owned snapshot of a task.
func (c *Coordinator) TaskState(ctx context.Context, taskID uuid.UUID) (*domain.TaskState, error) {
	return c.tasks.Get(ctx, taskID)
}

// TaskLog returns the task's completion log, newest first.
func (c *Coordinator) TaskLog(ctx context.Context, taskID uuid.UUID) ([]*domain.CompletionLogEntry, error) {
	return c.logs.ListByTask(ctx, taskID)
}

// dependentWatchers unions NotifyUserIDs across every edge where the task is
// the predecessor: its dependents' stakeholders, whose constraints may now be
// satisfied.
func (c *Coordinator) dependentWatchers(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error) {
	edges, err := c.graph.SuccessorsOf(ctx, taskID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, e := range edges {
		for _, id := range e.NotifyUserIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out, nil
}

func (c *Coordinator) dispatch(ctx context.Context, recipients []uuid.UUID, kind notify.EventKind, payload map[string]any) {
	if c.notifier == nil || len(recipients) == 0 {
		return
	}
	if err := c.notifier.Dispatch(ctx, recipients, kind, payload); err != nil {
		log.Warn().Err(err).Str("kind", string(kind)).Msg("notification fan-out failed")
	}
}

func (c *Coordinator) publishTaskEvent(ctx context.Context, taskID uuid.UUID, event string, payload map[string]any) {
	if c.events == nil {
		return
	}

	body, err := json.Marshal(map[string]any{"event": event, "data": payload})
	if err != nil {
		log.Warn().Err(err).Str("event", event).Msg("event encode failed")
		return
	}

	if err := c.events.Publish(ctx, redisstore.TaskChannel(taskID), body); err != nil {
		log.Warn().Err(err).Str("event", event).Msg("task event publish failed")
	}
	if err := c.events.Publish(ctx, redisstore.EventsChannel(), body); err != nil {
		log.Warn().Err(err).Str("event", event).Msg("events feed publish failed")
	}
}
