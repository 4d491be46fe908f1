// Package graph maintains the directed multigraph of active dependency edges
// and guarantees it stays acyclic, and evaluates FS/SS/FF/SF constraints
// against candidate task transitions.
package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/taskflow/internal/domain"
)

// Store guards the dependency graph's one invariant: the active edges form a
// DAG. All mutations serialize through a single-writer mutex so two concurrent
// insertions that would jointly (but not individually) close a cycle cannot
// both succeed.
type Store struct {
	mu    sync.Mutex
	edges domain.EdgeRepository
}

func NewStore(edges domain.EdgeRepository) *Store {
	return &Store{edges: edges}
}

// AddEdge inserts a new active edge after checking that it cannot close a
// cycle. A rejected insertion leaves the graph unchanged.
func (s *Store) AddEdge(ctx context.Context, pred, succ uuid.UUID, typ domain.DependencyType, lag domain.Lag, notifyUserIDs []uuid.UUID, actor domain.Actor) (*domain.DependencyEdge, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("graph.Store.AddEdge: type %q: %w", typ, domain.ErrInvalidEdge)
	}
	if !lag.Valid() {
		return nil, fmt.Errorf("graph.Store.AddEdge: lag %+v: %w", lag, domain.ErrInvalidEdge)
	}
	if pred == succ {
		// Degenerate cycle.
		return nil, &domain.CycleError{Path: []uuid.UUID{pred, succ}}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.edges.ListActiveByPredecessor(ctx, pred)
	if err != nil {
		return nil, fmt.Errorf("graph.Store.AddEdge: %w", err)
	}
	for _, e := range existing {
		if e.SuccessorTaskID == succ && e.Type == typ {
			return nil, fmt.Errorf("graph.Store.AddEdge: %w", domain.ErrDuplicateEdge)
		}
	}

	path, err := s.findPath(ctx, succ, pred)
	if err != nil {
		return nil, fmt.Errorf("graph.Store.AddEdge: %w", err)
	}
	if path != nil {
		return nil, &domain.CycleError{Path: path}
	}

	edge := &domain.DependencyEdge{
		ID:                uuid.New(),
		PredecessorTaskID: pred,
		SuccessorTaskID:   succ,
		Type:              typ,
		Lag:               lag,
		NotifyUserIDs:     notifyUserIDs,
		IsActive:          true,
		CreatedBy:         actor.UserID,
		CreatedAt:         time.Now().UTC(),
	}

	if err := s.edges.Insert(ctx, edge); err != nil {
		return nil, fmt.Errorf("graph.Store.AddEdge: %w", err)
	}

	return edge, nil
}

// findPath runs a depth-first traversal from "from" along active successor
// edges looking for "to". The visited set makes the walk cycle-safe; since the
// existing graph is acyclic by invariant, termination needs no further
// bookkeeping. Returns the task-id path when found, nil otherwise.
func (s *Store) findPath(ctx context.Context, from, to uuid.UUID) ([]uuid.UUID, error) {
	visited := make(map[uuid.UUID]struct{})

	var walk func(current uuid.UUID, trail []uuid.UUID) ([]uuid.UUID, error)
	walk = func(current uuid.UUID, trail []uuid.UUID) ([]uuid.UUID, error) {
		if current == to {
			return append(trail, current), nil
		}
		if _, seen := visited[current]; seen {
			return nil, nil
		}
		visited[current] = struct{}{}

		out, err := s.edges.ListActiveByPredecessor(ctx, current)
		if err != nil {
			return nil, err
		}
		for _, e := range out {
			found, err := walk(e.SuccessorTaskID, append(trail, current))
			if err != nil {
				return nil, err
			}
			if found != nil {
				return found, nil
			}
		}
		return nil, nil
	}

	return walk(from, nil)
}

// GetEdge returns an edge by id, active or retired.
func (s *Store) GetEdge(ctx context.Context, edgeID uuid.UUID) (*domain.DependencyEdge, error) {
	e, err := s.edges.GetByID(ctx, edgeID)
	if err != nil {
		return nil, fmt.Errorf("graph.Store.GetEdge: %w", err)
	}
	return e, nil
}

// RetireEdge soft-retires an active edge. History is never deleted.
func (s *Store) RetireEdge(ctx context.Context, edgeID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.edges.Retire(ctx, edgeID); err != nil {
		return fmt.Errorf("graph.Store.RetireEdge: %w", err)
	}
	return nil
}

// RetireEdgesForTask retires every active edge touching taskID. Used when the
// external tracker deletes a task.
func (s *Store) RetireEdgesForTask(ctx context.Context, taskID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.edges.RetireForTask(ctx, taskID)
	if err != nil {
		return 0, fmt.Errorf("graph.Store.RetireEdgesForTask: %w", err)
	}
	return n, nil
}

// PredecessorsOf returns the active edges where taskID is the successor.
func (s *Store) PredecessorsOf(ctx context.Context, taskID uuid.UUID) ([]*domain.DependencyEdge, error) {
	edges, err := s.edges.ListActiveBySuccessor(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("graph.Store.PredecessorsOf: %w", err)
	}
	return edges, nil
}

// SuccessorsOf returns the active edges where taskID is the predecessor.
func (s *Store) SuccessorsOf(ctx context.Context, taskID uuid.UUID) ([]*domain.DependencyEdge, error) {
	edges, err := s.edges.ListActiveByPredecessor(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("graph.Store.SuccessorsOf: %w", err)
	}
	return edges, nil
}

// VerifyAcyclic walks the whole active graph and returns ErrGraphCorrupt if a
// cycle is found. The insertion-time check makes this impossible unless a
// writer bypassed the store, so a failure here is an integrity fault to be
// surfaced loudly, not repaired.
func (s *Store) VerifyAcyclic(ctx context.Context) error {
	edges, err := s.edges.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("graph.Store.VerifyAcyclic: %w", err)
	}

	adj := make(map[uuid.UUID][]uuid.UUID)
	for _, e := range edges {
		adj[e.PredecessorTaskID] = append(adj[e.PredecessorTaskID], e.SuccessorTaskID)
	}

	const (
		white = 0 // unvisited
		grey  = 1 // on the current path
		black = 2 // fully explored
	)
	color := make(map[uuid.UUID]int, len(adj))

	var visit func(n uuid.UUID) bool
	visit = func(n uuid.UUID) bool {
		color[n] = grey
		for _, next := range adj[n] {
			switch color[next] {
			case grey:
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		color[n] = black
		return false
	}

	for n := range adj {
		if color[n] == white && visit(n) {
			return fmt.Errorf("graph.Store.VerifyAcyclic: %w", domain.ErrGraphCorrupt)
		}
	}
	return nil
}
