package graph_test

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/gosuda/taskflow/internal/domain"
)

// ---------------------------------------------------------------------------
// In-memory EdgeRepository
// ---------------------------------------------------------------------------

// memEdgeRepo is a map-backed EdgeRepository. Individual methods can be
// overridden through func fields to inject failures.
type memEdgeRepo struct {
	mu    sync.Mutex
	edges map[uuid.UUID]*domain.DependencyEdge

	insertFunc                  func(ctx context.Context, e *domain.DependencyEdge) error
	listActiveByPredecessorFunc func(ctx context.Context, taskID uuid.UUID) ([]*domain.DependencyEdge, error)
	listActiveBySuccessorFunc   func(ctx context.Context, taskID uuid.UUID) ([]*domain.DependencyEdge, error)
}

func newMemEdgeRepo() *memEdgeRepo {
	return &memEdgeRepo{edges: make(map[uuid.UUID]*domain.DependencyEdge)}
}

func (m *memEdgeRepo) Insert(ctx context.Context, e *domain.DependencyEdge) error {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges[e.ID] = e
	return nil
}

func (m *memEdgeRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.DependencyEdge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.edges[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

func (m *memEdgeRepo) Retire(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.edges[id]
	if !ok || !e.IsActive {
		return domain.ErrNotFound
	}
	e.IsActive = false
	return nil
}

func (m *memEdgeRepo) RetireForTask(_ context.Context, taskID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.edges {
		if e.IsActive && (e.PredecessorTaskID == taskID || e.SuccessorTaskID == taskID) {
			e.IsActive = false
			n++
		}
	}
	return n, nil
}

func (m *memEdgeRepo) ListActiveBySuccessor(ctx context.Context, taskID uuid.UUID) ([]*domain.DependencyEdge, error) {
	if m.listActiveBySuccessorFunc != nil {
		return m.listActiveBySuccessorFunc(ctx, taskID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.DependencyEdge
	for _, e := range m.edges {
		if e.IsActive && e.SuccessorTaskID == taskID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEdgeRepo) ListActiveByPredecessor(ctx context.Context, taskID uuid.UUID) ([]*domain.DependencyEdge, error) {
	if m.listActiveByPredecessorFunc != nil {
		return m.listActiveByPredecessorFunc(ctx, taskID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.DependencyEdge
	for _, e := range m.edges {
		if e.IsActive && e.PredecessorTaskID == taskID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEdgeRepo) ListActive(_ context.Context) ([]*domain.DependencyEdge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.DependencyEdge
	for _, e := range m.edges {
		if e.IsActive {
			out = append(out, e)
		}
	}
	return out, nil
}

// seed installs an active edge directly, bypassing the store's checks.
func (m *memEdgeRepo) seed(pred, succ uuid.UUID, typ domain.DependencyType, lag domain.Lag) *domain.DependencyEdge {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := &domain.DependencyEdge{
		ID:                uuid.New(),
		PredecessorTaskID: pred,
		SuccessorTaskID:   succ,
		Type:              typ,
		Lag:               lag,
		IsActive:          true,
	}
	m.edges[e.ID] = e
	return e
}

// ---------------------------------------------------------------------------
// Mock TaskStateRepository
// ---------------------------------------------------------------------------

type mockTaskRepo struct {
	createFunc        func(ctx context.Context, t *domain.TaskState) error
	getFunc           func(ctx context.Context, id uuid.UUID) (*domain.TaskState, error)
	compareAndSetFunc func(ctx context.Context, t *domain.TaskState, expectedVersion int64) error
}

func (m *mockTaskRepo) Create(ctx context.Context, t *domain.TaskState) error {
	return m.createFunc(ctx, t)
}

func (m *mockTaskRepo) Get(ctx context.Context, id uuid.UUID) (*domain.TaskState, error) {
	return m.getFunc(ctx, id)
}

func (m *mockTaskRepo) CompareAndSet(ctx context.Context, t *domain.TaskState, expectedVersion int64) error {
	return m.compareAndSetFunc(ctx, t, expectedVersion)
}

// taskFixture builds a Get func over a fixed set of task states.
func taskFixture(states ...*domain.TaskState) *mockTaskRepo {
	byID := make(map[uuid.UUID]*domain.TaskState, len(states))
	for _, s := range states {
		byID[s.ID] = s
	}
	return &mockTaskRepo{
		getFunc: func(_ context.Context, id uuid.UUID) (*domain.TaskState, error) {
			s, ok := byID[id]
			if !ok {
				return nil, domain.ErrNotFound
			}
			return s, nil
		},
	}
}
