package workflow_test

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/gosuda/taskflow/internal/domain"
	"github.com/gosuda/taskflow/internal/notify"
)

// ---------------------------------------------------------------------------
// In-memory EdgeRepository (graph side)
// ---------------------------------------------------------------------------

type memEdgeRepo struct {
	mu    sync.Mutex
	edges map[uuid.UUID]*domain.DependencyEdge
}

func newMemEdgeRepo() *memEdgeRepo {
	return &memEdgeRepo{edges: make(map[uuid.UUID]*domain.DependencyEdge)}
}

func (m *memEdgeRepo) Insert(_ context.Context, e *domain.DependencyEdge) error {
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

func (m *memEdgeRepo) ListActiveBySuccessor(_ context.Context, taskID uuid.UUID) ([]*domain.DependencyEdge, error) {
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

func (m *memEdgeRepo) ListActiveByPredecessor(_ context.Context, taskID uuid.UUID) ([]*domain.DependencyEdge, error) {
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

// ---------------------------------------------------------------------------
// In-memory TaskStateRepository with CAS semantics
// ---------------------------------------------------------------------------

type memTaskRepo struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.TaskState

	compareAndSetFunc func(ctx context.Context, t *domain.TaskState, expectedVersion int64) error
}

func newMemTaskRepo(states ...*domain.TaskState) *memTaskRepo {
	m := &memTaskRepo{tasks: make(map[uuid.UUID]*domain.TaskState)}
	for _, s := range states {
		m.tasks[s.ID] = s
	}
	return m
}

func (m *memTaskRepo) Create(_ context.Context, t *domain.TaskState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID] = t.Clone()
	return nil
}

func (m *memTaskRepo) Get(_ context.Context, id uuid.UUID) (*domain.TaskState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return t.Clone(), nil
}

func (m *memTaskRepo) CompareAndSet(ctx context.Context, t *domain.TaskState, expectedVersion int64) error {
	if m.compareAndSetFunc != nil {
		return m.compareAndSetFunc(ctx, t, expectedVersion)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.tasks[t.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	t.Version = expectedVersion + 1
	m.tasks[t.ID] = t.Clone()
	return nil
}

// ---------------------------------------------------------------------------
// Completion log sink
// ---------------------------------------------------------------------------

type memLogRepo struct {
	mu      sync.Mutex
	entries []*domain.CompletionLogEntry

	appendFunc func(ctx context.Context, entry *domain.CompletionLogEntry) error
}

func (m *memLogRepo) Append(ctx context.Context, entry *domain.CompletionLogEntry) error {
	if m.appendFunc != nil {
		return m.appendFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memLogRepo) ListByTask(_ context.Context, taskID uuid.UUID) ([]*domain.CompletionLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.CompletionLogEntry
	// Newest first, matching the pg repository's ordering.
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].TaskID == taskID {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Recording notifier and publisher
// ---------------------------------------------------------------------------

type recordedDispatch struct {
	recipients []uuid.UUID
	kind       notify.EventKind
	payload    map[string]any
}

type mockNotifier struct {
	mu         sync.Mutex
	dispatches []recordedDispatch
	err        error
}

func (m *mockNotifier) Dispatch(_ context.Context, recipients []uuid.UUID, kind notify.EventKind, payload map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatches = append(m.dispatches, recordedDispatch{recipients: recipients, kind: kind, payload: payload})
	return m.err
}

type mockPublisher struct {
	mu       sync.Mutex
	messages map[string][][]byte
	err      error
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{messages: make(map[string][][]byte)}
}

func (m *mockPublisher) Publish(_ context.Context, channel string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[channel] = append(m.messages[channel], payload)
	return m.err
}

type mockCache struct {
	mu          sync.Mutex
	invalidated []uuid.UUID
	getFunc     func(ctx context.Context, taskID uuid.UUID, direction string) ([]*domain.DependencyEdge, bool)
	sets        int
}

func (m *mockCache) GetEdges(ctx context.Context, taskID uuid.UUID, direction string) ([]*domain.DependencyEdge, bool) {
	if m.getFunc != nil {
		return m.getFunc(ctx, taskID, direction)
	}
	return nil, false
}

func (m *mockCache) SetEdges(context.Context, uuid.UUID, string, []*domain.DependencyEdge) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
}

func (m *mockCache) Invalidate(_ context.Context, taskIDs ...uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, taskIDs...)
}
