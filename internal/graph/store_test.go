package graph_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/taskflow/internal/domain"
	"github.com/gosuda/taskflow/internal/graph"
)

var (
	noLag    = domain.Lag{Amount: 0, Unit: domain.LagHours}
	anyActor = domain.Actor{UserID: uuid.New(), Role: domain.RoleUser}
)

func TestStore_AddEdge(t *testing.T) {
	t.Parallel()

	repo := newMemEdgeRepo()
	store := graph.NewStore(repo)

	pred, succ := uuid.New(), uuid.New()
	watcher := uuid.New()

	edge, err := store.AddEdge(context.Background(), pred, succ,
		domain.DependencyFinishToStart, domain.Lag{Amount: 2, Unit: domain.LagDays},
		[]uuid.UUID{watcher}, anyActor)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, edge.ID)
	assert.Equal(t, pred, edge.PredecessorTaskID)
	assert.Equal(t, succ, edge.SuccessorTaskID)
	assert.True(t, edge.IsActive)
	assert.Equal(t, anyActor.UserID, edge.CreatedBy)
	assert.Equal(t, []uuid.UUID{watcher}, edge.NotifyUserIDs)
	assert.False(t, edge.CreatedAt.IsZero())

	stored, err := store.GetEdge(context.Background(), edge.ID)
	require.NoError(t, err)
	assert.Equal(t, edge.ID, stored.ID)
}

func TestStore_AddEdge_Validation(t *testing.T) {
	t.Parallel()

	store := graph.NewStore(newMemEdgeRepo())
	a, b := uuid.New(), uuid.New()

	t.Run("unknown type", func(t *testing.T) {
		t.Parallel()

		_, err := store.AddEdge(context.Background(), a, b, "XX", noLag, nil, anyActor)
		assert.ErrorIs(t, err, domain.ErrInvalidEdge)
	})

	t.Run("negative lag", func(t *testing.T) {
		t.Parallel()

		_, err := store.AddEdge(context.Background(), a, b,
			domain.DependencyFinishToStart, domain.Lag{Amount: -1, Unit: domain.LagHours}, nil, anyActor)
		assert.ErrorIs(t, err, domain.ErrInvalidEdge)
	})

	t.Run("bad lag unit", func(t *testing.T) {
		t.Parallel()

		_, err := store.AddEdge(context.Background(), a, b,
			domain.DependencyFinishToStart, domain.Lag{Amount: 1, Unit: "weeks"}, nil, anyActor)
		assert.ErrorIs(t, err, domain.ErrInvalidEdge)
	})
}

func TestStore_AddEdge_SelfLoop(t *testing.T) {
	t.Parallel()

	store := graph.NewStore(newMemEdgeRepo())
	a := uuid.New()

	_, err := store.AddEdge(context.Background(), a, a, domain.DependencyFinishToStart, noLag, nil, anyActor)

	var cycleErr *domain.CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []uuid.UUID{a, a}, cycleErr.Path)
}

func TestStore_AddEdge_Duplicate(t *testing.T) {
	t.Parallel()

	store := graph.NewStore(newMemEdgeRepo())
	a, b := uuid.New(), uuid.New()

	_, err := store.AddEdge(context.Background(), a, b, domain.DependencyFinishToStart, noLag, nil, anyActor)
	require.NoError(t, err)

	_, err = store.AddEdge(context.Background(), a, b, domain.DependencyFinishToStart,
		domain.Lag{Amount: 5, Unit: domain.LagHours}, nil, anyActor)
	assert.ErrorIs(t, err, domain.ErrDuplicateEdge, "same pair and type is a duplicate even with a different lag")

	// A different type between the same pair is a distinct edge.
	_, err = store.AddEdge(context.Background(), a, b, domain.DependencyStartToStart, noLag, nil, anyActor)
	assert.NoError(t, err)
}

func TestStore_AddEdge_DirectCycle(t *testing.T) {
	t.Parallel()

	store := graph.NewStore(newMemEdgeRepo())
	a, b := uuid.New(), uuid.New()

	_, err := store.AddEdge(context.Background(), a, b, domain.DependencyFinishToStart, noLag, nil, anyActor)
	require.NoError(t, err)

	_, err = store.AddEdge(context.Background(), b, a, domain.DependencyFinishToStart, noLag, nil, anyActor)

	var cycleErr *domain.CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []uuid.UUID{a, b}, cycleErr.Path,
		"path runs from proposed successor back to proposed predecessor")
}

func TestStore_AddEdge_TransitiveCycle(t *testing.T) {
	t.Parallel()

	store := graph.NewStore(newMemEdgeRepo())
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	// a -> b -> c -> d
	for _, pair := range [][2]uuid.UUID{{a, b}, {b, c}, {c, d}} {
		_, err := store.AddEdge(context.Background(), pair[0], pair[1], domain.DependencyFinishToStart, noLag, nil, anyActor)
		require.NoError(t, err)
	}

	// d -> a closes the loop.
	_, err := store.AddEdge(context.Background(), d, a, domain.DependencyFinishToStart, noLag, nil, anyActor)

	var cycleErr *domain.CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []uuid.UUID{a, b, c, d}, cycleErr.Path)

	// The rejected insertion left the graph untouched; d -> an unrelated task
	// still works.
	_, err = store.AddEdge(context.Background(), d, uuid.New(), domain.DependencyFinishToStart, noLag, nil, anyActor)
	assert.NoError(t, err)
}

func TestStore_AddEdge_MixedTypesStillCycle(t *testing.T) {
	t.Parallel()

	// Cycle detection ignores edge types; any directed loop is rejected.
	store := graph.NewStore(newMemEdgeRepo())
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	_, err := store.AddEdge(context.Background(), a, b, domain.DependencyStartToStart, noLag, nil, anyActor)
	require.NoError(t, err)
	_, err = store.AddEdge(context.Background(), b, c, domain.DependencyFinishToFinish, noLag, nil, anyActor)
	require.NoError(t, err)

	_, err = store.AddEdge(context.Background(), c, a, domain.DependencyStartToFinish, noLag, nil, anyActor)

	var cycleErr *domain.CycleError
	assert.ErrorAs(t, err, &cycleErr)
}

func TestStore_AddEdge_RetiredEdgesDoNotBlock(t *testing.T) {
	t.Parallel()

	repo := newMemEdgeRepo()
	store := graph.NewStore(repo)
	a, b := uuid.New(), uuid.New()

	edge, err := store.AddEdge(context.Background(), a, b, domain.DependencyFinishToStart, noLag, nil, anyActor)
	require.NoError(t, err)
	require.NoError(t, store.RetireEdge(context.Background(), edge.ID))

	// Neither the duplicate check nor the cycle check sees retired edges.
	_, err = store.AddEdge(context.Background(), a, b, domain.DependencyFinishToStart, noLag, nil, anyActor)
	assert.NoError(t, err)
	_, err = store.AddEdge(context.Background(), b, a, domain.DependencyStartToStart, noLag, nil, anyActor)
	assert.NoError(t, err)
}

func TestStore_AddEdge_DiamondIsNotACycle(t *testing.T) {
	t.Parallel()

	store := graph.NewStore(newMemEdgeRepo())
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	// a -> b -> d and a -> c -> d: two paths, no loop.
	for _, pair := range [][2]uuid.UUID{{a, b}, {b, d}, {a, c}} {
		_, err := store.AddEdge(context.Background(), pair[0], pair[1], domain.DependencyFinishToStart, noLag, nil, anyActor)
		require.NoError(t, err)
	}

	_, err := store.AddEdge(context.Background(), c, d, domain.DependencyFinishToStart, noLag, nil, anyActor)
	assert.NoError(t, err)
}

// Random insertions against a growing graph: an edge that respects the
// existing partial order always succeeds (or is a duplicate), an edge that
// would close a cycle always fails with CycleError, and a rejected insertion
// leaves the active edge set untouched.
func TestStore_AddEdge_AcyclicityProperty(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	repo := newMemEdgeRepo()
	store := graph.NewStore(repo)

	const nodes = 12
	ids := make([]uuid.UUID, nodes)
	for i := range ids {
		ids[i] = uuid.New()
	}

	types := []domain.DependencyType{
		domain.DependencyFinishToStart,
		domain.DependencyStartToStart,
		domain.DependencyFinishToFinish,
		domain.DependencyStartToFinish,
	}

	// Shadow adjacency over node indices, mirroring what the store holds.
	adj := make([][]bool, nodes)
	for i := range adj {
		adj[i] = make([]bool, nodes)
	}
	type edgeKey struct {
		pred, succ int
		typ        domain.DependencyType
	}
	inserted := make(map[edgeKey]bool)

	var reaches func(from, to int, seen []bool) bool
	reaches = func(from, to int, seen []bool) bool {
		if from == to {
			return true
		}
		seen[from] = true
		for next := 0; next < nodes; next++ {
			if adj[from][next] && !seen[next] && reaches(next, to, seen) {
				return true
			}
		}
		return false
	}

	activeCount := func() int {
		edges, err := repo.ListActive(context.Background())
		require.NoError(t, err)
		return len(edges)
	}

	for step := 0; step < 300; step++ {
		pred, succ := rng.Intn(nodes), rng.Intn(nodes)
		typ := types[rng.Intn(len(types))]
		before := activeCount()

		_, err := store.AddEdge(context.Background(), ids[pred], ids[succ], typ, noLag, nil, anyActor)

		closesCycle := pred == succ || reaches(succ, pred, make([]bool, nodes))
		switch {
		case closesCycle:
			var cycleErr *domain.CycleError
			require.ErrorAs(t, err, &cycleErr, "step %d: edge %d->%d closes a cycle", step, pred, succ)
			assert.GreaterOrEqual(t, len(cycleErr.Path), 2)
			assert.Equal(t, before, activeCount(), "step %d: rejected edge must not change the graph", step)

		case inserted[edgeKey{pred, succ, typ}]:
			require.ErrorIs(t, err, domain.ErrDuplicateEdge, "step %d: edge %d->%d repeated", step, pred, succ)
			assert.Equal(t, before, activeCount(), "step %d: rejected edge must not change the graph", step)

		default:
			require.NoError(t, err, "step %d: edge %d->%d preserves the partial order", step, pred, succ)
			assert.Equal(t, before+1, activeCount())
			adj[pred][succ] = true
			inserted[edgeKey{pred, succ, typ}] = true
		}
	}

	assert.NoError(t, store.VerifyAcyclic(context.Background()))
}

func TestStore_AddEdge_RepoErrorPropagates(t *testing.T) {
	t.Parallel()

	repo := newMemEdgeRepo()
	boom := errors.New("pg down")
	repo.listActiveByPredecessorFunc = func(context.Context, uuid.UUID) ([]*domain.DependencyEdge, error) {
		return nil, boom
	}
	store := graph.NewStore(repo)

	_, err := store.AddEdge(context.Background(), uuid.New(), uuid.New(), domain.DependencyFinishToStart, noLag, nil, anyActor)
	assert.ErrorIs(t, err, boom)
}

func TestStore_RetireEdge(t *testing.T) {
	t.Parallel()

	repo := newMemEdgeRepo()
	store := graph.NewStore(repo)
	a, b := uuid.New(), uuid.New()

	edge, err := store.AddEdge(context.Background(), a, b, domain.DependencyFinishToStart, noLag, nil, anyActor)
	require.NoError(t, err)

	require.NoError(t, store.RetireEdge(context.Background(), edge.ID))

	// The edge still exists for history, but is inactive.
	stored, err := store.GetEdge(context.Background(), edge.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	// Retiring twice is ErrNotFound.
	assert.ErrorIs(t, store.RetireEdge(context.Background(), edge.ID), domain.ErrNotFound)
	assert.ErrorIs(t, store.RetireEdge(context.Background(), uuid.New()), domain.ErrNotFound)
}

func TestStore_RetireEdgesForTask(t *testing.T) {
	t.Parallel()

	repo := newMemEdgeRepo()
	store := graph.NewStore(repo)
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	// b sits in the middle: a -> b, b -> c, plus an unrelated a -> c.
	_, err := store.AddEdge(context.Background(), a, b, domain.DependencyFinishToStart, noLag, nil, anyActor)
	require.NoError(t, err)
	_, err = store.AddEdge(context.Background(), b, c, domain.DependencyFinishToStart, noLag, nil, anyActor)
	require.NoError(t, err)
	survivor, err := store.AddEdge(context.Background(), a, c, domain.DependencyFinishToStart, noLag, nil, anyActor)
	require.NoError(t, err)

	n, err := store.RetireEdgesForTask(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	remaining, err := store.SuccessorsOf(context.Background(), a)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, survivor.ID, remaining[0].ID)

	// No edges touch b anymore: idempotent second pass retires nothing.
	n, err = store.RetireEdgesForTask(context.Background(), b)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_PredecessorsAndSuccessors(t *testing.T) {
	t.Parallel()

	store := graph.NewStore(newMemEdgeRepo())
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	_, err := store.AddEdge(context.Background(), a, b, domain.DependencyFinishToStart, noLag, nil, anyActor)
	require.NoError(t, err)
	_, err = store.AddEdge(context.Background(), c, b, domain.DependencyStartToStart, noLag, nil, anyActor)
	require.NoError(t, err)

	preds, err := store.PredecessorsOf(context.Background(), b)
	require.NoError(t, err)
	assert.Len(t, preds, 2)

	succs, err := store.SuccessorsOf(context.Background(), a)
	require.NoError(t, err)
	require.Len(t, succs, 1)
	assert.Equal(t, b, succs[0].SuccessorTaskID)

	none, err := store.PredecessorsOf(context.Background(), a)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_VerifyAcyclic(t *testing.T) {
	t.Parallel()

	repo := newMemEdgeRepo()
	store := graph.NewStore(repo)
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	repo.seed(a, b, domain.DependencyFinishToStart, noLag)
	repo.seed(b, c, domain.DependencyFinishToStart, noLag)

	assert.NoError(t, store.VerifyAcyclic(context.Background()))

	// Seed a corrupt loop behind the store's back.
	repo.seed(c, a, domain.DependencyFinishToStart, noLag)

	assert.ErrorIs(t, store.VerifyAcyclic(context.Background()), domain.ErrGraphCorrupt)
}
