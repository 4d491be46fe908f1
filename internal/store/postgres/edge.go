package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/taskflow/internal/domain"
)

type EdgeRepo struct {
	pool *pgxpool.Pool
}

func NewEdgeRepo(pool *pgxpool.Pool) *EdgeRepo {
	return &EdgeRepo{pool: pool}
}

const edgeColumns = `id, predecessor_task_id, successor_task_id, dependency_type,
	lag_amount, lag_unit, notify_user_ids, is_active, created_by, created_at`

func (r *EdgeRepo) Insert(ctx context.Context, e *domain.DependencyEdge) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO dependency_edges (id, predecessor_task_id, successor_task_id, dependency_type, lag_amount, lag_unit, notify_user_ids, is_active, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.PredecessorTaskID, e.SuccessorTaskID, e.Type,
		e.Lag.Amount, e.Lag.Unit, e.NotifyUserIDs, e.IsActive,
		e.CreatedBy, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("edgeRepo.Insert: %w", err)
	}

	return nil
}

func (r *EdgeRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.DependencyEdge, error) {
	var e domain.DependencyEdge

	err := r.pool.QueryRow(ctx,
		`SELECT `+edgeColumns+` FROM dependency_edges WHERE id = $1`,
		id,
	).Scan(
		&e.ID, &e.PredecessorTaskID, &e.SuccessorTaskID, &e.Type,
		&e.Lag.Amount, &e.Lag.Unit, &e.NotifyUserIDs, &e.IsActive,
		&e.CreatedBy, &e.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("edgeRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("edgeRepo.GetByID: %w", err)
	}

	return &e, nil
}

func (r *EdgeRepo) Retire(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE dependency_edges SET is_active = false WHERE id = $1 AND is_active`,
		id,
	)
	if err != nil {
		return fmt.Errorf("edgeRepo.Retire: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("edgeRepo.Retire: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *EdgeRepo) RetireForTask(ctx context.Context, taskID uuid.UUID) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE dependency_edges SET is_active = false
		 WHERE is_active AND (predecessor_task_id = $1 OR successor_task_id = $1)`,
		taskID,
	)
	if err != nil {
		return 0, fmt.Errorf("edgeRepo.RetireForTask: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

func (r *EdgeRepo) ListActiveBySuccessor(ctx context.Context, taskID uuid.UUID) ([]*domain.DependencyEdge, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+edgeColumns+` FROM dependency_edges
		 WHERE successor_task_id = $1 AND is_active
		 ORDER BY created_at`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("edgeRepo.ListActiveBySuccessor: %w", err)
	}
	defer rows.Close()

	return scanEdges(rows, "edgeRepo.ListActiveBySuccessor")
}

func (r *EdgeRepo) ListActiveByPredecessor(ctx context.Context, taskID uuid.UUID) ([]*domain.DependencyEdge, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+edgeColumns+` FROM dependency_edges
		 WHERE predecessor_task_id = $1 AND is_active
		 ORDER BY created_at`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("edgeRepo.ListActiveByPredecessor: %w", err)
	}
	defer rows.Close()

	return scanEdges(rows, "edgeRepo.ListActiveByPredecessor")
}

func (r *EdgeRepo) ListActive(ctx context.Context) ([]*domain.DependencyEdge, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+edgeColumns+` FROM dependency_edges WHERE is_active ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("edgeRepo.ListActive: %w", err)
	}
	defer rows.Close()

	return scanEdges(rows, "edgeRepo.ListActive")
}

func scanEdges(rows pgx.Rows, caller string) ([]*domain.DependencyEdge, error) {
	var edges []*domain.DependencyEdge
	for rows.Next() {
		var e domain.DependencyEdge
		if err := rows.Scan(
			&e.ID, &e.PredecessorTaskID, &e.SuccessorTaskID, &e.Type,
			&e.Lag.Amount, &e.Lag.Unit, &e.NotifyUserIDs, &e.IsActive,
			&e.CreatedBy, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		edges = append(edges, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return edges, nil
}
