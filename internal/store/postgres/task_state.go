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

type TaskStateRepo struct {
	pool *pgxpool.Pool
}

func NewTaskStateRepo(pool *pgxpool.Pool) *TaskStateRepo {
	return &TaskStateRepo{pool: pool}
}

func (r *TaskStateRepo) Create(ctx context.Context, t *domain.TaskState) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO task_states (id, title, status, started_at, submitted_for_review_at, completed_at, approved_by, approved_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.Title, t.Status, t.StartedAt, t.SubmittedForReviewAt,
		t.CompletedAt, t.ApprovedBy, t.ApprovedAt, t.Version,
	)
	if err != nil {
		return fmt.Errorf("taskStateRepo.Create: %w", err)
	}

	return nil
}

func (r *TaskStateRepo) Get(ctx context.Context, id uuid.UUID) (*domain.TaskState, error) {
	var t domain.TaskState

	err := r.pool.QueryRow(ctx,
		`SELECT id, title, status, started_at, submitted_for_review_at, completed_at, approved_by, approved_at, version
		 FROM task_states WHERE id = $1`,
		id,
	).Scan(
		&t.ID, &t.Title, &t.Status, &t.StartedAt, &t.SubmittedForReviewAt,
		&t.CompletedAt, &t.ApprovedBy, &t.ApprovedAt, &t.Version,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("taskStateRepo.Get: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("taskStateRepo.Get: %w", err)
	}

	return &t, nil
}

// CompareAndSet writes the owned fields guarded by the version column. A
// lost race surfaces as ErrVersionConflict so the caller can re-fetch and
// retry; a missing row surfaces as ErrNotFound.
func (r *TaskStateRepo) CompareAndSet(ctx context.Context, t *domain.TaskState, expectedVersion int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE task_states
		 SET status = $1, started_at = $2, submitted_for_review_at = $3,
		     completed_at = $4, approved_by = $5, approved_at = $6,
		     version = version + 1
		 WHERE id = $7 AND version = $8`,
		t.Status, t.StartedAt, t.SubmittedForReviewAt,
		t.CompletedAt, t.ApprovedBy, t.ApprovedAt,
		t.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("taskStateRepo.CompareAndSet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if checkErr := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM task_states WHERE id = $1)`, t.ID,
		).Scan(&exists); checkErr != nil {
			return fmt.Errorf("taskStateRepo.CompareAndSet: %w", checkErr)
		}
		if !exists {
			return fmt.Errorf("taskStateRepo.CompareAndSet: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("taskStateRepo.CompareAndSet: %w", domain.ErrVersionConflict)
	}

	t.Version = expectedVersion + 1
	return nil
}
