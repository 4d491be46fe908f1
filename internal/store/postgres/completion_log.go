package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/taskflow/internal/domain"
)

// CompletionLogRepo is append-only by construction: it has no UPDATE or
// DELETE statements.
type CompletionLogRepo struct {
	pool *pgxpool.Pool
}

func NewCompletionLogRepo(pool *pgxpool.Pool) *CompletionLogRepo {
	return &CompletionLogRepo{pool: pool}
}

func (r *CompletionLogRepo) Append(ctx context.Context, entry *domain.CompletionLogEntry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("completionLogRepo.Append: marshal metadata: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO completion_log (id, task_id, actor_user_id, action, reason, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.TaskID, entry.ActorUserID, entry.Action,
		entry.Reason, metadata, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("completionLogRepo.Append: %w", err)
	}

	return nil
}

func (r *CompletionLogRepo) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.CompletionLogEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, task_id, actor_user_id, action, reason, metadata, created_at
		 FROM completion_log WHERE task_id = $1
		 ORDER BY created_at DESC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("completionLogRepo.ListByTask: %w", err)
	}
	defer rows.Close()

	return scanLogEntries(rows, "completionLogRepo.ListByTask")
}

func scanLogEntries(rows pgx.Rows, caller string) ([]*domain.CompletionLogEntry, error) {
	var entries []*domain.CompletionLogEntry
	for rows.Next() {
		var e domain.CompletionLogEntry
		var metadata []byte

		if err := rows.Scan(
			&e.ID, &e.TaskID, &e.ActorUserID, &e.Action,
			&e.Reason, &metadata, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
			return nil, fmt.Errorf("%s: unmarshal metadata: %w", caller, err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return entries, nil
}
