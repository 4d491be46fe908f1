package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/taskflow/internal/domain"
)

type Store struct {
	pool  *pgxpool.Pool
	tasks *TaskStateRepo
	edges *EdgeRepo
	logs  *CompletionLogRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:  pool,
		tasks: NewTaskStateRepo(pool),
		edges: NewEdgeRepo(pool),
		logs:  NewCompletionLogRepo(pool),
	}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Tasks() domain.TaskStateRepository { return s.tasks }

func (s *Store) Edges() domain.EdgeRepository { return s.edges }

func (s *Store) CompletionLogs() domain.CompletionLogRepository { return s.logs }
