package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskflow/internal/domain"
)

// cacheTTL matches the original tracker's one-hour dependency list cache.
const cacheTTL = time.Hour

// Cache holds JSON-encoded dependency edge lists keyed by task and direction.
// It is strictly best-effort: every error is logged and swallowed so a Redis
// outage degrades to direct reads, never to request failures.
type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func depsKey(taskID uuid.UUID, direction string) string {
	return "deps:" + taskID.String() + ":" + direction
}

// GetEdges returns the cached edge list for (taskID, direction), or false on
// miss or error.
func (c *Cache) GetEdges(ctx context.Context, taskID uuid.UUID, direction string) ([]*domain.DependencyEdge, bool) {
	raw, err := c.client.Get(ctx, depsKey(taskID, direction)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("task_id", taskID.String()).Msg("dependency cache get failed")
		}
		return nil, false
	}

	var edges []*domain.DependencyEdge
	if err := json.Unmarshal(raw, &edges); err != nil {
		log.Warn().Err(err).Str("task_id", taskID.String()).Msg("dependency cache decode failed")
		return nil, false
	}
	return edges, true
}

// SetEdges stores the edge list for (taskID, direction).
func (c *Cache) SetEdges(ctx context.Context, taskID uuid.UUID, direction string, edges []*domain.DependencyEdge) {
	raw, err := json.Marshal(edges)
	if err != nil {
		log.Warn().Err(err).Str("task_id", taskID.String()).Msg("dependency cache encode failed")
		return
	}
	if err := c.client.Set(ctx, depsKey(taskID, direction), raw, cacheTTL).Err(); err != nil {
		log.Warn().Err(err).Str("task_id", taskID.String()).Msg("dependency cache set failed")
	}
}

// Invalidate drops all cached directions for the given tasks. Called after
// any edge mutation touching them.
func (c *Cache) Invalidate(ctx context.Context, taskIDs ...uuid.UUID) {
	keys := make([]string, 0, len(taskIDs)*3)
	for _, id := range taskIDs {
		keys = append(keys,
			depsKey(id, "predecessor"),
			depsKey(id, "successor"),
			depsKey(id, "both"),
		)
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Warn().Err(err).Msg("dependency cache invalidate failed")
	}
}
