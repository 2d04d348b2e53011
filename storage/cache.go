package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ellevenagent/project-dashboard/domain"
)

const tasksCacheKey = "board:tasks"

// Cache wraps a Store with Redis-backed caching for List. Writes go through
// to the base store and evict the cached list, keeping read-after-write
// consistent. Redis errors degrade to the base store without failing the
// request.
type Cache struct {
	base  Store
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base Store, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) Kind() string { return c.base.Kind() }

func (c *Cache) List(ctx context.Context) ([]domain.Task, error) {
	if tasks, ok := c.loadFromCache(ctx); ok {
		return tasks, nil
	}
	tasks, err := c.base.List(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, tasks)
	return tasks, nil
}

func (c *Cache) Upsert(ctx context.Context, patch domain.TaskPatch) (domain.Task, bool, error) {
	t, created, err := c.base.Upsert(ctx, patch)
	if err != nil {
		return domain.Task{}, false, err
	}
	c.evict(ctx)
	return t, created, nil
}

func (c *Cache) Delete(ctx context.Context, id int64) error {
	if err := c.base.Delete(ctx, id); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) loadFromCache(ctx context.Context) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, tasksCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing store without failing.
			_ = c.redis.Del(ctx, tasksCacheKey).Err()
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, tasksCacheKey).Err()
		return nil, false
	}
	return tasks, true
}

func (c *Cache) store(ctx context.Context, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, tasksCacheKey, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, tasksCacheKey).Result()
}
