package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"trellis-api/domain"
)

type backend interface {
	InsertUser(ctx context.Context, u domain.User) error
	FindUserByEmail(ctx context.Context, email string) (domain.User, error)

	ListProjects(ctx context.Context, userID string) ([]domain.Project, error)
	GetProject(ctx context.Context, userID, projectID string) (domain.Project, error)
	InsertProject(ctx context.Context, p domain.Project) error
	UpdateProject(ctx context.Context, userID, projectID string, patch domain.ProjectPatch) (domain.Project, error)
	DeleteProject(ctx context.Context, userID, projectID string) (domain.Project, error)

	GetTask(ctx context.Context, userID, taskID string) (domain.Task, error)
	InsertTask(ctx context.Context, t domain.Task) error
	UpdateTask(ctx context.Context, userID, taskID string, patch domain.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, userID, taskID string) (domain.Task, error)
	ListTasks(ctx context.Context, userID, projectID string) ([]domain.Task, error)
	ListAllTasks(ctx context.Context, userID string) ([]domain.Task, error)
}

// Cache wraps a Storage instance with Redis-backed caching for list reads.
// The cached copy is never authoritative: any mutation evicts the affected
// keys so the next read goes back to the store.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func projectsCacheKey(userID string) string { return "projects:" + userID }

func tasksCacheKey(userID, projectID string) string {
	return "tasks:" + userID + ":" + projectID
}

// InsertUser delegates; user records are not cached.
func (c *Cache) InsertUser(ctx context.Context, u domain.User) error {
	return c.base.InsertUser(ctx, u)
}

// FindUserByEmail delegates; credential lookups always hit the store.
func (c *Cache) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return c.base.FindUserByEmail(ctx, email)
}

// ListProjects serves the project list from Redis when possible.
func (c *Cache) ListProjects(ctx context.Context, userID string) ([]domain.Project, error) {
	if projects, ok := loadCached[[]domain.Project](ctx, c.redis, projectsCacheKey(userID)); ok {
		return projects, nil
	}
	projects, err := c.base.ListProjects(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, projectsCacheKey(userID), projects)
	return projects, nil
}

func (c *Cache) GetProject(ctx context.Context, userID, projectID string) (domain.Project, error) {
	return c.base.GetProject(ctx, userID, projectID)
}

func (c *Cache) InsertProject(ctx context.Context, p domain.Project) error {
	if err := c.base.InsertProject(ctx, p); err != nil {
		return err
	}
	c.evict(ctx, projectsCacheKey(p.CreatedBy))
	return nil
}

func (c *Cache) UpdateProject(ctx context.Context, userID, projectID string, patch domain.ProjectPatch) (domain.Project, error) {
	p, err := c.base.UpdateProject(ctx, userID, projectID, patch)
	if err != nil {
		return domain.Project{}, err
	}
	c.evict(ctx, projectsCacheKey(userID))
	return p, nil
}

func (c *Cache) DeleteProject(ctx context.Context, userID, projectID string) (domain.Project, error) {
	p, err := c.base.DeleteProject(ctx, userID, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	c.evict(ctx, projectsCacheKey(userID))
	return p, nil
}

func (c *Cache) GetTask(ctx context.Context, userID, taskID string) (domain.Task, error) {
	return c.base.GetTask(ctx, userID, taskID)
}

func (c *Cache) InsertTask(ctx context.Context, t domain.Task) error {
	if err := c.base.InsertTask(ctx, t); err != nil {
		return err
	}
	c.evict(ctx, tasksCacheKey(t.CreatedBy, t.ProjectID))
	return nil
}

func (c *Cache) UpdateTask(ctx context.Context, userID, taskID string, patch domain.TaskPatch) (domain.Task, error) {
	t, err := c.base.UpdateTask(ctx, userID, taskID, patch)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx, tasksCacheKey(userID, t.ProjectID))
	return t, nil
}

func (c *Cache) DeleteTask(ctx context.Context, userID, taskID string) (domain.Task, error) {
	t, err := c.base.DeleteTask(ctx, userID, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx, tasksCacheKey(userID, t.ProjectID))
	return t, nil
}

// ListTasks serves a project's task list from Redis when possible.
func (c *Cache) ListTasks(ctx context.Context, userID, projectID string) ([]domain.Task, error) {
	if tasks, ok := loadCached[[]domain.Task](ctx, c.redis, tasksCacheKey(userID, projectID)); ok {
		return tasks, nil
	}
	tasks, err := c.base.ListTasks(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, tasksCacheKey(userID, projectID), tasks)
	return tasks, nil
}

// ListAllTasks always hits the store; the search surface is rare enough that
// a cross-project cache key is not worth invalidating.
func (c *Cache) ListAllTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	return c.base.ListAllTasks(ctx, userID)
}

func loadCached[T any](ctx context.Context, client *redis.Client, key string) (T, bool) {
	var zero T
	if client == nil {
		return zero, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = client.Del(ctx, key).Err()
		}
		return zero, false
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		_ = client.Del(ctx, key).Err()
		return zero, false
	}
	return value, true
}

func (c *Cache) store(ctx context.Context, key string, value any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, keys ...string) {
	if c.redis == nil || len(keys) == 0 {
		return
	}
	_, _ = c.redis.Del(ctx, keys...).Result()
}
