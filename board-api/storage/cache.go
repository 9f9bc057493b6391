package storage

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"taskboard/board-api/domain"
)

const (
	allTasksKey = "tasks:all"

	// Must exceed the longest backend read.
	generationTTL = 24 * time.Hour
)

var errStaleRead = errors.New("cache generation changed during read")

// Cache wraps a Gateway with Redis-backed caching for board and task reads.
// Writes go straight to the backing gateway and evict every key that could
// hold the affected board's data.
type Cache struct {
	base  Gateway
	redis *redis.Client
	ttl   time.Duration
}

var _ Gateway = (*Cache)(nil)

// NewCache creates a caching Gateway wrapper using the provided Redis client and TTL.
func NewCache(base Gateway, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base gateway is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) GetBoard(ctx context.Context, id string) (domain.Board, error) {
	key := boardCacheKey(id)
	var board domain.Board
	if c.load(ctx, key, &board) {
		return board, nil
	}

	gen := c.generation(ctx, c.redis, key)
	board, err := c.base.GetBoard(ctx, id)
	if err != nil {
		return domain.Board{}, err
	}

	c.store(ctx, key, gen, board)
	return board, nil
}

func (c *Cache) CreateBoard(ctx context.Context) (domain.Board, error) {
	board, err := c.base.CreateBoard(ctx)
	if err != nil {
		return domain.Board{}, err
	}
	c.evict(ctx, board.ID)
	return board, nil
}

func (c *Cache) UpdateBoard(ctx context.Context, id string, patch domain.BoardPatch) (domain.Board, error) {
	board, err := c.base.UpdateBoard(ctx, id, patch)
	if err != nil {
		return domain.Board{}, err
	}
	c.evict(ctx, id)
	return board, nil
}

func (c *Cache) DeleteBoard(ctx context.Context, id string) error {
	if err := c.base.DeleteBoard(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, id)
	return nil
}

func (c *Cache) ListTasks(ctx context.Context, boardID string) ([]domain.Task, error) {
	key := tasksCacheKey(boardID)
	var tasks []domain.Task
	if c.load(ctx, key, &tasks) {
		return tasks, nil
	}

	gen := c.generation(ctx, c.redis, key)
	tasks, err := c.base.ListTasks(ctx, boardID)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, gen, tasks)
	return tasks, nil
}

// GetTask is not cached; a single task lookup is already one indexed read.
func (c *Cache) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return c.base.GetTask(ctx, id)
}

func (c *Cache) CreateTask(ctx context.Context, in domain.NewTask) (domain.Task, error) {
	t, err := c.base.CreateTask(ctx, in)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx, t.BoardID)
	return t, nil
}

func (c *Cache) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	t, err := c.base.UpdateTask(ctx, id, patch)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx, t.BoardID)
	return t, nil
}

func (c *Cache) DeleteTask(ctx context.Context, id string) (domain.Task, error) {
	t, err := c.base.DeleteTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx, t.BoardID)
	return t, nil
}

func (c *Cache) load(ctx context.Context, key string, out any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// On redis errors fall back to the backing store without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

// store writes v under key only if no eviction bumped the key's generation
// since gen was read. A write that lands between the backend read and this
// call leaves the key empty instead of holding the pre-write value.
func (c *Cache) store(ctx context.Context, key string, gen int64, v any) {
	if c.redis == nil || c.ttl == 0 || gen < 0 {
		return
	}
	data, err := sonic.Marshal(v)
	if err != nil {
		return
	}
	_ = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		if c.generation(ctx, tx, key) != gen {
			return errStaleRead
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			return nil
		})
		return err
	}, generationKey(key))
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// generation returns the eviction counter for key, 0 when it was never
// evicted and -1 when redis cannot be read.
func (c *Cache) generation(ctx context.Context, r getter, key string) int64 {
	if c.redis == nil {
		return -1
	}
	v, err := r.Get(ctx, generationKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0
	}
	if err != nil {
		return -1
	}
	gen, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return -1
	}
	return gen
}

func (c *Cache) evict(ctx context.Context, boardID string) {
	if c.redis == nil {
		return
	}
	keys := []string{boardCacheKey(boardID), tasksCacheKey(boardID), allTasksKey}
	_, _ = c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Incr(ctx, generationKey(key))
			pipe.Expire(ctx, generationKey(key), generationTTL)
		}
		pipe.Del(ctx, keys...)
		return nil
	})
}

func boardCacheKey(boardID string) string {
	return "board:" + boardID
}

func tasksCacheKey(boardID string) string {
	if boardID == "" {
		return allTasksKey
	}
	return "tasks:board:" + boardID
}

func generationKey(key string) string {
	return "gen:" + key
}

// Ping reports the backing gateway's health. Redis outages only degrade the
// cache and are not reported.
func (c *Cache) Ping(ctx context.Context) error {
	if p, ok := c.base.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}
