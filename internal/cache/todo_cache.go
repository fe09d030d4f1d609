package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	dom "todoweb/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	keyList = "todo:list:"
	keyGen  = "todo:gen:"
)

// TodoCache caches each owner's todo list in Redis.
// Lists live under todo:list:<owner>:<gen>. Writes bump todo:gen:<owner>, so a
// fill that read the store before a write lands under a key no reader asks for.
type TodoCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewTodoCache returns a new TodoCache.
func NewTodoCache(rdb redis.Cmdable, ttl time.Duration) *TodoCache {
	return &TodoCache{rdb: rdb, ttl: ttl}
}

// Generation returns the owner's current list generation (0 before any write).
func (c *TodoCache) Generation(ctx context.Context, owner string) (int64, error) {
	gen, err := c.rdb.Get(ctx, keyGen+owner).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// GetList returns the list cached for owner at gen; ok is false on a miss.
func (c *TodoCache) GetList(ctx context.Context, owner string, gen int64) ([]dom.Todo, bool, error) {
	b, err := c.rdb.Get(ctx, listKey(owner, gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	list := make([]dom.Todo, 0)
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, false, err
	}
	return list, true, nil
}

// SetList stores the list read at gen. gen must be read before the store.
func (c *TodoCache) SetList(ctx context.Context, owner string, gen int64, list []dom.Todo) error {
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, listKey(owner, gen), b, c.ttl).Err()
}

// Invalidate moves the owner to a new generation (called on every write).
// Entries of older generations expire by TTL.
func (c *TodoCache) Invalidate(ctx context.Context, owner string) error {
	return c.rdb.Incr(ctx, keyGen+owner).Err()
}

func listKey(owner string, gen int64) string {
	return keyList + owner + ":" + strconv.FormatInt(gen, 10)
}
