package fingerprint

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Cache.Load when no prior fingerprint exists
// (first tick ever, or the cache has been cleared).
var ErrNotFound = errors.New("fingerprint: no prior value cached")

// Cache persists the last-run fingerprint so it survives a worker restart
// and, if the worker is ever scaled beyond one replica, is visible to every
// instance — not just whichever one happens to hold the leader election.
// A Redis outage degrades to an in-process cache rather than failing the
// tick; the leader election (see internal/pollloop) is what actually
// protects against duplicate solves, this is a convenience to avoid
// redundant work, not a correctness boundary.
type Cache struct {
	client    *redis.Client
	key       string
	log       *zap.Logger

	mu        sync.Mutex
	fallback  Hash
	haveValue bool
	degraded  bool
}

// NewCache builds a Cache. addr may be empty, in which case the cache runs
// purely in-process (useful for tests and single-replica deployments with
// no Redis available).
func NewCache(addr, password string, db int, namespace string, log *zap.Logger) *Cache {
	var client *redis.Client
	if addr != "" {
		client = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		})
	}
	return &Cache{
		client: client,
		key:    namespace + ":last_fingerprint",
		log:    log,
	}
}

// Load returns the last-published fingerprint, or ErrNotFound.
func (c *Cache) Load(ctx context.Context) (Hash, error) {
	if c.client == nil {
		return c.loadFallback()
	}

	val, err := c.client.Get(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		c.markDegraded(err)
		return c.loadFallback()
	}
	return Hash(val), nil
}

// Store records the new fingerprint. Failures are logged, not propagated:
// a tick that successfully published must still advance, even if the
// cache write failed.
func (c *Cache) Store(ctx context.Context, h Hash) {
	c.mu.Lock()
	c.fallback = h
	c.haveValue = true
	c.mu.Unlock()

	if c.client == nil {
		return
	}
	if err := c.client.Set(ctx, c.key, string(h), 30*24*time.Hour).Err(); err != nil {
		c.markDegraded(err)
	}
}

func (c *Cache) loadFallback() (Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.haveValue {
		return "", ErrNotFound
	}
	return c.fallback, nil
}

func (c *Cache) markDegraded(err error) {
	c.mu.Lock()
	alreadyDegraded := c.degraded
	c.degraded = true
	c.mu.Unlock()

	if !alreadyDegraded && c.log != nil {
		c.log.Warn("fingerprint cache degraded to in-process fallback", zap.Error(err))
	}
}
