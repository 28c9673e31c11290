// Package cache implements the write-path invalidation contract: every
// successful delegation write clears the cached reads it affects: the
// parties' incoming/outgoing request lists, the primary user's
// active-delegation record and the aggregate admin task list. Reads are
// cached elsewhere; this package only knows which keys a write dirties.
package cache

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Config defines the redis connection and key namespace. When Enabled is
// false or no address is configured, invalidation is a no-op.
type Config struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// LoadConfig reads environment variables to build a Config. Defaults are
// used when variables are not set.
func LoadConfig() Config {
	return Config{
		Enabled:  getenv("CACHE_ENABLED", "true") == "true",
		Addr:     getenv("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       atoi(getenv("REDIS_DB", "0")),
		Prefix:   getenv("CACHE_PREFIX", "caretaker"),
	}
}

// NewClient builds a redis client from cfg, or nil when caching is
// disabled so the Invalidator degrades to a no-op.
func NewClient(cfg Config) *redis.Client {
	if !cfg.Enabled || cfg.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Invalidator deletes the cache keys a delegation write dirties.
type Invalidator struct {
	rdb    *redis.Client
	prefix string
}

func NewInvalidator(rdb *redis.Client, prefix string) *Invalidator {
	if prefix == "" {
		prefix = "caretaker"
	}
	return &Invalidator{rdb: rdb, prefix: prefix}
}

func (i *Invalidator) RequestListKey(userID uuid.UUID, direction string) string {
	return fmt.Sprintf("%s:requests:%s:%s", i.prefix, direction, userID)
}

func (i *Invalidator) ActiveDelegationKey(userID uuid.UUID) string {
	return fmt.Sprintf("%s:active:%s", i.prefix, userID)
}

func (i *Invalidator) AdminTasksKey() string {
	return i.prefix + ":admin:tasks"
}

// ForWrite clears every key a request write (submission or transition)
// affects: both directions for each party, the primary user's
// active-delegation record, and the admin task list. Invalidation errors
// are returned for logging but must not fail the write that already
// committed.
func (i *Invalidator) ForWrite(ctx context.Context, requesterID, primaryUserID, caretakerID uuid.UUID) error {
	if i.rdb == nil {
		return nil
	}

	keys := []string{
		i.RequestListKey(requesterID, "outgoing"),
		i.RequestListKey(requesterID, "incoming"),
		i.RequestListKey(caretakerID, "outgoing"),
		i.RequestListKey(caretakerID, "incoming"),
		i.ActiveDelegationKey(primaryUserID),
		i.AdminTasksKey(),
	}
	return i.rdb.Del(ctx, dedupe(keys)...).Err()
}

// ForRemoval clears the keys affected by deleting an active delegation.
func (i *Invalidator) ForRemoval(ctx context.Context, primaryUserID, caretakerID uuid.UUID) error {
	if i.rdb == nil {
		return nil
	}

	keys := []string{
		i.ActiveDelegationKey(primaryUserID),
		i.RequestListKey(primaryUserID, "outgoing"),
		i.RequestListKey(caretakerID, "incoming"),
		i.AdminTasksKey(),
	}
	return i.rdb.Del(ctx, dedupe(keys)...).Err()
}

// dedupe preserves order; a requester proposing themselves as caretaker
// would otherwise repeat keys in a single DEL.
func dedupe(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	var n int
	fmt.Sscanf(s, "%d", &n)
	return n
}
