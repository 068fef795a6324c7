package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheVersionKey = "analytics:version"
	bumpChannel     = "crm.bump"
)

// Cache stores computed aggregates in redis under versioned keys.
// Invalidation bumps a single version counter, which orphans every old key
// at once; orphans expire via their TTL. A nil or disconnected cache
// degrades to computing on every call.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a Cache writing entries with the given TTL.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the current cache generation, initialising it to 1 when
// missing or corrupted.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		ver = 1
	case err != nil:
		return 0, err
	case ver <= 0:
		ver = 1
	default:
		return ver, nil
	}
	if err := c.client.Set(ctx, cacheVersionKey, ver, 0).Err(); err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey suffixes name with the current cache generation.
func (c *Cache) BuildKey(ctx context.Context, name string) (string, error) {
	if c == nil || c.client == nil {
		return name, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", name, ver), nil
}

// FetchJSON reads key into dest, running loader and storing its result on a
// miss. The loader result always round-trips through JSON so cached and
// fresh responses are shaped identically.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c != nil && c.client != nil {
		payload, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			return json.Unmarshal(payload, dest)
		}
		if !errors.Is(err, redis.Nil) {
			return err
		}
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if c != nil && c.client != nil {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			return err
		}
	}
	return json.Unmarshal(raw, dest)
}

// Bump advances the cache generation and broadcasts it to peers.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, bumpChannel, strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation follows version bumps published by other instances.
// channel defaults to the standard bump channel when empty.
func (c *Cache) ListenForInvalidation(ctx context.Context, channel string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if channel == "" {
		channel = bumpChannel
	}
	pubsub := c.client.Subscribe(ctx, channel)
	go func() {
		defer func() { _ = pubsub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				if ver, err := strconv.ParseInt(msg.Payload, 10, 64); err == nil {
					_ = c.client.Set(ctx, cacheVersionKey, ver, 0).Err()
					continue
				}
				_ = c.client.Incr(ctx, cacheVersionKey).Err()
			}
		}
	}()
	return nil
}

func keyDashboard(scope string) string {
	return "analytics:dashboard:" + scopeToken(scope)
}

func keyOverview(scope string) string {
	return "analytics:overview:" + scopeToken(scope)
}

func scopeToken(scope string) string {
	if scope == "" {
		return "-"
	}
	return scope
}
