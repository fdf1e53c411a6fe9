package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Versioned is a JSON cache whose keys embed a namespace version. Bumping the
// version orphans every entry written under the previous one; they expire by TTL.
type Versioned struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
	logger    *slog.Logger
	group     singleflight.Group
}

// loadTimeout bounds a shared loader call once it is detached from the
// caller's cancellation.
const loadTimeout = time.Minute

// NewVersioned builds a cache for the namespace. A nil client disables caching.
func NewVersioned(client *redis.Client, namespace string, ttl time.Duration) *Versioned {
	return &Versioned{client: client, namespace: namespace, ttl: ttl, logger: slog.Default()}
}

// WithLogger sets the logger used for cache read and write failures.
func (c *Versioned) WithLogger(logger *slog.Logger) *Versioned {
	if logger != nil {
		c.logger = logger.With(slog.String("cache", c.namespace))
	}
	return c
}

func (c *Versioned) versionKey() string {
	return c.namespace + ":version"
}

// Version returns the current namespace version, initialising it when missing.
func (c *Versioned) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, c.versionKey()).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, c.versionKey(), 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes a key from parts and the current version.
func (c *Versioned) BuildKey(ctx context.Context, parts ...string) (string, error) {
	if c == nil {
		return strings.Join(parts, ":"), nil
	}
	joined := strings.Join(append([]string{c.namespace}, parts...), ":")
	if c.client == nil {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:v%d", joined, ver), nil
}

// FetchJSON loads key into dest, calling loader on a miss. Concurrent misses
// for the same key share a single loader call, which runs detached from the
// first caller's cancellation. Redis failures degrade to calling loader.
func (c *Versioned) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		return load(ctx, loader, dest)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if err := json.Unmarshal(payload, dest); err == nil {
			return nil
		}
		c.logger.Warn("cache entry unreadable", slog.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("cache read failed", slog.String("key", key), slog.Any("error", err))
	}
	raw, err, _ := c.group.Do(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		value, err := loader(loadCtx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(loadCtx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("cache write failed", slog.String("key", key), slog.Any("error", err))
		}
		return data, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), dest)
}

// Bump invalidates the namespace by incrementing its version.
func (c *Versioned) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, c.versionKey()).Err()
}

func load(ctx context.Context, loader func(context.Context) (any, error), dest any) error {
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
