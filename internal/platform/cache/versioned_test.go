package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Total int `json:"total"`
}

func newTestCache(t *testing.T) *Versioned {
	t.Helper()
	c, _ := newTestCacheWithServer(t)
	return c
}

func newTestCacheWithServer(t *testing.T) (*Versioned, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewVersioned(client, "reports", time.Minute).WithLogger(logger), mr
}

func TestFetchJSONCachesLoaderResult(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	key, err := c.BuildKey(ctx, "sales", "2025-01")
	require.NoError(t, err)
	assert.Equal(t, "reports:sales:2025-01:v1", key)

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return sample{Total: 42}, nil
	}

	var first, second sample
	require.NoError(t, c.FetchJSON(ctx, key, &first, loader))
	require.NoError(t, c.FetchJSON(ctx, key, &second, loader))

	assert.Equal(t, 42, first.Total)
	assert.Equal(t, 42, second.Total)
	assert.Equal(t, 1, calls)
}

func TestBumpChangesKeys(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	before, err := c.BuildKey(ctx, "sales")
	require.NoError(t, err)
	require.NoError(t, c.Bump(ctx))
	after, err := c.BuildKey(ctx, "sales")
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
	assert.Equal(t, "reports:sales:v2", after)
}

func TestNilClientFallsBackToLoader(t *testing.T) {
	c := NewVersioned(nil, "reports", time.Minute)
	var out sample
	err := c.FetchJSON(context.Background(), "k", &out, func(context.Context) (any, error) {
		return sample{Total: 7}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, out.Total)
}

func TestFetchJSONFallsBackWhenRedisFails(t *testing.T) {
	c, mr := newTestCacheWithServer(t)
	mr.SetError("LOADING server is loading")

	calls := 0
	var out sample
	err := c.FetchJSON(context.Background(), "reports:sales:v1", &out, func(context.Context) (any, error) {
		calls++
		return sample{Total: 11}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 11, out.Total)
	assert.Equal(t, 1, calls)
}

func TestFetchJSONReloadsUnreadableEntry(t *testing.T) {
	c, mr := newTestCacheWithServer(t)
	require.NoError(t, mr.Set("reports:sales:v1", "{not json"))

	var out sample
	err := c.FetchJSON(context.Background(), "reports:sales:v1", &out, func(context.Context) (any, error) {
		return sample{Total: 5}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, out.Total)

	stored, err := mr.Get("reports:sales:v1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":5}`, stored)
}

func TestFetchJSONLoaderIgnoresCallerCancellation(t *testing.T) {
	c := newTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out sample
	err := c.FetchJSON(ctx, "reports:sales:v1", &out, func(loadCtx context.Context) (any, error) {
		if err := loadCtx.Err(); err != nil {
			return nil, err
		}
		_, hasDeadline := loadCtx.Deadline()
		if !hasDeadline {
			return nil, errors.New("loader context has no deadline")
		}
		return sample{Total: 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Total)
}
