package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/lms-report-api/pkg/errors"
)

func TestCacheRepositoryWithoutClientMisses(t *testing.T) {
	repo := NewCacheRepository(nil, zap.NewNop(), 0, time.Second)

	var out map[string]int
	err := repo.Get(context.Background(), "report:k", &out)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.NoError(t, repo.Set(context.Background(), "report:k", map[string]int{"a": 1}, time.Minute))
	assert.NoError(t, repo.Close())
}

func TestCacheRepositoryBreakerOpensOnRedisFailures(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 50 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })
	repo := NewCacheRepository(client, zap.NewNop(), 2, time.Minute)
	ctx := context.Background()

	var out map[string]int
	for i := 0; i < 2; i++ {
		err := repo.Get(ctx, "report:k", &out)
		require.Error(t, err)
		assert.False(t, errors.Is(err, appErrors.ErrCacheMiss))
	}
	assert.Equal(t, gobreaker.StateOpen, repo.State())

	err := repo.Get(ctx, "report:k", &out)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.NoError(t, repo.Set(ctx, "report:k", map[string]int{"a": 1}, time.Minute))
}
