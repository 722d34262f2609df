package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_BurstThenRefill(t *testing.T) {
	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(3, time.Minute)
	l.now = func() time.Time { return current }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "send-otp:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i+1)
	}

	ok, _ := l.Allow(ctx, "send-otp:1.2.3.4")
	assert.False(t, ok, "fourth request in the window must be throttled")

	// другой ключ считается отдельно
	ok, _ = l.Allow(ctx, "send-otp:5.6.7.8")
	assert.True(t, ok)

	// 3 токена в минуту -> один токен за 20 секунд
	current = current.Add(21 * time.Second)
	ok, _ = l.Allow(ctx, "send-otp:1.2.3.4")
	assert.True(t, ok)
}

func TestMemoryLimiter_Cleanup(t *testing.T) {
	current := time.Now()
	l := NewMemoryLimiter(1, time.Minute)
	l.now = func() time.Time { return current }

	_, _ = l.Allow(context.Background(), "k")
	current = current.Add(2 * time.Hour)
	l.Cleanup(time.Hour)

	assert.Empty(t, l.buckets)
}

// Нужен живой Redis: REDIS_URL=redis://localhost:6379/15 go test ./internal/ratelimit
func TestRedisLimiter_WindowAlwaysHasTTL(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	l := NewRedisLimiter(client, 2, time.Minute)
	l.prefix = "ratelimit-test:" + t.Name() + ":"
	key := "send-otp:1.2.3.4"
	require.NoError(t, client.Del(ctx, l.prefix+key).Err())
	t.Cleanup(func() { client.Del(context.Background(), l.prefix+key) })

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	// TTL ставится на первом запросе и не продлевается последующими
	ttl, err := client.TTL(ctx, l.prefix+key).Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute, "ttl=%s", ttl)

	// ключ без TTL получает его на следующем запросе
	require.NoError(t, client.Persist(ctx, l.prefix+key).Err())
	_, err = l.Allow(ctx, key)
	require.NoError(t, err)
	ttl, err = client.TTL(ctx, l.prefix+key).Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0, "ttl=%s", ttl)
}
