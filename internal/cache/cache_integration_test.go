//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/altitude/internal/domain"
	"example.com/altitude/internal/testsupport"
)

func TestRedisCacheRoundTripAndInvalidate(t *testing.T) {
	ctx := context.Background()
	addr := testsupport.StartRedis(ctx, t)

	client, err := NewRedisClient("redis://" + addr + "/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	c := NewRedisCache(client, "altitude-test", time.Minute)

	var row domain.LedgerRow
	hit, err := c.Get(ctx, "day:2025-10-27", &row)
	require.NoError(t, err)
	require.False(t, hit)

	want := domain.LedgerRow{Day: "2025-10-27", CumulativeHeight: 12, Counts: domain.CategoryCounts{Work: 2}}
	require.NoError(t, c.Set(ctx, "day:2025-10-27", want))

	hit, err = c.Get(ctx, "day:2025-10-27", &row)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, want, row)

	ttl, err := client.TTL(ctx, "altitude-test:day:2025-10-27").Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.Invalidate(ctx, "day:2025-10-27", "stats:2025-10-27"))
	hit, err = c.Get(ctx, "day:2025-10-27", &row)
	require.NoError(t, err)
	require.False(t, hit)
}
