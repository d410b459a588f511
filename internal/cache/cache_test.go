package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewRedisClientParsesAddress(t *testing.T) {
	client, err := NewRedisClient("redis://:secret@cache.internal:6380/2")
	require.NoError(t, err)
	defer client.Close()
	require.Equal(t, "cache.internal:6380", client.Options().Addr)
	require.Equal(t, 2, client.Options().DB)
	require.Equal(t, "secret", client.Options().Password)

	client, err = NewRedisClient("localhost:6379")
	require.NoError(t, err)
	defer client.Close()
	require.Equal(t, "localhost:6379", client.Options().Addr)

	_, err = NewRedisClient("http://example.com")
	require.Error(t, err)
}

func TestNewRedisCacheDefaults(t *testing.T) {
	client, err := NewRedisClient("localhost:6379")
	require.NoError(t, err)
	defer client.Close()

	c := NewRedisCache(client, "altitude:", 0)
	require.Equal(t, 30*time.Second, c.ttl)
	require.Equal(t, "altitude:day:2025-10-27", c.key("day:2025-10-27"))
}
