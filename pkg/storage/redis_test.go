package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfg := DefaultConfig()
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"
	cfg.RedisDB = 2

	client, err := NewRedisClient(context.Background(), cfg)
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, 2, client.Options().DB)
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
}

func TestNewRedisClient_Errors(t *testing.T) {
	t.Run("invalid url", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.RedisURL = "://nope"
		_, err := NewRedisClient(context.Background(), cfg)
		assert.ErrorContains(t, err, "invalid redis URL")
	})

	t.Run("unreachable", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		addr := mr.Addr()
		mr.Close()

		cfg := DefaultConfig()
		cfg.RedisURL = "redis://" + addr
		cfg.RedisMaxRetries = 1
		_, err = NewRedisClient(context.Background(), cfg)
		assert.ErrorContains(t, err, "failed to connect to redis")
	})
}
