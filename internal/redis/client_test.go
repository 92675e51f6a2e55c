package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), Config{
		Addr:     mr.Addr(),
		PoolSize: 2,
		Timeout:  time.Second,
	})
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestNewRedisClientUnreachable(t *testing.T) {
	_, err := NewRedisClient(context.Background(), Config{
		Addr:     "127.0.0.1:1",
		PoolSize: 2,
		Timeout:  200 * time.Millisecond,
	})
	assert.Error(t, err)
}
