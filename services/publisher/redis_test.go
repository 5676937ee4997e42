package publisher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisher(t *testing.T) {
	ctx := context.Background()
	publisher := NewRedisPublisher("localhost:6379", 0, "test_coupons", 1, 10)
	defer publisher.Close()

	if err := publisher.Ping(ctx); err != nil {
		t.Skip("Redis is not available, skipping test")
	}
	publisher.client.Del(ctx, "test_coupons:0")

	require.NoError(t, publisher.Publish(ctx, "b64_coupons", []byte("test_message")))

	messages, err := publisher.client.XRange(ctx, "test_coupons:0", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, messages, 1)
	// base64 of "test_message"
	assert.Equal(t, "dGVzdF9tZXNzYWdl", messages[0].Values["b64_coupons"])

	for range 15 {
		require.NoError(t, publisher.Publish(ctx, "b64_coupons", []byte("x")))
	}
	require.NoError(t, publisher.TrimStreams(ctx))
	length, err := publisher.client.XLen(ctx, "test_coupons:0").Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, length, int64(10))
}

func TestStreamNameStaysInRange(t *testing.T) {
	p := NewRedisPublisher("localhost:6379", 0, "coupons", 3, 10)
	defer p.Close()
	for range 50 {
		assert.Contains(t, []string{"coupons:0", "coupons:1", "coupons:2"}, p.streamName())
	}
	assert.Equal(t, 1, NewRedisPublisher("localhost:6379", 0, "c", 0, 10).streamCount)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), "k", nil))
	assert.NoError(t, p.TrimStreams(context.Background()))
	assert.NoError(t, p.Close())
}
