package publisher

import (
	"context"
	"encoding/base64"
	"math/rand/v2"
	"strconv"

	crawlerrors "sjsage522/couponworker/pkg/errors"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher implements Publisher using Redis streams
type RedisPublisher struct {
	client          *redis.Client
	streamPrefix    string
	streamCount     int
	streamMaxLength int
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(addr string, db int, streamPrefix string, streamCount int, streamMaxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	if streamCount < 1 {
		streamCount = 1
	}
	return &RedisPublisher{
		client:          client,
		streamPrefix:    streamPrefix,
		streamCount:     streamCount,
		streamMaxLength: streamMaxLength,
	}
}

// Ping checks the connection
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// streamName picks one of streamCount shards: prefix:0 .. prefix:N-1
func (p *RedisPublisher) streamName() string {
	return p.streamPrefix + ":" + strconv.Itoa(rand.IntN(p.streamCount))
}

// Publish publishes a message to a Redis stream.
// The message is base64 encoded before publishing.
func (p *RedisPublisher) Publish(ctx context.Context, key string, message []byte) error {
	encoded := base64.StdEncoding.EncodeToString(message)

	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.streamName(),
		Values: map[string]interface{}{
			key: encoded,
		},
	}).Err()
	if err != nil {
		return crawlerrors.NewPublisher(key, "xadd failed", err)
	}
	return nil
}

// TrimStreams trims all streams to the configured maximum length
func (p *RedisPublisher) TrimStreams(ctx context.Context) error {
	for i := range p.streamCount {
		stream := p.streamPrefix + ":" + strconv.Itoa(i)
		if err := p.client.XTrimMaxLen(ctx, stream, int64(p.streamMaxLength)).Err(); err != nil {
			return crawlerrors.NewPublisher(stream, "trim failed", err)
		}
	}
	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
