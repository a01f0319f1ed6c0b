package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/grupo99/execution-system/shared/saga"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ saga.InboxStore = (*RedisInbox)(nil)

// RedisClient is the part of the redis client used by the inbox
type RedisClient interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisInbox remembers processed deliveries for a bounded time
type RedisInbox struct {
	client      RedisClient
	serviceName string
	ttl         time.Duration
}

func NewRedisInbox(client RedisClient, serviceName string, ttl time.Duration) *RedisInbox {
	return &RedisInbox{
		client:      client,
		serviceName: serviceName,
		ttl:         ttl,
	}
}

// NewRedisClient connects to a single redis node
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (i *RedisInbox) Seen(ctx context.Context, key string) (bool, error) {
	n, err := i.client.Exists(ctx, i.generateKey(key)).Result()
	if err != nil {
		return false, errors.Wrap(err, "failed to check inbox")
	}
	return n > 0, nil
}

func (i *RedisInbox) Mark(ctx context.Context, key string) error {
	if err := i.client.Set(ctx, i.generateKey(key), time.Now().UTC().Format(time.RFC3339), i.ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to mark inbox")
	}
	return nil
}

func (i *RedisInbox) generateKey(key string) string {
	return fmt.Sprintf("%s:%s:%s", i.serviceName, "inbox", key)
}
