package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	values map[string]time.Duration
	err    error
}

func (f *fakeRedis) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.values[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestRedisInbox_MarkThenSeen(t *testing.T) {
	client := &fakeRedis{values: map[string]time.Duration{}}
	inbox := NewRedisInbox(client, "execution-service", time.Hour)
	ctx := context.Background()

	seen, err := inbox.Seen(ctx, "order-lifecycle:evt-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, inbox.Mark(ctx, "order-lifecycle:evt-1"))

	seen, err = inbox.Seen(ctx, "order-lifecycle:evt-1")
	require.NoError(t, err)
	assert.True(t, seen)
	assert.Equal(t, time.Hour, client.values["execution-service:inbox:order-lifecycle:evt-1"])
}

func TestRedisInbox_Errors(t *testing.T) {
	inbox := NewRedisInbox(&fakeRedis{err: errors.New("connection refused")}, "execution-service", time.Hour)

	_, err := inbox.Seen(context.Background(), "k")
	assert.ErrorContains(t, err, "connection refused")
	assert.Error(t, inbox.Mark(context.Background(), "k"))
}
