package util

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// unreachableRedis returns a client whose every command fails fast.
func unreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestAcquireOnceAllowsWhenRedisUnavailable(t *testing.T) {
	rdb := unreachableRedis()
	defer rdb.Close()

	// A broken dedup store must never drop events; at worst a duplicate
	// slips through.
	d := NewDeduperWithLogger(rdb, time.Minute, zap.NewNop())
	assert.True(t, d.AcquireOnce(context.Background(), "notify", "evt-1"))
	assert.True(t, d.AcquireOnce(context.Background(), "notify", "evt-1"))
}
