package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

// NewClient dials addr and pings it once so misconfiguration fails at startup.
func NewClient(log *logger.Logger, addr string) (*goredis.Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info("redis connected", "addr", addr)
	return rdb, nil
}

// KV adapts a redis client to plain string get/set.
type KV struct {
	rdb goredis.Cmdable
}

func NewKV(rdb goredis.Cmdable) *KV { return &KV{rdb: rdb} }

func (k *KV) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := k.rdb.Get(ctx, key).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (k *KV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return k.rdb.Set(ctx, key, value, ttl).Err()
}
