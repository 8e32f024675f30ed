package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Joshykins/stupid-neko-sub001/internal/domain/progression"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

const DefaultProgressionChannel = "progression"

type ProgressionBus interface {
	progression.Notifier
	StartForwarder(ctx context.Context, onMsg func(n progression.Notification)) error
	Close() error
}

type progressionBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewProgressionBus(log *logger.Logger, rdb *goredis.Client, channel string) (ProgressionBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = DefaultProgressionChannel
	}
	return &progressionBus{
		log:     log.With("service", "RedisProgressionBus"),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (b *progressionBus) Publish(ctx context.Context, n progression.Notification) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis progression bus not initialized")
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *progressionBus) StartForwarder(ctx context.Context, onMsg func(n progression.Notification)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis progression bus not initialized")
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var n progression.Notification
				if err := json.Unmarshal([]byte(m.Payload), &n); err != nil {
					b.log.Warn("bad redis progression payload", "error", err)
					continue
				}
				onMsg(n)
			}
		}
	}()
	return nil
}

func (b *progressionBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
