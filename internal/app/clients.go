package app

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Joshykins/stupid-neko-sub001/internal/clients/redis"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

type Clients struct {
	Redis *goredis.Client
	Bus   redis.ProgressionBus
}

// wireClients connects optional infrastructure. Redis is skipped when
// REDIS_ADDR is empty; notifications then go nowhere and labels are read
// straight from the database.
func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	if cfg.RedisAddr == "" {
		log.Warn("REDIS_ADDR not set; progression notifications and label cache disabled")
		return Clients{}, nil
	}
	rdb, err := redis.NewClient(log, cfg.RedisAddr)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	bus, err := redis.NewProgressionBus(log, rdb, cfg.RedisChannel)
	if err != nil {
		_ = rdb.Close()
		return Clients{}, fmt.Errorf("init redis progression bus: %w", err)
	}
	return Clients{Redis: rdb, Bus: bus}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
}
