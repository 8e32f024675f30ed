package app

import (
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Joshykins/stupid-neko-sub001/internal/data/db"
	"github.com/Joshykins/stupid-neko-sub001/internal/jobs/pipeline"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/envutil"
	"github.com/Joshykins/stupid-neko-sub001/internal/temporalx"
)

type Config struct {
	Env     string
	Version string
	LogMode string
	Port    string

	DBDriver    string
	PostgresDSN string
	SQLitePath  string
	AutoMigrate bool

	JWTSecretKey string
	CORSOrigins  []string

	RedisAddr     string
	RedisChannel  string
	LabelCacheTTL time.Duration

	Temporal temporalx.Config

	MetricsEnabled bool
	MetricsAddr    string

	RulesPath              string
	Intervals              pipeline.Intervals
	SchedulerEnabled       bool
	BatchLimit             int
	SessionizerConcurrency int
}

// LoadEnv reads .env when present. Variables already set in the process win.
func LoadEnv() {
	_ = godotenv.Load()
}

func LoadConfig() Config {
	return Config{
		Env:     envutil.String("APP_ENV", "development"),
		Version: envutil.String("APP_VERSION", "dev"),
		LogMode: envutil.String("LOG_MODE", "development"),
		Port:    envutil.String("PORT", "8080"),

		DBDriver:    strings.ToLower(envutil.String("DB_DRIVER", DriverPostgres)),
		PostgresDSN: db.PostgresDSN(),
		SQLitePath:  envutil.String("SQLITE_PATH", "stupid-neko.db"),
		AutoMigrate: envutil.Bool("DB_AUTO_MIGRATE", true),

		JWTSecretKey: envutil.String("JWT_SECRET_KEY", ""),
		CORSOrigins:  envutil.List("CORS_ORIGINS"),

		RedisAddr:     envutil.String("REDIS_ADDR", ""),
		RedisChannel:  envutil.String("REDIS_CHANNEL", "progression"),
		LabelCacheTTL: envutil.Duration("REDIS_LABEL_CACHE_TTL", 10*time.Minute),

		Temporal: temporalx.LoadConfig(),

		MetricsEnabled: envutil.Bool("METRICS_ENABLED", false),
		MetricsAddr:    envutil.String("METRICS_ADDR", ""),

		RulesPath: envutil.String("PROGRESSION_RULES_PATH", ""),
		Intervals: pipeline.Intervals{
			Sessionize: envutil.Duration("SESSIONIZER_INTERVAL", 30*time.Second),
			StaleSweep: envutil.Duration("STALE_SWEEP_INTERVAL", time.Minute),
			Nudge:      envutil.Duration("VACATION_NUDGE_INTERVAL", time.Hour),
		},
		SchedulerEnabled:       envutil.Bool("SCHEDULER_ENABLED", true),
		BatchLimit:             envutil.Int("SESSIONIZER_BATCH_LIMIT", 0),
		SessionizerConcurrency: envutil.Int("SESSIONIZER_CONCURRENCY", 4),
	}
}
