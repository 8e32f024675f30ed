package app

import (
	"context"

	"gorm.io/gorm"

	apphttp "github.com/Joshykins/stupid-neko-sub001/internal/http"
	httpH "github.com/Joshykins/stupid-neko-sub001/internal/http/handlers"
	httpMW "github.com/Joshykins/stupid-neko-sub001/internal/http/middleware"
	"github.com/Joshykins/stupid-neko-sub001/internal/observability"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, theDB *gorm.DB, clients Clients, services Services, metrics *observability.Metrics) *apphttp.Server {
	log.Info("Wiring HTTP server...")
	checks := map[string]httpH.Pinger{
		"db": func(ctx context.Context) error {
			sqlDB, err := theDB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if clients.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return clients.Redis.Ping(ctx).Err() }
	}

	return apphttp.NewServer(apphttp.RouterConfig{
		Log:                log,
		Metrics:            metrics,
		CORSOrigins:        cfg.CORSOrigins,
		AuthMiddleware:     httpMW.NewAuthMiddleware(log, []byte(cfg.JWTSecretKey)),
		ProgressionHandler: httpH.NewProgressionHandler(log, services.Progression),
		HealthHandler:      httpH.NewHealthHandler(checks),
	})
}
