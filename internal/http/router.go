package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/Joshykins/stupid-neko-sub001/internal/http/handlers"
	httpMW "github.com/Joshykins/stupid-neko-sub001/internal/http/middleware"
	"github.com/Joshykins/stupid-neko-sub001/internal/observability"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	AuthMiddleware     *httpMW.AuthMiddleware
	ProgressionHandler *httpH.ProgressionHandler
	HealthHandler      *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "stupid-neko-progression"
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log, "/api/events", "/healthz", "/metrics"))
	r.Use(httpMW.Metrics(cfg.Metrics, "/healthz", "/metrics"))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		if cfg.ProgressionHandler != nil {
			api.POST("/events", cfg.ProgressionHandler.IngestEvents)
			api.POST("/activities/manual", cfg.ProgressionHandler.RecordManualActivity)
			api.DELETE("/activities/:id", cfg.ProgressionHandler.DeleteActivity)
			api.GET("/progress", cfg.ProgressionHandler.GetProgress)
		}
	}

	return r
}
