package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Joshykins/stupid-neko-sub001/internal/platform/ctxutil"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

const slowRequest = time.Second

// RequestLogger writes one line per request. Failures log at warn or error;
// successful requests log at info, except the routes in quiet (the companion's
// event pings, probes) which log at debug unless they were slow.
func RequestLogger(log *logger.Logger, quiet ...string) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	quietRoutes := make(map[string]struct{}, len(quiet))
	for _, r := range quiet {
		quietRoutes[r] = struct{}{}
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		dur := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		fields := []interface{}{
			"method", c.Request.Method,
			"path", route,
			"status", status,
			"duration_ms", dur.Milliseconds(),
		}
		fields = append(fields, ctxutil.GetTraceData(c.Request.Context()).LogFields()...)
		if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil && rd.UserID != uuid.Nil {
			fields = append(fields, "user_id", rd.UserID.String())
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		_, isQuiet := quietRoutes[route]
		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400 || dur >= slowRequest:
			log.Warn("HTTP request", fields...)
		case isQuiet:
			log.Debug("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}
