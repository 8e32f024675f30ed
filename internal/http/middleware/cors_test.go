package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func preflight(r *gin.Engine, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/api/events", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func corsRouter(origins []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS(origins))
	r.POST("/api/events", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestCORSAllowsDashboardAndCompanionOrigins(t *testing.T) {
	r := corsRouter([]string{"https://app.stupidneko.test", "chrome-extension://abcdefghijklmnop"})
	for _, origin := range []string{"https://app.stupidneko.test", "chrome-extension://abcdefghijklmnop"} {
		rec := preflight(r, origin)
		assert.Equal(t, http.StatusNoContent, rec.Code, origin)
		assert.Equal(t, origin, rec.Header().Get("Access-Control-Allow-Origin"), origin)
	}
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	rec := preflight(corsRouter([]string{"https://app.stupidneko.test"}), "https://evil.test")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSDefaultsToLocalDashboard(t *testing.T) {
	rec := preflight(corsRouter(nil), "http://localhost:5173")
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
