package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/Joshykins/stupid-neko-sub001/internal/platform/ctxutil"
)

func traceRouter(seen **ctxutil.TraceData) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/x", func(c *gin.Context) {
		*seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAttachTraceContextKeepsClientIDs(t *testing.T) {
	var seen *ctxutil.TraceData
	r := traceRouter(&seen)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(headerRequestID, "req-abc")
	req.Header.Set(headerTraceID, "trace-abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if assert.NotNil(t, seen) {
		assert.Equal(t, "req-abc", seen.RequestID)
		assert.Equal(t, "trace-abc", seen.TraceID)
	}
	assert.Equal(t, "req-abc", w.Header().Get(headerRequestID))
}

func TestAttachTraceContextReplacesUnsafeIDs(t *testing.T) {
	var seen *ctxutil.TraceData
	r := traceRouter(&seen)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(headerRequestID, "bad id\twith spaces")
	req.Header.Set(headerTraceID, strings.Repeat("t", maxRequestIDLen+1))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if assert.NotNil(t, seen) {
		assert.NotEqual(t, "bad id\twith spaces", seen.RequestID)
		assert.Len(t, seen.RequestID, 36)
		assert.Len(t, seen.TraceID, 36)
	}
}
