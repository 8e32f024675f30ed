package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) ErrorEnvelope {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestRespondErrorEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("request_id", "req-123")

	RespondError(c, http.StatusConflict, "activity_already_deleted", errors.New("activity already reversed"))

	assert.Equal(t, http.StatusConflict, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "activity_already_deleted", env.Error.Code)
	assert.Equal(t, "activity already reversed", env.Error.Message)
	assert.Equal(t, "req-123", env.Error.RequestID)
}

func TestRespondErrorNilErrUsesStatusText(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondError(c, http.StatusUnauthorized, "unauthorized", nil)

	env := decodeEnvelope(t, w)
	assert.Equal(t, "Unauthorized", env.Error.Message)
	assert.Empty(t, env.Error.RequestID)
}

func TestRespondCreated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondCreated(c, gin.H{"ok": true})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}
