package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joshykins/stupid-neko-sub001/internal/platform/ctxutil"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

var testSecret = []byte("test-secret-key")

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewAuthMiddleware(logger.Nop(), testSecret).RequireAuth())
	r.GET("/whoami", func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		c.String(http.StatusOK, rd.UserID.String())
	})
	return r
}

func doAuth(r *gin.Engine, target, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuthAcceptsSignedToken(t *testing.T) {
	r := authRouter()
	userID := uuid.New()
	tok, err := SignToken(testSecret, userID, time.Hour)
	require.NoError(t, err)

	rec := doAuth(r, "/whoami", "Bearer "+tok)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID.String(), rec.Body.String())

	rec = doAuth(r, "/whoami?token="+tok, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuthRejectsBadTokens(t *testing.T) {
	r := authRouter()
	userID := uuid.New()

	wrongKey, err := SignToken([]byte("other"), userID, time.Hour)
	require.NoError(t, err)
	expired, err := SignToken(testSecret, userID, -time.Minute)
	require.NoError(t, err)
	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "not-a-uuid",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(testSecret)
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: userID.String(),
	}).SignedString(testSecret)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":     "",
		"wrong key":   "Bearer " + wrongKey,
		"expired":     "Bearer " + expired,
		"bad subject": "Bearer " + badSubject,
		"no expiry":   "Bearer " + noExpiry,
		"not bearer":  "Basic abc",
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, doAuth(r, "/whoami", header).Code)
		})
	}
}

func TestRequireAuthRejectsNilUser(t *testing.T) {
	tok, err := SignToken(testSecret, uuid.Nil, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, doAuth(authRouter(), "/whoami", "Bearer "+tok).Code)
}
