package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Joshykins/stupid-neko-sub001/internal/data/aggregates"
	"github.com/Joshykins/stupid-neko-sub001/internal/data/repos"
	"github.com/Joshykins/stupid-neko-sub001/internal/data/repos/testutil"
	httpH "github.com/Joshykins/stupid-neko-sub001/internal/http/handlers"
	httpMW "github.com/Joshykins/stupid-neko-sub001/internal/http/middleware"
	"github.com/Joshykins/stupid-neko-sub001/internal/labeling"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/rules"
	"github.com/Joshykins/stupid-neko-sub001/internal/observability"
)

var secret = []byte("router-test-secret")

type apiEnv struct {
	t      *testing.T
	db     *gorm.DB
	repos  repos.Set
	engine *gin.Engine
	token  string
	userID uuid.UUID
}

func newAPIEnv(t *testing.T, healthErr error) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(db, log)
	uc := progression.New(progression.UsecasesDeps{
		Log:    log,
		Rules:  rules.Default(),
		Writer: aggregates.NewWriter(aggregates.BaseDeps{DB: db, Log: log, RetryDelay: -1}),
		Repos:  set,
		Labels: labeling.NewStore(set.ContentLabels),
	})
	engine := NewRouter(RouterConfig{
		Log:                log,
		Metrics:            observability.NewMetrics(prometheus.NewRegistry()),
		AuthMiddleware:     httpMW.NewAuthMiddleware(log, secret),
		ProgressionHandler: httpH.NewProgressionHandler(log, uc),
		HealthHandler: httpH.NewHealthHandler(map[string]httpH.Pinger{
			"db": func(context.Context) error { return healthErr },
		}),
	})

	u, _ := testutil.SeedUser(t, context.Background(), db, "ja")
	tok, err := httpMW.SignToken(secret, u.ID, time.Hour)
	require.NoError(t, err)
	return &apiEnv{t: t, db: db, repos: set, engine: engine, token: tok, userID: u.ID}
}

func (e *apiEnv) do(method, path, body string, authed bool) (*httptest.ResponseRecorder, map[string]any) {
	e.t.Helper()
	var rdr *bytes.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	var out map[string]any
	if rec.Header().Get("Content-Type") != "" && rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func TestIngestAcceptsEnvelopeAndBareArray(t *testing.T) {
	e := newAPIEnv(t, nil)

	rec, out := e.do(http.MethodPost, "/api/events",
		`{"events":[{"content_key":"youtube:abc","activity_type":"start"},{"content_key":"youtube:abc","activity_type":"heartbeat"}]}`, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, out["ok"])
	assert.EqualValues(t, 2, out["ingested"])

	rec, out = e.do(http.MethodPost, "/api/events", `[{"content_key":"youtube:abc","activity_type":"end"}]`, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, out["ingested"])

	n, err := e.repos.RawEvents.CountByUser(context.Background(), nil, e.userID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestIngestRejectsBadInput(t *testing.T) {
	e := newAPIEnv(t, nil)

	rec, _ := e.do(http.MethodPost, "/api/events", ``, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = e.do(http.MethodPost, "/api/events", `{nope`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out := e.do(http.MethodPost, "/api/events", `[{"content_key":"youtube:abc","activity_type":"rewind"}]`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotNil(t, out["error"])

	rec, _ = e.do(http.MethodPost, "/api/events", `[{"content_key":"youtube:abc","activity_type":"start"}]`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestManualEntryThenDeleteRoundTrip(t *testing.T) {
	e := newAPIEnv(t, nil)

	rec, out := e.do(http.MethodPost, "/api/activities/manual", `{"title":"Graded reader","duration_ms":3600000}`, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	delta := out["experience_delta"].(float64)
	assert.Greater(t, delta, float64(0))
	act := out["activity"].(map[string]any)
	activityID := act["id"].(string)

	rec, out = e.do(http.MethodGet, "/api/progress", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	progress := out["progress"].(map[string]any)
	assert.EqualValues(t, 1, progress["current_streak"])
	assert.Equal(t, delta, progress["total_experience"])

	rec, out = e.do(http.MethodDelete, "/api/activities/"+activityID, "", true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, -delta, out["reversed_experience"])

	rec, out = e.do(http.MethodDelete, "/api/activities/"+activityID, "", true)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "activity_already_deleted", out["error"].(map[string]any)["code"])

	rec, _ = e.do(http.MethodDelete, "/api/activities/not-a-uuid", "", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = e.do(http.MethodGet, "/api/progress", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteUnknownActivityIsNotFound(t *testing.T) {
	e := newAPIEnv(t, nil)
	rec, _ := e.do(http.MethodDelete, "/api/activities/"+uuid.NewString(), "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	e := newAPIEnv(t, nil)
	rec, out := e.do(http.MethodGet, "/healthz", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["ok"])

	rec, _ = e.do(http.MethodGet, "/api/progress", "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = e.do(http.MethodGet, "/metrics", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `sn_api_requests_total{method="GET",route="/api/progress",status="401"} 1`)
	assert.NotContains(t, body, `route="/healthz"`)

	down := newAPIEnv(t, errors.New("connection refused"))
	rec, _ = down.do(http.MethodGet, "/healthz", "", false)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
