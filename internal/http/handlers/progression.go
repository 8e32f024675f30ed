package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Joshykins/stupid-neko-sub001/internal/http/response"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/apierr"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/ctxutil"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

type ProgressionService interface {
	Ingest(ctx context.Context, userID uuid.UUID, inputs []progression.EventInput) (int, error)
	RecordManualActivity(ctx context.Context, userID uuid.UUID, in progression.ManualActivityInput) (progression.ManualActivityResult, error)
	DeleteActivity(ctx context.Context, userID, activityID uuid.UUID) (progression.DeleteActivityResult, error)
	Status(ctx context.Context, userID uuid.UUID) (progression.Status, error)
}

type ProgressionHandler struct {
	log *logger.Logger
	svc ProgressionService
}

func NewProgressionHandler(log *logger.Logger, svc ProgressionService) *ProgressionHandler {
	return &ProgressionHandler{log: log.With("handler", "ProgressionHandler"), svc: svc}
}

type ingestEventsRequest struct {
	Events []progression.EventInput `json:"events"`
}

// POST /api/events
func (h *ProgressionHandler) IngestEvents(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20)
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if len(raw) == 0 {
		response.RespondError(c, http.StatusBadRequest, "empty_body", nil)
		return
	}
	var inputs []progression.EventInput
	var env ingestEventsRequest
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Events) > 0 {
		inputs = env.Events
	} else {
		var arr []progression.EventInput
		if err2 := json.Unmarshal(raw, &arr); err2 != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_json", err2)
			return
		}
		inputs = arr
	}

	n, err := h.svc.Ingest(c.Request.Context(), rd.UserID, inputs)
	if err != nil {
		h.respondErr(c, err, "event_ingest_failed")
		return
	}
	response.RespondOK(c, gin.H{"ok": true, "ingested": n})
}

// POST /api/activities/manual
func (h *ProgressionHandler) RecordManualActivity(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req progression.ManualActivityInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	out, err := h.svc.RecordManualActivity(c.Request.Context(), rd.UserID, req)
	if err != nil {
		h.respondErr(c, err, "record_manual_activity_failed")
		return
	}
	response.RespondCreated(c, out)
}

// DELETE /api/activities/:id
func (h *ProgressionHandler) DeleteActivity(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	activityID, err := uuid.Parse(c.Param("id"))
	if err != nil || activityID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_activity_id", err)
		return
	}
	out, err := h.svc.DeleteActivity(c.Request.Context(), rd.UserID, activityID)
	if err != nil {
		h.respondErr(c, err, "delete_activity_failed")
		return
	}
	response.RespondOK(c, out)
}

// GET /api/progress
func (h *ProgressionHandler) GetProgress(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	out, err := h.svc.Status(c.Request.Context(), rd.UserID)
	if err != nil {
		h.respondErr(c, err, "load_progress_failed")
		return
	}
	response.RespondOK(c, gin.H{"progress": out})
}

func (h *ProgressionHandler) respondErr(c *gin.Context, err error, fallback string) {
	ae := apierr.From(err, fallback)
	if ae.Status >= http.StatusInternalServerError {
		h.log.Error("Progression request failed", "code", ae.Code, "error", ae.Err)
	}
	response.RespondError(c, ae.Status, ae.Code, ae.Err)
}
