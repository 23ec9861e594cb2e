// README: Session lifecycle, location updates, state view, and questions.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docent/internal/http/middleware"
	"docent/internal/modules/answer"
	"docent/internal/modules/poi"
	"docent/internal/modules/quota"
	"docent/internal/modules/session"
	"docent/internal/types"
)

type SessionHandler struct {
	manager *session.Manager
	quota   *quota.Service
}

// NewSessionHandler wires the session endpoints. quotaSvc may be nil; the
// question allowance is then unmetered.
func NewSessionHandler(manager *session.Manager, quotaSvc *quota.Service) *SessionHandler {
	return &SessionHandler{manager: manager, quota: quotaSvc}
}

type createSessionReq struct {
	Lang string `json:"lang"`
}

// Create handles POST /api/sessions.
func (h *SessionHandler) Create(c *gin.Context) {
	var req createSessionReq
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	s, err := h.manager.Create(req.Lang)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{
		"session_id": string(s.ID),
		"lang":       s.Lang,
	})
}

// Close handles DELETE /api/sessions/:id.
func (h *SessionHandler) Close(c *gin.Context) {
	if !h.manager.Close(types.ID(c.Param("id"))) {
		writeError(c, http.StatusNotFound, "session not found")
		return
	}
	c.Status(http.StatusNoContent)
}

type locationReq struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	TsMs int64   `json:"ts_ms"`
}

// UpdateLocation handles PUT /api/sessions/:id/location.
func (h *SessionHandler) UpdateLocation(c *gin.Context) {
	s := h.manager.Get(types.ID(c.Param("id")))
	if s == nil {
		writeError(c, http.StatusNotFound, "session not found")
		return
	}

	var req locationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	point := types.Point{Lat: req.Lat, Lng: req.Lng}
	if !point.Valid() {
		writeError(c, http.StatusBadRequest, "coordinates out of range")
		return
	}

	observedAt := time.Now()
	if req.TsMs > 0 {
		observedAt = time.UnixMilli(req.TsMs)
	}
	accepted := s.OfferFix(poi.Fix{Position: point, ObservedAt: observedAt})
	writeJSON(c, http.StatusOK, gin.H{"accepted": accepted})
}

// State handles GET /api/sessions/:id/state.
func (h *SessionHandler) State(c *gin.Context) {
	s := h.manager.Get(types.ID(c.Param("id")))
	if s == nil {
		writeError(c, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(c, http.StatusOK, s.Snapshot())
}

type askReq struct {
	Question string `json:"question"`
}

// Ask handles POST /api/sessions/:id/ask. Runs synchronously on the request
// goroutine with a generation-sized timeout; tick loops are unaffected.
func (h *SessionHandler) Ask(c *gin.Context) {
	var req askReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	// Generation is metered per authenticated visitor. Unauthenticated runs
	// have no UID to charge, so they are unmetered.
	if uid := middleware.CallerUID(c); h.quota != nil && uid != "" {
		if err := h.quota.UseQuestion(ctx, uid); err != nil {
			if errors.Is(err, quota.ErrQuotaExhausted) {
				writeError(c, http.StatusTooManyRequests, "question quota exhausted")
				return
			}
			writeError(c, http.StatusInternalServerError, "internal error")
			return
		}
	}

	out, err := h.manager.Ask(ctx, types.ID(c.Param("id")), req.Question)
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(c, http.StatusNotFound, "session not found")
		return
	case errors.Is(err, answer.ErrEmptyQuestion):
		writeError(c, http.StatusBadRequest, "question is empty")
		return
	case err != nil:
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(c, http.StatusOK, outcomeBody(out))
}
