// README: Operator broadcast endpoint.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docent/internal/modules/broadcast"
)

type BroadcastHandler struct {
	publisher broadcast.Publisher
	log       *zap.Logger
}

func NewBroadcastHandler(publisher broadcast.Publisher, log *zap.Logger) *BroadcastHandler {
	return &BroadcastHandler{publisher: publisher, log: log}
}

type broadcastReq struct {
	Command string `json:"command"`
}

// Publish handles POST /api/broadcast. The command is stamped here and goes
// through the feed like any other delivery, so the arbiter path is identical
// for local and remote publishers.
func (h *BroadcastHandler) Publish(c *gin.Context) {
	var req broadcastReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !broadcast.KnownCommand(req.Command) {
		writeError(c, http.StatusBadRequest, "unknown command")
		return
	}

	cmd := broadcast.NewCommand(req.Command)
	if err := h.publisher.Publish(c.Request.Context(), cmd); err != nil {
		h.log.Error("broadcast publish failed", zap.Error(err))
		writeError(c, http.StatusBadGateway, "broadcast feed unavailable")
		return
	}
	writeJSON(c, http.StatusAccepted, gin.H{
		"command":   cmd.Name,
		"issued_at": cmd.IssuedAt,
	})
}
