// README: API server; registers HTTP routes and delegates to module services.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docent/internal/http/handlers"
	"docent/internal/http/middleware"
	"docent/internal/infra"
	"docent/internal/modules/broadcast"
	"docent/internal/modules/quota"
	"docent/internal/modules/session"
)

type ServerDeps struct {
	Manager   *session.Manager
	Publisher broadcast.Publisher
	Quota     *quota.Service
	Verifier  infra.TokenVerifier
	Log       *zap.Logger
}

// NewRouter wires middleware and routes. A nil Verifier leaves the API open
// for local development.
func NewRouter(deps ServerDeps) http.Handler {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log))
	r.Use(middleware.Logging(deps.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.Verifier))

	sessionHandler := handlers.NewSessionHandler(deps.Manager, deps.Quota)
	api.POST("/sessions", sessionHandler.Create)
	api.DELETE("/sessions/:id", sessionHandler.Close)
	api.PUT("/sessions/:id/location", sessionHandler.UpdateLocation)
	api.GET("/sessions/:id/state", sessionHandler.State)
	api.POST("/sessions/:id/ask", sessionHandler.Ask)

	broadcastHandler := handlers.NewBroadcastHandler(deps.Publisher, deps.Log)
	api.POST("/broadcast", broadcastHandler.Publish)

	return r
}
