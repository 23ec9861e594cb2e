// README: Firebase bearer-token auth middleware.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docent/internal/infra"
)

const callerUIDKey = "caller_uid"

// Auth verifies the Authorization bearer token with Firebase and stores the
// caller UID on the context. A nil verifier disables auth entirely, for
// local development runs without a Firebase project.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		verified, err := verifier.VerifyIDToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(callerUIDKey, verified.UID)
		c.Next()
	}
}

// CallerUID returns the authenticated caller's UID, or "" when auth is off.
func CallerUID(c *gin.Context) string {
	return c.GetString(callerUIDKey)
}
