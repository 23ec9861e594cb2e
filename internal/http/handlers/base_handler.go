// README: Base handler utilities (JSON helpers, outcome mapping).
package handlers

import (
	"github.com/gin-gonic/gin"

	"docent/internal/modules/answer"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// outcomeBody flattens an answer outcome for the wire. The outcome tag lets
// the UI distinguish a refusal (out_of_scope) from a dependency being down
// (unavailable); they render very different messages.
func outcomeBody(out answer.Outcome) gin.H {
	body := gin.H{"outcome": string(out.Kind)}
	if out.Text != "" {
		body["text"] = out.Text
	}
	if out.Reason != "" {
		body["reason"] = out.Reason
	}
	return body
}
