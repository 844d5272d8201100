package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abelbrown/viralscope/internal/brain"
	"github.com/abelbrown/viralscope/internal/coord"
	"github.com/abelbrown/viralscope/internal/logging"
	"github.com/abelbrown/viralscope/internal/store"
)

// unavailableMessage is the only text clients see when analysis fails.
const unavailableMessage = "Analysis is temporarily unavailable. Please try again later."

// writeError maps an error to a status and a client-safe body. Provider
// error text never reaches the client.
func writeError(c *gin.Context, err error) {
	var (
		vErr      *coord.ValidationError
		allFailed *brain.AllProvidersFailedError
	)
	switch {
	case errors.As(err, &vErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": vErr.Error(),
			"field":   vErr.Field,
		})
	case errors.Is(err, ErrRateLimited):
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited", "message": err.Error()})
	case errors.Is(err, brain.ErrNoProviderConfigured), errors.As(err, &allFailed):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"error":   "analysis_unavailable",
			"message": unavailableMessage,
		})
	case errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, store.ErrInvalidKey):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// 499 is nginx's client-closed-request; the client is usually gone
		c.AbortWithStatusJSON(499, gin.H{"error": "request_cancelled"})
	default:
		logging.Error("Unhandled request error", "path", c.Request.URL.Path, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
