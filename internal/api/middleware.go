// Package api is the gin HTTP edge: submit job, get job, cancel job, get
// plan, plan preview (§4.6, §9). It is a thin layer — it enqueues work on
// the orchestrator and reads store records, and the analysis pipeline runs
// on the worker pool; the one exception is the plan-preview handler, which
// renders its ffmpeg preview inside the request. Grounded on
// magda-api/internal/api/router.go's SetupRouter
// and middleware stack, generalised from net/http to gin and from
// magda-api's logger package to log/slog.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// requestTracking stamps a request id on the context/response header and
// logs completion, the slog equivalent of the teacher's bracketed
// log.Printf("[tag] ...") lines.
func requestTracking(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()

		attrs := []any{
			"request_id", requestID,
			"duration_ms", duration.Milliseconds(),
			"status", status,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request failed", attrs...)
		case status >= http.StatusBadRequest:
			logger.Warn("request failed", attrs...)
		default:
			logger.Info("request completed", attrs...)
		}
	}
}

// recovery turns a panic anywhere downstream into a 500 instead of tearing
// down the whole process, mirroring the teacher's per-handler recover()
// pattern but applied once at the router level the way magda-api's
// RecoverWithSentry does (Sentry itself isn't part of this stack).
func recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", "request_id", c.GetString("request_id"), "panic", r, "path", c.Request.URL.Path)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error":      "internal server error",
					"request_id": c.GetString("request_id"),
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// cors generalises the teacher's corsMiddleware (main.go) from a raw
// net/http wrapper to a gin middleware.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
