package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vividhyeok/mixpipeline/internal/orchestrator"
	"github.com/vividhyeok/mixpipeline/internal/store"
)

// SetupRouter builds the process's gin.Engine, grounded on
// magda-api/internal/api/router.go's SetupRouter: recovery and request
// tracking first, CORS next, then a versioned route group.
func SetupRouter(o *orchestrator.Orchestrator, st *store.Store, logger *slog.Logger) *gin.Engine {
	router := gin.New()

	router.Use(recovery(logger))
	router.Use(requestTracking(logger))
	router.Use(cors())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	jobs := NewJobsHandler(o, st, logger)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/jobs", jobs.SubmitJob)
		v1.GET("/jobs/:id", jobs.GetJob)
		v1.POST("/jobs/:id/cancel", jobs.CancelJob)
		v1.GET("/jobs/:id/plan", jobs.GetPlan)
		v1.GET("/jobs/:id/plan/preview", jobs.GetPlanPreview)
	}

	return router
}
