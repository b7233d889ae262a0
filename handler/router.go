package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter wires the health, metrics and running-log routes.
// gatherer may be nil to disable /metrics.
func SetupRouter(runLog *RunLogHandler, gatherer prometheus.Gatherer, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	// Configure max multipart memory (32 MB)
	router.MaxMultipartMemory = 32 << 20

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "Running Log OCR",
		})
	})
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api/v1")
	{
		runlog := api.Group("/runlog")
		{
			runlog.GET("/roster", runLog.GetRoster)
			runlog.POST("/sessions", runLog.StartSession)
			runlog.PUT("/sessions/:id/user", runLog.SelectUser)
			runlog.POST("/sessions/:id/submissions", runLog.Submit)
			runlog.GET("/sessions/:id/submissions/:sid", runLog.GetSubmission)
			runlog.POST("/sessions/:id/submissions/:sid/selection", runLog.SelectCandidate)
		}
	}
	return router
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
