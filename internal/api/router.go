package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iamrudi/AgentDash-sub003/internal/config"
)

// NewRouter assembles the HTTP surface: the SLA API under /api/v1,
// a liveness probe, and the Prometheus scrape endpoint when enabled.
func NewRouter(cfg *config.Config, handlers *SlaHandlers) *gin.Engine {
	if cfg != nil && cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg == nil || !cfg.App.IsProduction() {
		router.Use(gin.Logger())
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg == nil || cfg.Metrics.Enabled {
		path := "/metrics"
		if cfg != nil && cfg.Metrics.Path != "" {
			path = cfg.Metrics.Path
		}
		router.GET(path, gin.WrapH(promhttp.Handler()))
	}

	v1 := router.Group("/api/v1/sla")
	{
		v1.POST("/scan/:agencyID", handlers.HandleRunScan)
		v1.GET("/breaches", handlers.HandleListBreaches)
		v1.GET("/breaches/:id/events", handlers.HandleBreachEvents)
		v1.POST("/breaches/:id/acknowledge", handlers.HandleAcknowledgeBreach)
		v1.POST("/breaches/:id/resolve", handlers.HandleResolveBreach)
		v1.GET("/metrics", handlers.HandleGetMetrics)
		v1.GET("/tasks/:id/status", handlers.HandleTaskStatus)
	}

	return router
}
