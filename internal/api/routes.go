package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/painscope/opportunity-engine/internal/config"
	"github.com/painscope/opportunity-engine/internal/db"
	"github.com/painscope/opportunity-engine/internal/pipeline"
)

const engineVersion = "1.0.0"

type APIHandler struct {
	store *db.Store
	pipe  *pipeline.Pipeline
	wsHub *Hub
	jobs  *jobTracker
}

func SetupRouter(store *db.Store, pipe *pipeline.Pipeline, wsHub *Hub, cfg config.Config) *gin.Engine {
	r := gin.Default()

	// CORS — configurable via ALLOWED_ORIGINS; empty means open reads.
	allowedOrigins := cfg.AllowedOrigins
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Accept, Origin, Cache-Control, X-Requested-With, X-Identity-Token")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})
	r.Use(IdentityMiddleware())
	r.Use(func(c *gin.Context) {
		// Known callers leave an audit trail; failures never block reads.
		if id := identityFrom(c); id != nil {
			_ = store.TouchUser(c.Request.Context(), id.Email)
		}
		c.Next()
	})

	limiter := NewRateLimiter(120, 30)
	handler := &APIHandler{store: store, pipe: pipe, wsHub: wsHub, jobs: newJobTracker()}

	r.GET("/health", handler.handleHealth)

	api := r.Group("/api", limiter.Middleware())
	{
		api.GET("/opportunities", handler.handleListOpportunities)
		api.GET("/opportunities/:id", handler.handleGetOpportunity)
		api.GET("/opportunities/:id/features", handler.handleOpportunityFeatures)
		api.GET("/opportunities/:id/landing", handler.handleOpportunityLanding)
		api.GET("/opportunities/:id/outreach", handler.handleOpportunityOutreach)
		api.GET("/opportunities/:id/geo", handler.handleOpportunityGeo)

		api.GET("/painpoints", handler.handleListPainPoints)
		api.GET("/topics", handler.handleListTopics)
		api.GET("/stats", handler.handleStats)
		api.GET("/cluster-quality", handler.handleClusterQuality)

		api.GET("/trends", handler.handleListTrends)
		api.GET("/trends/hot", handler.handleHotTrends)
		api.GET("/trends/cooling", handler.handleCoolingTrends)
		api.GET("/trends/history/:topic", handler.handleTrendHistory)

		api.GET("/competitors", handler.handleListCompetitors)
		api.GET("/competitors/:product", handler.handleCompetitorProduct)
		api.GET("/feature-gaps", handler.handleFeatureGaps)

		api.GET("/market", handler.handleListMarket)
		api.GET("/market/:id", handler.handleGetMarket)
		api.GET("/features", handler.handleListFeatures)

		api.GET("/alerts", handler.handleListAlerts)
		api.GET("/alerts/count", handler.handleAlertCount)
		api.GET("/alerts/stream", wsHub.Subscribe)

		api.GET("/geo/stats", handler.handleGeoStats)
		api.GET("/geo/:region", handler.handleGeoRegion)

		api.GET("/outreach/export", handler.handleOutreachExport)
		api.GET("/trigger/status", handler.handleTriggerStatus)

		// Mutations require the proxy-verified identity.
		protected := api.Group("", RequireIdentity())
		{
			protected.POST("/alerts/:id/read", handler.handleMarkAlertRead)
			protected.POST("/alerts/read-all", handler.handleMarkAllAlertsRead)
			protected.POST("/outreach/:id/status", handler.handleOutreachStatus)
			protected.POST("/trigger/:phase", handler.handleTrigger)
		}
	}

	return r
}

// handleHealth reports engine status for service discovery and probes.
func (h *APIHandler) handleHealth(c *gin.Context) {
	status := "operational"
	dbConnected := true
	if err := h.store.Ping(c.Request.Context()); err != nil {
		status = "degraded"
		dbConnected = false
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      status,
		"version":     engineVersion,
		"timestamp":   time.Now().UnixMilli(),
		"dbConnected": dbConnected,
		"capabilities": []string{
			"ingestion", "pain-mining", "clustering", "synthesis",
			"trends", "geo", "competitors", "alerts", "outreach",
		},
	})
}
