package api

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/painscope/opportunity-engine/internal/db"
	"github.com/painscope/opportunity-engine/internal/metrics"
	"github.com/painscope/opportunity-engine/pkg/models"
)

// Read-side handlers. All pure readers over the store; every error maps
// to the {"error": string} shape with a 400/404/500 status.

func (h *APIHandler) handleListOpportunities(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	minMentions, _ := strconv.Atoi(c.DefaultQuery("min", "5"))

	filter := db.OpportunityFilter{
		Limit:       limit,
		MinMentions: minMentions,
		IncludeAll:  c.Query("all") == "true",
		Sort:        c.Query("sort"),
		Region:      c.Query("region"),
	}
	opportunities, err := h.store.ListOpportunities(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list opportunities"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": opportunities, "count": len(opportunities)})
}

func (h *APIHandler) handleGetOpportunity(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	detail, err := h.store.GetOpportunity(c.Request.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "opportunity not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load opportunity"})
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *APIHandler) handleOpportunityFeatures(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	features, err := h.store.ListMvpFeatures(c.Request.Context(), id, "", 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load features"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": features, "count": len(features)})
}

func (h *APIHandler) handleOpportunityLanding(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	page, err := h.store.GetLandingPage(c.Request.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no landing page for this opportunity"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load landing page"})
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *APIHandler) handleOpportunityOutreach(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	contacts, err := h.store.ListOutreachContacts(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load outreach list"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": contacts, "count": len(contacts)})
}

func (h *APIHandler) handleOpportunityGeo(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	detail, err := h.store.GetOpportunity(c.Request.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "opportunity not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load opportunity"})
		return
	}

	// Region breakdown over this cluster's own members.
	regions := make(map[string]int)
	for _, q := range detail.Quotes {
		regions[q.Subreddit]++
	}
	c.JSON(http.StatusOK, gin.H{
		"opportunity_id": id,
		"subreddits":     regions,
	})
}

func (h *APIHandler) handleListPainPoints(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	records, err := h.store.ListPainRecords(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list pain points"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": records, "count": len(records)})
}

func (h *APIHandler) handleListTopics(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	topics, err := h.store.ListTopics(c.Request.Context(), limit, page)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list topics"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": topics, "page": page, "count": len(topics)})
}

func (h *APIHandler) handleStats(c *gin.Context) {
	stats, err := h.store.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to assemble stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *APIHandler) handleListTrends(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	status := c.Query("status")
	switch status {
	case "", models.TrendHot, models.TrendRising, models.TrendStable,
		models.TrendCooling, models.TrendCold:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown trend status"})
		return
	}

	summaries, err := h.store.ListTrendSummaries(c.Request.Context(), status, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list trends"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summaries, "count": len(summaries)})
}

func (h *APIHandler) handleHotTrends(c *gin.Context) {
	summaries, err := h.store.ListTrendSummaries(c.Request.Context(), models.TrendHot, 25)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list hot trends"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summaries, "count": len(summaries)})
}

func (h *APIHandler) handleCoolingTrends(c *gin.Context) {
	cooling, err := h.store.ListTrendSummaries(c.Request.Context(), models.TrendCooling, 25)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list cooling trends"})
		return
	}
	cold, err := h.store.ListTrendSummaries(c.Request.Context(), models.TrendCold, 25)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list cooling trends"})
		return
	}
	combined := append(cooling, cold...)
	c.JSON(http.StatusOK, gin.H{"data": combined, "count": len(combined)})
}

func (h *APIHandler) handleTrendHistory(c *gin.Context) {
	topic := c.Param("topic")
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	history, err := h.store.TrendHistory(c.Request.Context(), topic, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load trend history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"topic": topic, "data": history, "count": len(history)})
}

func (h *APIHandler) handleListCompetitors(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	mentions, err := h.store.ListCompetitorMentions(c.Request.Context(), "", limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list competitor mentions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": mentions, "count": len(mentions)})
}

func (h *APIHandler) handleCompetitorProduct(c *gin.Context) {
	product := c.Param("product")
	mentions, err := h.store.ListCompetitorMentions(c.Request.Context(), product, 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list mentions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product, "data": mentions, "count": len(mentions)})
}

func (h *APIHandler) handleFeatureGaps(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	gaps, err := h.store.ListFeatureGaps(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list feature gaps"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gaps, "count": len(gaps)})
}

func (h *APIHandler) handleListMarket(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	estimates, err := h.store.ListMarketEstimates(c.Request.Context(), limit, c.Query("sort") == "som")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list market estimates"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": estimates, "count": len(estimates)})
}

func (h *APIHandler) handleGetMarket(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	estimate, err := h.store.GetMarketEstimate(c.Request.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no market estimate for this opportunity"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load market estimate"})
		return
	}
	c.JSON(http.StatusOK, estimate)
}

func (h *APIHandler) handleListFeatures(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	featureType := c.Query("type")
	switch featureType {
	case "", "core", "differentiator", "delighter":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown feature type"})
		return
	}
	features, err := h.store.ListMvpFeatures(c.Request.Context(), 0, featureType, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list features"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": features, "count": len(features)})
}

func (h *APIHandler) handleListAlerts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	alerts, err := h.store.ListAlerts(c.Request.Context(), c.Query("type"),
		c.Query("unread") == "true", limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list alerts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": alerts, "count": len(alerts)})
}

func (h *APIHandler) handleAlertCount(c *gin.Context) {
	n, err := h.store.UnreadAlertCount(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count alerts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": n})
}

func (h *APIHandler) handleMarkAlertRead(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	err := h.store.MarkAlertRead(c.Request.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark alert read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *APIHandler) handleMarkAllAlertsRead(c *gin.Context) {
	n, err := h.store.MarkAllAlertsRead(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark alerts read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "marked": n})
}

func (h *APIHandler) handleGeoStats(c *gin.Context) {
	stats, err := h.store.ListGeoStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list geo stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats, "count": len(stats)})
}

func (h *APIHandler) handleGeoRegion(c *gin.Context) {
	region := c.Param("region")
	stats, records, err := h.store.GetGeoStats(c.Request.Context(), region)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no data for region"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load region"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats, "recent_records": records})
}

// handleOutreachExport streams an opportunity's contact list (or all
// lists) as CSV.
func (h *APIHandler) handleOutreachExport(c *gin.Context) {
	var clusterID int64
	if raw := c.Query("opportunity_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid opportunity_id"})
			return
		}
		clusterID = parsed
	}

	contacts, err := h.store.ListOutreachContacts(c.Request.Context(), clusterID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load outreach list"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="outreach.csv"`)
	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"cluster_id", "username", "platform", "subreddit", "severity", "status", "quote", "source_url"})
	for _, contact := range contacts {
		_ = w.Write([]string{
			strconv.FormatInt(contact.ClusterID, 10),
			contact.Username,
			contact.Platform,
			contact.Subreddit,
			contact.PainSeverity,
			contact.Status,
			contact.Quote,
			contact.SourceURL,
		})
	}
	w.Flush()
}

func (h *APIHandler) handleOutreachStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	switch req.Status {
	case "pending", "contacted", "replied", "converted", "declined":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown status %q", req.Status)})
		return
	}

	err := h.store.SetOutreachStatus(c.Request.Context(), id, req.Status)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "contact not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// pathID parses the :id path segment; answers 400 itself on junk.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// handleClusterQuality compares the embedding-based cluster partition
// against the topic-label partition over recent assignments. A low
// agreement score is the early sign of cluster collapse or a bad
// similarity threshold.
func (h *APIHandler) handleClusterQuality(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "2000"))
	clusters, topics, err := h.store.ClusterAssignments(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load cluster assignments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sample_size":              len(clusters),
		"adjusted_rand_index":      metrics.AdjustedRandIndex(clusters, topics),
		"variation_of_information": metrics.VariationOfInformation(clusters, topics),
	})
}
