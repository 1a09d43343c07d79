package db

import (
	"context"
	"encoding/json"

	"github.com/painscope/opportunity-engine/pkg/models"
)

// Stores for the per-cluster enrichments: competitor mining, market
// sizing, MVP features, outreach lists, landing copy, alerts, geo rollups.

// InsertCompetitorMention records one mined complaint; deduplicated by
// source URL. Returns true when a row was actually inserted.
func (s *Store) InsertCompetitorMention(ctx context.Context, m models.CompetitorMention) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO competitor_mentions
			(product, vertical, subreddit, quote, author, sentiment,
			 feature_gap, source_url, source_score, mined_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, NOW())
		ON CONFLICT (source_url) DO NOTHING`,
		m.Product, m.Vertical, m.Subreddit, m.Quote, m.Author, m.Sentiment,
		m.FeatureGap, m.SourceURL, m.SourceScore)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListCompetitorMentions returns mined complaints, optionally filtered by
// product.
func (s *Store) ListCompetitorMentions(ctx context.Context, product string, limit int) ([]models.CompetitorMention, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, product, vertical, subreddit, quote, author, sentiment,
		       COALESCE(feature_gap, ''), source_url, source_score, mined_at
		FROM competitor_mentions`
	args := []any{}
	if product != "" {
		query += ` WHERE product = $1 ORDER BY mined_at DESC LIMIT $2`
		args = append(args, product, limit)
	} else {
		query += ` ORDER BY mined_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mentions := make([]models.CompetitorMention, 0)
	for rows.Next() {
		var m models.CompetitorMention
		if err := rows.Scan(&m.ID, &m.Product, &m.Vertical, &m.Subreddit,
			&m.Quote, &m.Author, &m.Sentiment, &m.FeatureGap,
			&m.SourceURL, &m.SourceScore, &m.MinedAt); err != nil {
			return nil, err
		}
		mentions = append(mentions, m)
	}
	return mentions, rows.Err()
}

// ListFeatureGaps returns mentions that carry an extracted feature-gap
// phrase, most recent first.
func (s *Store) ListFeatureGaps(ctx context.Context, limit int) ([]models.CompetitorMention, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, product, vertical, subreddit, quote, author, sentiment,
		       feature_gap, source_url, source_score, mined_at
		FROM competitor_mentions
		WHERE feature_gap IS NOT NULL
		ORDER BY mined_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mentions := make([]models.CompetitorMention, 0)
	for rows.Next() {
		var m models.CompetitorMention
		if err := rows.Scan(&m.ID, &m.Product, &m.Vertical, &m.Subreddit,
			&m.Quote, &m.Author, &m.Sentiment, &m.FeatureGap,
			&m.SourceURL, &m.SourceScore, &m.MinedAt); err != nil {
			return nil, err
		}
		mentions = append(mentions, m)
	}
	return mentions, rows.Err()
}

// UpsertMarketEstimate writes (or refreshes) a cluster's market sizing.
func (s *Store) UpsertMarketEstimate(ctx context.Context, e models.MarketEstimate) error {
	competitorsJSON, err := json.Marshal(e.Competitors)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO market_estimates
			(cluster_id, tam_usd, sam_usd, som_usd, confidence, method,
			 competitors, pricing_model, reasoning, estimated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (cluster_id) DO UPDATE SET
			tam_usd = EXCLUDED.tam_usd,
			sam_usd = EXCLUDED.sam_usd,
			som_usd = EXCLUDED.som_usd,
			confidence = EXCLUDED.confidence,
			method = EXCLUDED.method,
			competitors = EXCLUDED.competitors,
			pricing_model = EXCLUDED.pricing_model,
			reasoning = EXCLUDED.reasoning,
			estimated_at = NOW()`,
		e.ClusterID, e.TAMUSD, e.SAMUSD, e.SOMUSD, e.Confidence, e.Method,
		competitorsJSON, e.PricingModel, e.Reasoning)
	return err
}

// MarketCandidates returns synthesized clusters without a market estimate.
func (s *Store) MarketCandidates(ctx context.Context, limit int) ([]SynthCandidate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.topic_canonical, c.broad_category,
		       COALESCE(c.product_name, ''), COALESCE(c.tagline, ''),
		       c.version, c.member_count, c.last_synth_count
		FROM pain_clusters c
		LEFT JOIN market_estimates me ON me.cluster_id = c.id
		WHERE c.product_name IS NOT NULL AND me.id IS NULL
		ORDER BY c.social_proof_count DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := make([]SynthCandidate, 0)
	for rows.Next() {
		var c SynthCandidate
		if err := rows.Scan(&c.ID, &c.TopicCanonical, &c.BroadCategory,
			&c.ProductName, &c.Tagline, &c.Version, &c.MemberCount, &c.LastSynthCount); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// GetMarketEstimate loads one cluster's market estimate.
func (s *Store) GetMarketEstimate(ctx context.Context, clusterID int64) (*models.MarketEstimate, error) {
	var e models.MarketEstimate
	var competitorsRaw []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, cluster_id, tam_usd, sam_usd, som_usd, confidence, method,
		       COALESCE(competitors, '[]'::jsonb), COALESCE(pricing_model, ''),
		       COALESCE(reasoning, ''), estimated_at
		FROM market_estimates WHERE cluster_id = $1`, clusterID).
		Scan(&e.ID, &e.ClusterID, &e.TAMUSD, &e.SAMUSD, &e.SOMUSD,
			&e.Confidence, &e.Method, &competitorsRaw, &e.PricingModel,
			&e.Reasoning, &e.EstimatedAt)
	if err != nil {
		return nil, notFoundOr(err)
	}
	_ = json.Unmarshal(competitorsRaw, &e.Competitors)
	return &e, nil
}

// ListMarketEstimates returns estimates for the read API.
func (s *Store) ListMarketEstimates(ctx context.Context, limit int, sortBySOM bool) ([]models.MarketEstimate, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	orderBy := `tam_usd DESC`
	if sortBySOM {
		orderBy = `som_usd DESC`
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, cluster_id, tam_usd, sam_usd, som_usd, confidence, method,
		       COALESCE(competitors, '[]'::jsonb), COALESCE(pricing_model, ''),
		       COALESCE(reasoning, ''), estimated_at
		FROM market_estimates
		ORDER BY `+orderBy+`
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	estimates := make([]models.MarketEstimate, 0)
	for rows.Next() {
		var e models.MarketEstimate
		var competitorsRaw []byte
		if err := rows.Scan(&e.ID, &e.ClusterID, &e.TAMUSD, &e.SAMUSD, &e.SOMUSD,
			&e.Confidence, &e.Method, &competitorsRaw, &e.PricingModel,
			&e.Reasoning, &e.EstimatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(competitorsRaw, &e.Competitors)
		estimates = append(estimates, e)
	}
	return estimates, rows.Err()
}

// UpsertMvpFeature writes one extracted feature, keyed by (cluster, name).
func (s *Store) UpsertMvpFeature(ctx context.Context, f models.MvpFeature) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO mvp_features
			(cluster_id, name, description, feature_type, effort, priority, extracted_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (cluster_id, name) DO UPDATE SET
			description = EXCLUDED.description,
			feature_type = EXCLUDED.feature_type,
			effort = EXCLUDED.effort,
			priority = EXCLUDED.priority`,
		f.ClusterID, f.Name, f.Description, f.FeatureType, f.Effort, f.Priority)
	return err
}

// FeatureCandidates returns synthesized clusters with no extracted
// features yet.
func (s *Store) FeatureCandidates(ctx context.Context, limit int) ([]SynthCandidate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.topic_canonical, c.broad_category,
		       COALESCE(c.product_name, ''), COALESCE(c.tagline, ''),
		       c.version, c.member_count, c.last_synth_count
		FROM pain_clusters c
		WHERE c.product_name IS NOT NULL
		  AND NOT EXISTS (SELECT 1 FROM mvp_features f WHERE f.cluster_id = c.id)
		ORDER BY c.social_proof_count DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := make([]SynthCandidate, 0)
	for rows.Next() {
		var c SynthCandidate
		if err := rows.Scan(&c.ID, &c.TopicCanonical, &c.BroadCategory,
			&c.ProductName, &c.Tagline, &c.Version, &c.MemberCount, &c.LastSynthCount); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// ListMvpFeatures returns features, optionally filtered by type or cluster.
func (s *Store) ListMvpFeatures(ctx context.Context, clusterID int64, featureType string, limit int) ([]models.MvpFeature, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `
		SELECT id, cluster_id, name, description, feature_type, effort, priority, extracted_at
		FROM mvp_features
		WHERE ($1 = 0 OR cluster_id = $1)
		  AND ($2 = '' OR feature_type = $2)
		ORDER BY cluster_id, priority
		LIMIT $3`
	rows, err := s.pool.Query(ctx, query, clusterID, featureType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	features := make([]models.MvpFeature, 0)
	for rows.Next() {
		var f models.MvpFeature
		if err := rows.Scan(&f.ID, &f.ClusterID, &f.Name, &f.Description,
			&f.FeatureType, &f.Effort, &f.Priority, &f.ExtractedAt); err != nil {
			return nil, err
		}
		features = append(features, f)
	}
	return features, rows.Err()
}

// OutreachCandidates returns synthesized clusters that have no outreach
// contacts yet.
func (s *Store) OutreachCandidates(ctx context.Context, limit int) ([]SynthCandidate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.topic_canonical, c.broad_category,
		       COALESCE(c.product_name, ''), COALESCE(c.tagline, ''),
		       c.version, c.member_count, c.last_synth_count
		FROM pain_clusters c
		WHERE c.product_name IS NOT NULL
		  AND NOT EXISTS (SELECT 1 FROM outreach_contacts o WHERE o.cluster_id = c.id)
		ORDER BY c.social_proof_count DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := make([]SynthCandidate, 0)
	for rows.Next() {
		var c SynthCandidate
		if err := rows.Scan(&c.ID, &c.TopicCanonical, &c.BroadCategory,
			&c.ProductName, &c.Tagline, &c.Version, &c.MemberCount, &c.LastSynthCount); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// ClusterOutreachMembers returns a cluster's members as contact
// prototypes: the people who publicly described the pain, worst severity
// first then by engagement.
func (s *Store) ClusterOutreachMembers(ctx context.Context, clusterID int64, limit int) ([]models.OutreachContact, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.author, r.subreddit, r.raw_quote, r.source_url,
		       COALESCE(r.severity, 'medium')
		FROM cluster_members m
		JOIN pain_records r ON r.id = m.pain_record_id
		WHERE m.cluster_id = $1
		  AND r.author <> '' AND r.author <> '[deleted]'
		ORDER BY CASE COALESCE(r.severity, 'medium')
		             WHEN 'critical' THEN 4 WHEN 'high' THEN 3
		             WHEN 'medium' THEN 2 ELSE 1 END DESC,
		         r.source_score DESC
		LIMIT $2`, clusterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := make([]models.OutreachContact, 0)
	for rows.Next() {
		var c models.OutreachContact
		if err := rows.Scan(&c.Username, &c.Subreddit, &c.Quote,
			&c.SourceURL, &c.PainSeverity); err != nil {
			return nil, err
		}
		c.ClusterID = clusterID
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// UpsertOutreachContact adds a candidate contact, keyed by
// (cluster, username).
func (s *Store) UpsertOutreachContact(ctx context.Context, c models.OutreachContact) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO outreach_contacts
			(cluster_id, username, platform, subreddit, quote, source_url,
			 pain_severity, status, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', NOW())
		ON CONFLICT (cluster_id, username) DO NOTHING`,
		c.ClusterID, c.Username, c.Platform, c.Subreddit, c.Quote,
		c.SourceURL, c.PainSeverity)
	return err
}

// ListOutreachContacts returns a cluster's outreach list (all clusters
// when clusterID is 0).
func (s *Store) ListOutreachContacts(ctx context.Context, clusterID int64) ([]models.OutreachContact, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, cluster_id, username, platform, subreddit, quote,
		       source_url, pain_severity, status, added_at
		FROM outreach_contacts
		WHERE ($1 = 0 OR cluster_id = $1)
		ORDER BY cluster_id, added_at`, clusterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := make([]models.OutreachContact, 0)
	for rows.Next() {
		var c models.OutreachContact
		if err := rows.Scan(&c.ID, &c.ClusterID, &c.Username, &c.Platform,
			&c.Subreddit, &c.Quote, &c.SourceURL, &c.PainSeverity,
			&c.Status, &c.AddedAt); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// SetOutreachStatus updates one contact's workflow status.
func (s *Store) SetOutreachStatus(ctx context.Context, contactID int64, status string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE outreach_contacts SET status = $2 WHERE id = $1`, contactID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertLandingPage writes generated landing copy for a cluster.
func (s *Store) UpsertLandingPage(ctx context.Context, p models.LandingPage) error {
	bulletsJSON, err := json.Marshal(p.Bullets)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO landing_pages
			(cluster_id, headline, subheadline, bullets, cta_text, generated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (cluster_id) DO UPDATE SET
			headline = EXCLUDED.headline,
			subheadline = EXCLUDED.subheadline,
			bullets = EXCLUDED.bullets,
			cta_text = EXCLUDED.cta_text,
			generated_at = NOW()`,
		p.ClusterID, p.Headline, p.Subheadline, bulletsJSON, p.CTAText)
	return err
}

// GetLandingPage loads one cluster's landing copy.
func (s *Store) GetLandingPage(ctx context.Context, clusterID int64) (*models.LandingPage, error) {
	var p models.LandingPage
	var bulletsRaw []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, cluster_id, headline, subheadline,
		       COALESCE(bullets, '[]'::jsonb), cta_text, generated_at
		FROM landing_pages WHERE cluster_id = $1`, clusterID).
		Scan(&p.ID, &p.ClusterID, &p.Headline, &p.Subheadline,
			&bulletsRaw, &p.CTAText, &p.GeneratedAt)
	if err != nil {
		return nil, notFoundOr(err)
	}
	_ = json.Unmarshal(bulletsRaw, &p.Bullets)
	return &p, nil
}

// InsertAlert persists an alert. Keyed by (type, cluster, topic) so
// re-checking the same condition does not duplicate notifications.
// Returns the stored alert with its id when a row was inserted.
func (s *Store) InsertAlert(ctx context.Context, a models.Alert) (*models.Alert, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO alerts (alert_type, severity, title, body, cluster_id, topic, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NOW())
		ON CONFLICT (alert_type, cluster_id, topic) DO NOTHING
		RETURNING id, created_at`,
		a.AlertType, a.Severity, a.Title, a.Body, a.ClusterID, a.Topic).
		Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		if notFoundOr(err) == ErrNotFound {
			return nil, nil // already alerted on this condition
		}
		return nil, err
	}
	return &a, nil
}

// ListAlerts returns alerts with optional type/unread filters.
func (s *Store) ListAlerts(ctx context.Context, alertType string, unreadOnly bool, limit, offset int) ([]models.Alert, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, alert_type, severity, title, body, cluster_id,
		       COALESCE(topic, ''), is_read, created_at
		FROM alerts
		WHERE ($1 = '' OR alert_type = $1)
		  AND (NOT $2 OR NOT is_read)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`, alertType, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := make([]models.Alert, 0)
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.ID, &a.AlertType, &a.Severity, &a.Title, &a.Body,
			&a.ClusterID, &a.Topic, &a.IsRead, &a.CreatedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// UnreadAlertCount returns the number of unread alerts.
func (s *Store) UnreadAlertCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM alerts WHERE NOT is_read`).Scan(&n)
	return n, err
}

// MarkAlertRead flags one alert as read.
func (s *Store) MarkAlertRead(ctx context.Context, alertID int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE alerts SET is_read = TRUE WHERE id = $1`, alertID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllAlertsRead flags every alert as read and reports how many changed.
func (s *Store) MarkAllAlertsRead(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE alerts SET is_read = TRUE WHERE NOT is_read`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// RefreshGeoStats rebuilds the per-region aggregates from pain_records.
func (s *Store) RefreshGeoStats(ctx context.Context) error {
	rows, err := s.pool.Query(ctx, `
		SELECT r.geo_region, COUNT(*),
		       COUNT(DISTINCT r.cluster_id) FILTER (WHERE r.cluster_id IS NOT NULL),
		       COALESCE(AVG(r.geo_confidence), 0)
		FROM pain_records r
		WHERE r.geo_region IS NOT NULL
		GROUP BY r.geo_region`)
	if err != nil {
		return err
	}

	type regionAgg struct {
		region        string
		records       int
		clusters      int
		avgConfidence float64
	}
	aggs := make([]regionAgg, 0)
	for rows.Next() {
		var a regionAgg
		if err := rows.Scan(&a.region, &a.records, &a.clusters, &a.avgConfidence); err != nil {
			rows.Close()
			return err
		}
		aggs = append(aggs, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, a := range aggs {
		topicRows, err := s.pool.Query(ctx, `
			SELECT normalized_topic FROM pain_records
			WHERE geo_region = $1 AND normalized_topic IS NOT NULL
			GROUP BY normalized_topic
			ORDER BY COUNT(*) DESC
			LIMIT 5`, a.region)
		if err != nil {
			return err
		}
		topics := make([]string, 0, 5)
		for topicRows.Next() {
			var t string
			if err := topicRows.Scan(&t); err != nil {
				topicRows.Close()
				return err
			}
			topics = append(topics, t)
		}
		topicRows.Close()
		if err := topicRows.Err(); err != nil {
			return err
		}

		topicsJSON, err := json.Marshal(topics)
		if err != nil {
			return err
		}
		_, err = s.pool.Exec(ctx, `
			INSERT INTO geo_stats (region, record_count, cluster_count, top_topics, avg_confidence, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			ON CONFLICT (region) DO UPDATE SET
				record_count = EXCLUDED.record_count,
				cluster_count = EXCLUDED.cluster_count,
				top_topics = EXCLUDED.top_topics,
				avg_confidence = EXCLUDED.avg_confidence,
				updated_at = NOW()`,
			a.region, a.records, a.clusters, topicsJSON, a.avgConfidence)
		if err != nil {
			return err
		}
	}
	return nil
}

// ListGeoStats returns all region aggregates.
func (s *Store) ListGeoStats(ctx context.Context) ([]models.GeoStats, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT region, record_count, cluster_count,
		       COALESCE(top_topics, '[]'::jsonb), avg_confidence, updated_at
		FROM geo_stats
		ORDER BY record_count DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]models.GeoStats, 0)
	for rows.Next() {
		var g models.GeoStats
		var topicsRaw []byte
		if err := rows.Scan(&g.Region, &g.RecordCount, &g.ClusterCount,
			&topicsRaw, &g.AvgConfidence, &g.UpdatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(topicsRaw, &g.TopTopics)
		stats = append(stats, g)
	}
	return stats, rows.Err()
}

// GetGeoStats returns one region's aggregate plus its newest records.
func (s *Store) GetGeoStats(ctx context.Context, region string) (*models.GeoStats, []models.PainRecord, error) {
	var g models.GeoStats
	var topicsRaw []byte
	err := s.pool.QueryRow(ctx, `
		SELECT region, record_count, cluster_count,
		       COALESCE(top_topics, '[]'::jsonb), avg_confidence, updated_at
		FROM geo_stats WHERE region = $1`, region).
		Scan(&g.Region, &g.RecordCount, &g.ClusterCount, &topicsRaw,
			&g.AvgConfidence, &g.UpdatedAt)
	if err != nil {
		return nil, nil, notFoundOr(err)
	}
	_ = json.Unmarshal(topicsRaw, &g.TopTopics)

	rows, err := s.pool.Query(ctx, `
		SELECT id, source_type, source_id, subreddit, raw_quote, author,
		       source_score, source_url
		FROM pain_records
		WHERE geo_region = $1
		ORDER BY id DESC
		LIMIT 25`, region)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	records, err := scanPainRecords(rows)
	if err != nil {
		return nil, nil, err
	}
	return &g, records, nil
}

// ResetDerived truncates every derived table, leaving the raw harvest
// intact. Backing for POST /api/trigger/reset.
func (s *Store) ResetDerived(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		TRUNCATE pain_records, embeddings, pain_clusters, cluster_members,
		         pain_trends, trend_summary, competitor_mentions,
		         market_estimates, mvp_features, outreach_contacts,
		         landing_pages, alerts, geo_stats
		RESTART IDENTITY CASCADE`)
	if err != nil {
		return err
	}
	// Re-arm the binary filter: raw comments keep their rows but forget
	// their verdicts so the pipeline can rebuild from scratch.
	_, err = s.pool.Exec(ctx,
		`UPDATE raw_comments SET processed_at = NULL, is_pain_point = NULL`)
	return err
}
