package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/painscope/opportunity-engine/pkg/models"
)

// Read-side queries backing the HTTP API. Pure readers; no row here is
// ever mutated by this file.

// OpportunityFilter narrows the opportunity listing.
type OpportunityFilter struct {
	Limit       int
	MinMentions int
	IncludeAll  bool // include clusters without a synthesized concept
	Sort        string
	Region      string
}

// ListOpportunities returns clusters projected as opportunities, joined
// with their market estimate when present.
func (s *Store) ListOpportunities(ctx context.Context, f OpportunityFilter) ([]models.Opportunity, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.MinMentions <= 0 {
		f.MinMentions = 5
	}

	orderBy := `c.social_proof_count DESC`
	switch f.Sort {
	case "market_tam":
		orderBy = `me.tam_usd DESC NULLS LAST, c.social_proof_count DESC`
	case "total_score":
		orderBy = `c.total_score DESC, c.social_proof_count DESC`
	}

	query := `
		SELECT c.id, c.centroid_text, c.topic_canonical, c.broad_category,
		       COALESCE(c.product_name, ''), COALESCE(c.tagline, ''),
		       COALESCE(c.how_it_works, '[]'::jsonb),
		       COALESCE(c.target_customer, ''),
		       c.social_proof_count, c.last_synth_count, c.version,
		       c.member_count, c.unique_authors, c.subreddit_count,
		       c.total_upvotes, c.total_score, c.created_at, c.updated_at,
		       c.synthesized_at, c.scored_at,
		       COALESCE(c.top_quotes, '[]'::jsonb),
		       COALESCE(c.subreddits_list, '[]'::jsonb),
		       me.tam_usd
		FROM pain_clusters c
		LEFT JOIN market_estimates me ON me.cluster_id = c.id
		WHERE c.social_proof_count >= $1`
	args := []any{f.MinMentions}

	if !f.IncludeAll {
		query += ` AND c.product_name IS NOT NULL`
	}
	if f.Region != "" {
		query += ` AND EXISTS (
			SELECT 1 FROM cluster_members m
			JOIN pain_records r ON r.id = m.pain_record_id
			WHERE m.cluster_id = c.id AND r.geo_region = $2)`
		args = append(args, f.Region)
	}
	query += ` ORDER BY ` + orderBy
	if f.Region != "" {
		query += ` LIMIT $3`
	} else {
		query += ` LIMIT $2`
	}
	args = append(args, f.Limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	opportunities := make([]models.Opportunity, 0)
	for rows.Next() {
		var o models.Opportunity
		var howRaw, quotesRaw, subsRaw []byte
		if err := rows.Scan(&o.ID, &o.CentroidText, &o.TopicCanonical, &o.BroadCategory,
			&o.ProductName, &o.Tagline, &howRaw, &o.TargetCustomer,
			&o.SocialProofCount, &o.LastSynthCount, &o.Version,
			&o.MemberCount, &o.UniqueAuthors, &o.SubredditCount,
			&o.TotalUpvotes, &o.TotalScore, &o.CreatedAt, &o.UpdatedAt,
			&o.SynthesizedAt, &o.ScoredAt, &quotesRaw, &subsRaw, &o.MarketTAM); err != nil {
			return nil, err
		}
		// JSON columns are untrusted; bad shapes degrade to empty slices.
		_ = json.Unmarshal(howRaw, &o.HowItWorks)
		_ = json.Unmarshal(quotesRaw, &o.TopQuotes)
		_ = json.Unmarshal(subsRaw, &o.SubredditsList)
		opportunities = append(opportunities, o)
	}
	return opportunities, rows.Err()
}

// OpportunityDetail is the full cluster view: concept, every member quote,
// persona list, and severity breakdown.
type OpportunityDetail struct {
	models.Opportunity
	Quotes            []models.ClusterQuote `json:"quotes"`
	Personas          []string              `json:"personas"`
	SeverityBreakdown map[string]int        `json:"severity_breakdown"`
}

// GetOpportunity loads one cluster with all member quotes joined in.
func (s *Store) GetOpportunity(ctx context.Context, id int64) (*OpportunityDetail, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT c.id, c.centroid_text, c.topic_canonical, c.broad_category,
		       COALESCE(c.product_name, ''), COALESCE(c.tagline, ''),
		       COALESCE(c.how_it_works, '[]'::jsonb),
		       COALESCE(c.target_customer, ''),
		       c.social_proof_count, c.last_synth_count, c.version,
		       c.member_count, c.unique_authors, c.subreddit_count,
		       c.total_upvotes, c.total_score, c.created_at, c.updated_at,
		       c.synthesized_at, c.scored_at,
		       COALESCE(c.top_quotes, '[]'::jsonb),
		       COALESCE(c.subreddits_list, '[]'::jsonb),
		       me.tam_usd
		FROM pain_clusters c
		LEFT JOIN market_estimates me ON me.cluster_id = c.id
		WHERE c.id = $1`, id)

	var d OpportunityDetail
	var howRaw, quotesRaw, subsRaw []byte
	err := row.Scan(&d.ID, &d.CentroidText, &d.TopicCanonical, &d.BroadCategory,
		&d.ProductName, &d.Tagline, &howRaw, &d.TargetCustomer,
		&d.SocialProofCount, &d.LastSynthCount, &d.Version,
		&d.MemberCount, &d.UniqueAuthors, &d.SubredditCount,
		&d.TotalUpvotes, &d.TotalScore, &d.CreatedAt, &d.UpdatedAt,
		&d.SynthesizedAt, &d.ScoredAt, &quotesRaw, &subsRaw, &d.MarketTAM)
	if err != nil {
		return nil, notFoundOr(err)
	}
	_ = json.Unmarshal(howRaw, &d.HowItWorks)
	_ = json.Unmarshal(quotesRaw, &d.TopQuotes)
	_ = json.Unmarshal(subsRaw, &d.SubredditsList)

	rows, err := s.pool.Query(ctx, `
		SELECT r.raw_quote, r.author, r.subreddit, r.source_score,
		       COALESCE(r.severity, ''), COALESCE(r.persona, '')
		FROM cluster_members m
		JOIN pain_records r ON r.id = m.pain_record_id
		WHERE m.cluster_id = $1
		ORDER BY r.source_score DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	d.Quotes = make([]models.ClusterQuote, 0)
	d.SeverityBreakdown = make(map[string]int)
	personaSet := make(map[string]bool)
	for rows.Next() {
		var q models.ClusterQuote
		if err := rows.Scan(&q.Quote, &q.Author, &q.Subreddit, &q.Score, &q.Severity, &q.Persona); err != nil {
			return nil, err
		}
		d.Quotes = append(d.Quotes, q)
		if q.Severity != "" {
			d.SeverityBreakdown[q.Severity]++
		}
		if q.Persona != "" && !personaSet[q.Persona] {
			personaSet[q.Persona] = true
			d.Personas = append(d.Personas, q.Persona)
		}
	}
	return &d, rows.Err()
}

// TopicCount is one row of the topics listing.
type TopicCount struct {
	Topic       string `json:"topic"`
	RecordCount int    `json:"record_count"`
	ClusterID   *int64 `json:"cluster_id,omitempty"`
}

// ListTopics returns normalized topics by record count, paginated.
func (s *Store) ListTopics(ctx context.Context, limit, page int) ([]TopicCount, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	rows, err := s.pool.Query(ctx, `
		SELECT r.normalized_topic, COUNT(*) AS n,
		       (SELECT c.id FROM pain_clusters c
		        WHERE c.topic_canonical = r.normalized_topic
		        ORDER BY c.social_proof_count DESC LIMIT 1)
		FROM pain_records r
		WHERE r.normalized_topic IS NOT NULL
		GROUP BY r.normalized_topic
		ORDER BY n DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	topics := make([]TopicCount, 0)
	for rows.Next() {
		var t TopicCount
		if err := rows.Scan(&t.Topic, &t.RecordCount, &t.ClusterID); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// TouchUser upserts the identified caller for audit purposes.
func (s *Store) TouchUser(ctx context.Context, email string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (email, first_seen, last_seen)
		VALUES ($1, NOW(), NOW())
		ON CONFLICT (email) DO UPDATE SET last_seen = NOW()`, email)
	return err
}

// EngineStats is the /api/stats payload.
type EngineStats struct {
	RawPosts         int64     `json:"raw_posts"`
	RawComments      int64     `json:"raw_comments"`
	PainRecords      int64     `json:"pain_records"`
	TaggedRecords    int64     `json:"tagged_records"`
	ClusteredRecords int64     `json:"clustered_records"`
	Clusters         int64     `json:"clusters"`
	Alerts           int64     `json:"alerts"`
	CronCount        int       `json:"cron_count"`
	FilterDefaulted  int       `json:"filter_defaulted"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// GetStats assembles the engine-wide statistics payload.
func (s *Store) GetStats(ctx context.Context) (*EngineStats, error) {
	var st EngineStats
	var err error

	if st.RawPosts, st.RawComments, err = s.RawCounts(ctx); err != nil {
		return nil, err
	}
	if st.PainRecords, st.TaggedRecords, st.ClusteredRecords, err = s.PainRecordCounts(ctx); err != nil {
		return nil, err
	}
	if st.Clusters, err = s.ClusterCount(ctx); err != nil {
		return nil, err
	}
	if err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM alerts`).Scan(&st.Alerts); err != nil {
		return nil, err
	}
	if st.CronCount, err = s.GetStateInt(ctx, "cron_count"); err != nil {
		return nil, err
	}
	if st.FilterDefaulted, err = s.GetStateInt(ctx, "filter_defaulted_count"); err != nil {
		return nil, err
	}
	st.GeneratedAt = time.Now()
	return &st, nil
}
