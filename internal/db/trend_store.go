package db

import (
	"context"
	"encoding/json"

	"github.com/painscope/opportunity-engine/pkg/models"
)

// TopicAggregate is the current per-topic shape the snapshotter measures.
type TopicAggregate struct {
	Topic           string
	ClusterID       *int64
	MentionCount    int
	AvgSeverity     float64
	SubredditSpread int
}

// TopicAggregates measures every normalized topic's current mention count,
// mean severity weight, and subreddit spread.
func (s *Store) TopicAggregates(ctx context.Context) ([]TopicAggregate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.normalized_topic,
		       (SELECT c.id FROM pain_clusters c
		        WHERE c.topic_canonical = r.normalized_topic
		        ORDER BY c.social_proof_count DESC LIMIT 1),
		       COUNT(*),
		       AVG(CASE COALESCE(r.severity, 'medium')
		               WHEN 'low' THEN 1 WHEN 'medium' THEN 2
		               WHEN 'high' THEN 3 WHEN 'critical' THEN 4
		               ELSE 2 END),
		       COUNT(DISTINCT r.subreddit)
		FROM pain_records r
		WHERE r.normalized_topic IS NOT NULL
		GROUP BY r.normalized_topic`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	aggs := make([]TopicAggregate, 0)
	for rows.Next() {
		var a TopicAggregate
		if err := rows.Scan(&a.Topic, &a.ClusterID, &a.MentionCount,
			&a.AvgSeverity, &a.SubredditSpread); err != nil {
			return nil, err
		}
		aggs = append(aggs, a)
	}
	return aggs, rows.Err()
}

// SnapshotHistory returns date → mention_count for a topic's daily
// snapshots on or after sinceDate (YYYY-MM-DD, lexicographically ordered).
func (s *Store) SnapshotHistory(ctx context.Context, topic, sinceDate string) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT snapshot_date, mention_count
		FROM pain_trends
		WHERE topic_canonical = $1 AND bucket_type = 'daily' AND snapshot_date >= $2`,
		topic, sinceDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make(map[string]int)
	for rows.Next() {
		var date string
		var count int
		if err := rows.Scan(&date, &count); err != nil {
			return nil, err
		}
		history[date] = count
	}
	return history, rows.Err()
}

// UpsertTrend writes one daily snapshot. Re-running on the same date
// replaces the row rather than appending.
func (s *Store) UpsertTrend(ctx context.Context, t models.PainTrend) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pain_trends
			(topic_canonical, snapshot_date, bucket_type, cluster_id,
			 mention_count, new_mentions, velocity, velocity_7d, velocity_30d,
			 trend_status, is_spike, avg_severity, subreddit_spread, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		ON CONFLICT (topic_canonical, snapshot_date, bucket_type) DO UPDATE SET
			cluster_id = EXCLUDED.cluster_id,
			mention_count = EXCLUDED.mention_count,
			new_mentions = EXCLUDED.new_mentions,
			velocity = EXCLUDED.velocity,
			velocity_7d = EXCLUDED.velocity_7d,
			velocity_30d = EXCLUDED.velocity_30d,
			trend_status = EXCLUDED.trend_status,
			is_spike = EXCLUDED.is_spike,
			avg_severity = EXCLUDED.avg_severity,
			subreddit_spread = EXCLUDED.subreddit_spread`,
		t.TopicCanonical, t.SnapshotDate, t.BucketType, t.ClusterID,
		t.MentionCount, t.NewMentions, t.Velocity, t.Velocity7d, t.Velocity30d,
		t.TrendStatus, t.IsSpike, t.AvgSeverity, t.SubredditSpread)
	return err
}

// RefreshTrendSummary rebuilds the per-topic rollup from the snapshot
// history: current values, running peak, first-seen date, last-30 sparkline.
func (s *Store) RefreshTrendSummary(ctx context.Context, topic string, current models.PainTrend) error {
	var peakCount int
	var peakDate, firstSeen string
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(mention_count), 0),
		       COALESCE((SELECT snapshot_date FROM pain_trends
		                 WHERE topic_canonical = $1 AND bucket_type = 'daily'
		                 ORDER BY mention_count DESC, snapshot_date LIMIT 1), ''),
		       COALESCE(MIN(snapshot_date), '')
		FROM pain_trends
		WHERE topic_canonical = $1 AND bucket_type = 'daily'`, topic).
		Scan(&peakCount, &peakDate, &firstSeen)
	if err != nil {
		return err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT mention_count FROM (
			SELECT snapshot_date, mention_count
			FROM pain_trends
			WHERE topic_canonical = $1 AND bucket_type = 'daily'
			ORDER BY snapshot_date DESC
			LIMIT 30
		) recent
		ORDER BY snapshot_date`, topic)
	if err != nil {
		return err
	}
	sparkline := make([]int, 0, 30)
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			rows.Close()
			return err
		}
		sparkline = append(sparkline, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	sparkJSON, err := json.Marshal(sparkline)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO trend_summary
			(topic_canonical, current_count, current_velocity, trend_status,
			 peak_count, peak_date, first_seen, last_updated, sparkline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), $8)
		ON CONFLICT (topic_canonical) DO UPDATE SET
			current_count = EXCLUDED.current_count,
			current_velocity = EXCLUDED.current_velocity,
			trend_status = EXCLUDED.trend_status,
			peak_count = EXCLUDED.peak_count,
			peak_date = EXCLUDED.peak_date,
			first_seen = EXCLUDED.first_seen,
			last_updated = NOW(),
			sparkline = EXCLUDED.sparkline`,
		topic, current.MentionCount, current.Velocity, current.TrendStatus,
		peakCount, peakDate, firstSeen, sparkJSON)
	return err
}

// ListTrendSummaries returns trend rollups, optionally filtered by status.
func (s *Store) ListTrendSummaries(ctx context.Context, status string, limit int) ([]models.TrendSummary, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT topic_canonical, current_count, current_velocity, trend_status,
		       peak_count, peak_date, first_seen, last_updated,
		       COALESCE(sparkline, '[]'::jsonb)
		FROM trend_summary`
	args := []any{}
	if status != "" {
		query += ` WHERE trend_status = $1`
		args = append(args, status)
		query += ` ORDER BY current_count DESC LIMIT $2`
	} else {
		query += ` ORDER BY current_count DESC LIMIT $1`
	}
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]models.TrendSummary, 0)
	for rows.Next() {
		var t models.TrendSummary
		var sparkRaw []byte
		if err := rows.Scan(&t.TopicCanonical, &t.CurrentCount, &t.CurrentVelocity,
			&t.TrendStatus, &t.PeakCount, &t.PeakDate, &t.FirstSeen,
			&t.LastUpdated, &sparkRaw); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(sparkRaw, &t.Sparkline)
		if len(t.Sparkline) > 30 {
			t.Sparkline = t.Sparkline[len(t.Sparkline)-30:]
		}
		summaries = append(summaries, t)
	}
	return summaries, rows.Err()
}

// TrendHistory returns a topic's daily snapshots for the last N days,
// oldest first.
func (s *Store) TrendHistory(ctx context.Context, topic string, days int) ([]models.PainTrend, error) {
	if days <= 0 || days > 365 {
		days = 30
	}

	rows, err := s.pool.Query(ctx, `
		SELECT topic_canonical, snapshot_date, bucket_type, cluster_id,
		       mention_count, new_mentions, velocity, velocity_7d, velocity_30d,
		       trend_status, is_spike, avg_severity, subreddit_spread, created_at
		FROM (
			SELECT * FROM pain_trends
			WHERE topic_canonical = $1 AND bucket_type = 'daily'
			ORDER BY snapshot_date DESC
			LIMIT $2
		) recent
		ORDER BY snapshot_date`, topic, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trends := make([]models.PainTrend, 0)
	for rows.Next() {
		var t models.PainTrend
		if err := rows.Scan(&t.TopicCanonical, &t.SnapshotDate, &t.BucketType,
			&t.ClusterID, &t.MentionCount, &t.NewMentions, &t.Velocity,
			&t.Velocity7d, &t.Velocity30d, &t.TrendStatus, &t.IsSpike,
			&t.AvgSeverity, &t.SubredditSpread, &t.CreatedAt); err != nil {
			return nil, err
		}
		trends = append(trends, t)
	}
	return trends, rows.Err()
}
