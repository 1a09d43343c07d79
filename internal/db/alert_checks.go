package db

import (
	"context"

	"github.com/painscope/opportunity-engine/pkg/models"
)

// Condition queries behind the alert generator. Each returns the rows
// currently matching a condition; deduplication against already-raised
// alerts happens at insert time via the (type, cluster, topic) key.

// AlertCluster is the slim cluster view the alert checks consume.
type AlertCluster struct {
	ID             int64
	TopicCanonical string
	ProductName    string
	MemberCount    int
	LastSynthCount int
	TotalScore     int
}

// FreshlySynthesizedClusters returns clusters first synthesized within the
// lookback window; candidates for a new-opportunity alert.
func (s *Store) FreshlySynthesizedClusters(ctx context.Context, withinHours int) ([]AlertCluster, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, topic_canonical, COALESCE(product_name, ''),
		       member_count, last_synth_count, total_score
		FROM pain_clusters
		WHERE version = 1
		  AND synthesized_at > NOW() - make_interval(hours => $1)
		ORDER BY total_score DESC`, withinHours)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAlertClusters(rows)
}

// DoubledClusters returns synthesized clusters that at least doubled their
// membership since the last synthesis.
func (s *Store) DoubledClusters(ctx context.Context) ([]AlertCluster, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, topic_canonical, COALESCE(product_name, ''),
		       member_count, last_synth_count, total_score
		FROM pain_clusters
		WHERE version >= 1 AND member_count >= last_synth_count * 2
		ORDER BY member_count DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAlertClusters(rows)
}

func scanAlertClusters(rows scannable) ([]AlertCluster, error) {
	clusters := make([]AlertCluster, 0)
	for rows.Next() {
		var c AlertCluster
		if err := rows.Scan(&c.ID, &c.TopicCanonical, &c.ProductName,
			&c.MemberCount, &c.LastSynthCount, &c.TotalScore); err != nil {
			return nil, err
		}
		clusters = append(clusters, c)
	}
	return clusters, rows.Err()
}

// SpikesOn returns the trend snapshots flagged as spikes for one date.
func (s *Store) SpikesOn(ctx context.Context, date string) ([]models.PainTrend, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT topic_canonical, cluster_id, mention_count, new_mentions, trend_status
		FROM pain_trends
		WHERE snapshot_date = $1 AND bucket_type = 'daily' AND is_spike`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trends := make([]models.PainTrend, 0)
	for rows.Next() {
		var t models.PainTrend
		if err := rows.Scan(&t.TopicCanonical, &t.ClusterID, &t.MentionCount,
			&t.NewMentions, &t.TrendStatus); err != nil {
			return nil, err
		}
		t.SnapshotDate = date
		trends = append(trends, t)
	}
	return trends, rows.Err()
}

// RecentFeatureGaps returns competitor mentions with feature gaps mined
// within the lookback window.
func (s *Store) RecentFeatureGaps(ctx context.Context, withinHours, limit int) ([]models.CompetitorMention, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, product, vertical, subreddit, quote, author, sentiment,
		       feature_gap, source_url, source_score, mined_at
		FROM competitor_mentions
		WHERE feature_gap IS NOT NULL
		  AND mined_at > NOW() - make_interval(hours => $1)
		ORDER BY mined_at DESC
		LIMIT $2`, withinHours, limit)
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
