package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/painscope/opportunity-engine/pkg/models"
)

// ClusterCandidate is the in-memory view the clusterer matches new records
// against: cluster identity plus its (never recomputed) centroid vector.
type ClusterCandidate struct {
	ID               int64
	TopicCanonical   string
	SocialProofCount int
	Centroid         []float32
}

// ClusterCandidates loads every cluster that has a centroid embedding.
func (s *Store) ClusterCandidates(ctx context.Context) ([]ClusterCandidate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.topic_canonical, c.social_proof_count, e.vector
		FROM pain_clusters c
		JOIN embeddings e ON e.id = c.centroid_embedding_id
		ORDER BY c.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := make([]ClusterCandidate, 0)
	for rows.Next() {
		var cand ClusterCandidate
		var raw []byte
		if err := rows.Scan(&cand.ID, &cand.TopicCanonical, &cand.SocialProofCount, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &cand.Centroid); err != nil {
			continue // malformed vector column; skip rather than poison the pass
		}
		candidates = append(candidates, cand)
	}
	return candidates, rows.Err()
}

// CreateCluster opens a new cluster seeded by its founding record. The
// centroid text is the record's quote (first 200 chars) and the centroid
// embedding is the record's own vector.
func (s *Store) CreateCluster(ctx context.Context, r models.PainRecord, broadCategory string) (int64, error) {
	centroid := r.RawQuote
	if len(centroid) > 200 {
		centroid = centroid[:200]
	}

	var clusterID int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO pain_clusters
			(centroid_text, topic_canonical, broad_category,
			 centroid_embedding_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, NOW(), NOW())
		RETURNING id`,
		centroid, r.NormalizedTopic, broadCategory, r.EmbeddingID).Scan(&clusterID)
	return clusterID, err
}

// AddMember assigns a record to a cluster inside one transaction: member
// upsert, record back-pointer, then a full rollup recompute so counts are
// consistent with the membership set at commit.
func (s *Store) AddMember(ctx context.Context, clusterID, recordID int64, similarity float64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO cluster_members (cluster_id, pain_record_id, similarity_score, added_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (cluster_id, pain_record_id) DO NOTHING`,
		clusterID, recordID, similarity)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE pain_records SET cluster_id = $2, cluster_similarity = $3 WHERE id = $1`,
		recordID, clusterID, similarity)
	if err != nil {
		return err
	}

	if err := recomputeRollups(ctx, tx, clusterID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// recomputeRollups rebuilds every derived cluster column from the current
// membership set. social_proof_count always equals member_count.
func recomputeRollups(ctx context.Context, tx pgx.Tx, clusterID int64) error {
	var memberCount, uniqueAuthors, subredditCount, totalUpvotes int
	err := tx.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(DISTINCT r.author),
		       COUNT(DISTINCT r.subreddit),
		       COALESCE(SUM(r.source_score), 0)
		FROM cluster_members m
		JOIN pain_records r ON r.id = m.pain_record_id
		WHERE m.cluster_id = $1`, clusterID).
		Scan(&memberCount, &uniqueAuthors, &subredditCount, &totalUpvotes)
	if err != nil {
		return err
	}

	rows, err := tx.Query(ctx, `
		SELECT DISTINCT r.subreddit
		FROM cluster_members m
		JOIN pain_records r ON r.id = m.pain_record_id
		WHERE m.cluster_id = $1
		ORDER BY r.subreddit`, clusterID)
	if err != nil {
		return err
	}
	subreddits := make([]string, 0)
	for rows.Next() {
		var sub string
		if err := rows.Scan(&sub); err != nil {
			rows.Close()
			return err
		}
		subreddits = append(subreddits, sub)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	// Top quotes: best-scored quote per distinct author, top 5 overall.
	quoteRows, err := tx.Query(ctx, `
		SELECT quote, author, subreddit, score, severity, persona FROM (
			SELECT DISTINCT ON (r.author)
			       r.raw_quote AS quote, r.author, r.subreddit,
			       r.source_score AS score,
			       COALESCE(r.severity, '') AS severity,
			       COALESCE(r.persona, '') AS persona
			FROM cluster_members m
			JOIN pain_records r ON r.id = m.pain_record_id
			WHERE m.cluster_id = $1
			ORDER BY r.author, r.source_score DESC
		) best
		ORDER BY score DESC
		LIMIT 5`, clusterID)
	if err != nil {
		return err
	}
	topQuotes := make([]models.ClusterQuote, 0, 5)
	for quoteRows.Next() {
		var q models.ClusterQuote
		if err := quoteRows.Scan(&q.Quote, &q.Author, &q.Subreddit, &q.Score, &q.Severity, &q.Persona); err != nil {
			quoteRows.Close()
			return err
		}
		topQuotes = append(topQuotes, q)
	}
	quoteRows.Close()
	if err := quoteRows.Err(); err != nil {
		return err
	}

	subsJSON, err := json.Marshal(subreddits)
	if err != nil {
		return err
	}
	quotesJSON, err := json.Marshal(topQuotes)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE pain_clusters
		SET member_count = $2, social_proof_count = $2, unique_authors = $3,
		    subreddit_count = $4, total_upvotes = $5,
		    subreddits_list = $6, top_quotes = $7, updated_at = NOW()
		WHERE id = $1`,
		clusterID, memberCount, uniqueAuthors, subredditCount, totalUpvotes,
		subsJSON, quotesJSON)
	return err
}

// RecomputeClusterRollups recomputes one cluster's rollups in its own
// transaction; used by passes that mutate membership out of band.
func (s *Store) RecomputeClusterRollups(ctx context.Context, clusterID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := recomputeRollups(ctx, tx, clusterID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// MergeClusters reparents every member and pain record of the source
// cluster onto the target, removes the emptied source, and rebuilds the
// target's rollups — all in one transaction.
func (s *Store) MergeClusters(ctx context.Context, fromID, toID int64) error {
	if fromID == toID {
		return fmt.Errorf("cannot merge cluster %d into itself", fromID)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Reparent memberships. A record already present on the target keeps
	// its existing row; the stale source row is removed below with the
	// source cluster (ON DELETE CASCADE).
	_, err = tx.Exec(ctx, `
		UPDATE cluster_members m
		SET cluster_id = $2
		WHERE m.cluster_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM cluster_members t
			WHERE t.cluster_id = $2 AND t.pain_record_id = m.pain_record_id
		  )`, fromID, toID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE pain_records SET cluster_id = $2 WHERE cluster_id = $1`, fromID, toID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `DELETE FROM pain_clusters WHERE id = $1`, fromID)
	if err != nil {
		return err
	}

	if err := recomputeRollups(ctx, tx, toID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ClusterIDByTopic resolves a canonical topic to its cluster, preferring
// the largest when several carry the same topic.
func (s *Store) ClusterIDByTopic(ctx context.Context, topic string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		SELECT id FROM pain_clusters
		WHERE topic_canonical = $1
		ORDER BY social_proof_count DESC, id
		LIMIT 1`, topic).Scan(&id)
	if err != nil {
		return 0, notFoundOr(err)
	}
	return id, nil
}

// CanonicalTopics returns all distinct canonical cluster topics.
func (s *Store) CanonicalTopics(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT topic_canonical FROM pain_clusters
		ORDER BY topic_canonical
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	topics := make([]string, 0)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// SetClusterTopic rewrites a cluster's canonical topic (merge survivor
// adopting the canonical form).
func (s *Store) SetClusterTopic(ctx context.Context, clusterID int64, topic string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE pain_clusters SET topic_canonical = $2, updated_at = NOW() WHERE id = $1`,
		clusterID, topic)
	return err
}

// SingletonClusters returns clusters with exactly one member plus their
// centroid vectors; candidates for absorption into a larger cluster.
func (s *Store) SingletonClusters(ctx context.Context) ([]ClusterCandidate, error) {
	return s.clustersBySize(ctx, `c.member_count = 1`)
}

// EstablishedClusters returns clusters with at least two members plus
// centroid vectors.
func (s *Store) EstablishedClusters(ctx context.Context) ([]ClusterCandidate, error) {
	return s.clustersBySize(ctx, `c.member_count >= 2`)
}

func (s *Store) clustersBySize(ctx context.Context, cond string) ([]ClusterCandidate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.topic_canonical, c.social_proof_count, e.vector
		FROM pain_clusters c
		JOIN embeddings e ON e.id = c.centroid_embedding_id
		WHERE `+cond+`
		ORDER BY c.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := make([]ClusterCandidate, 0)
	for rows.Next() {
		var cand ClusterCandidate
		var raw []byte
		if err := rows.Scan(&cand.ID, &cand.TopicCanonical, &cand.SocialProofCount, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &cand.Centroid); err != nil {
			continue
		}
		candidates = append(candidates, cand)
	}
	return candidates, rows.Err()
}

// SynthCandidate carries the snapshot the synthesis gate saw, so the
// update can compare-and-write against it.
type SynthCandidate struct {
	ID             int64
	TopicCanonical string
	BroadCategory  string
	ProductName    string
	Tagline        string
	Version        int
	MemberCount    int
	LastSynthCount int
}

// SynthCandidates selects clusters due for (re-)synthesis: at or above the
// member floor and either never synthesized or grown by at least
// growthFrac since the last synthesis.
func (s *Store) SynthCandidates(ctx context.Context, floor int, growthFrac float64, limit int) ([]SynthCandidate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, topic_canonical, broad_category,
		       COALESCE(product_name, ''), COALESCE(tagline, ''),
		       version, member_count, last_synth_count
		FROM pain_clusters
		WHERE member_count >= $1
		  AND (synthesized_at IS NULL
		       OR (member_count - last_synth_count)::float / GREATEST(last_synth_count, 1) >= $2)
		ORDER BY member_count DESC
		LIMIT $3`, floor, growthFrac, limit)
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

// MemberAnnotation is one member quote with its tagger annotations, fed
// into the synthesis prompt.
type MemberAnnotation struct {
	Quote     string
	Persona   string
	Severity  string
	Subreddit string
}

// ClusterMemberAnnotations returns up to limit member quotes with
// persona/severity annotations, best-scored first.
func (s *Store) ClusterMemberAnnotations(ctx context.Context, clusterID int64, limit int) ([]MemberAnnotation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.raw_quote, COALESCE(r.persona, ''), COALESCE(r.severity, ''), r.subreddit
		FROM cluster_members m
		JOIN pain_records r ON r.id = m.pain_record_id
		WHERE m.cluster_id = $1
		ORDER BY r.source_score DESC
		LIMIT $2`, clusterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]MemberAnnotation, 0)
	for rows.Next() {
		var m MemberAnnotation
		if err := rows.Scan(&m.Quote, &m.Persona, &m.Severity, &m.Subreddit); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ApplySynthesis writes a product concept. The WHERE clause
// compare-and-writes on last_synth_count: if another run synthesized this
// cluster since the gate read, the update is a no-op and false is
// returned. version moves by exactly 1.
func (s *Store) ApplySynthesis(ctx context.Context, c SynthCandidate, name, tagline string, howItWorks []string, targetCustomer string) (bool, error) {
	howJSON, err := json.Marshal(howItWorks)
	if err != nil {
		return false, err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE pain_clusters
		SET product_name = $2, tagline = $3, how_it_works = $4,
		    target_customer = $5, last_synth_count = $6,
		    version = version + 1, synthesized_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND last_synth_count = $7`,
		c.ID, name, tagline, howJSON, targetCustomer, c.MemberCount, c.LastSynthCount)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ScoreInput is everything the deterministic scorer needs for one cluster.
type ScoreInput struct {
	ID             int64
	MemberCount    int
	UniqueAuthors  int
	SubredditCount int
	TotalUpvotes   int
	SeverityCounts map[string]int
}

// ScoreCandidates returns clusters whose rollups changed since they were
// last scored, with their member severity histograms.
func (s *Store) ScoreCandidates(ctx context.Context, limit int) ([]ScoreInput, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, member_count, unique_authors, subreddit_count, total_upvotes
		FROM pain_clusters
		WHERE member_count > 0 AND (scored_at IS NULL OR updated_at > scored_at)
		ORDER BY id
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	inputs := make([]ScoreInput, 0)
	for rows.Next() {
		var in ScoreInput
		if err := rows.Scan(&in.ID, &in.MemberCount, &in.UniqueAuthors,
			&in.SubredditCount, &in.TotalUpvotes); err != nil {
			rows.Close()
			return nil, err
		}
		inputs = append(inputs, in)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range inputs {
		counts, err := s.clusterSeverityCounts(ctx, inputs[i].ID)
		if err != nil {
			return nil, err
		}
		inputs[i].SeverityCounts = counts
	}
	return inputs, nil
}

func (s *Store) clusterSeverityCounts(ctx context.Context, clusterID int64) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT COALESCE(r.severity, ''), COUNT(*)
		FROM cluster_members m
		JOIN pain_records r ON r.id = m.pain_record_id
		WHERE m.cluster_id = $1
		GROUP BY 1`, clusterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var severity string
		var n int
		if err := rows.Scan(&severity, &n); err != nil {
			return nil, err
		}
		counts[severity] = n
	}
	return counts, rows.Err()
}

// ApplyScore persists the deterministic opportunity score.
func (s *Store) ApplyScore(ctx context.Context, clusterID int64, score int, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE pain_clusters SET total_score = $2, scored_at = $3 WHERE id = $1`,
		clusterID, score, at)
	return err
}

// ClusterCount returns the number of clusters for /api/stats.
func (s *Store) ClusterCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM pain_clusters`).Scan(&n)
	return n, err
}

// ClusterAssignments returns, for the most recently assigned members,
// the cluster label and the record's normalized topic as two parallel
// slices. Feeds the partition-agreement metrics.
func (s *Store) ClusterAssignments(ctx context.Context, limit int) (clusters, topics []string, err error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.cluster_id::text, r.normalized_topic
		FROM cluster_members m
		JOIN pain_records r ON r.id = m.pain_record_id
		WHERE COALESCE(r.normalized_topic, '') <> ''
		ORDER BY m.pain_record_id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var cluster, topic string
		if err := rows.Scan(&cluster, &topic); err != nil {
			return nil, nil, err
		}
		clusters = append(clusters, cluster)
		topics = append(topics, topic)
	}
	return clusters, topics, rows.Err()
}
