package db

import (
	"context"
	"encoding/json"
	"math"

	"github.com/painscope/opportunity-engine/pkg/models"
)

// CreatePainRecord materializes a pain record for an accepted quote.
// Keyed by (source_type, source_id); re-runs converge to a single row.
// Returns true when a row was actually inserted.
func (s *Store) CreatePainRecord(ctx context.Context, r models.PainRecord) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO pain_records
			(source_type, source_id, subreddit, raw_quote, author,
			 source_score, source_url, extracted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (source_type, source_id) DO NOTHING`,
		r.SourceType, r.SourceID, r.Subreddit, r.RawQuote, r.Author,
		r.SourceScore, r.SourceURL)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// UntaggedRecords returns pain records awaiting the quality tagger.
func (s *Store) UntaggedRecords(ctx context.Context, limit int) ([]models.PainRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source_type, source_id, subreddit, raw_quote, author,
		       source_score, source_url
		FROM pain_records
		WHERE tagged_at IS NULL
		ORDER BY id
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPainRecords(rows)
}

// ApplyTags persists the tagger output for one record. Topics and the
// normalized topic land together with tagged_at so a tagged record is
// never observed half-written.
func (s *Store) ApplyTags(ctx context.Context, recordID int64, topics []string, persona, severity, normalizedTopic string) error {
	topicsJSON, err := json.Marshal(topics)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE pain_records
		SET topics = $2, persona = $3, severity = $4,
		    normalized_topic = $5, tagged_at = NOW()
		WHERE id = $1`,
		recordID, topicsJSON, persona, severity, normalizedTopic)
	return err
}

// RecordsNeedingEmbedding returns tagged records without a stored vector.
func (s *Store) RecordsNeedingEmbedding(ctx context.Context, limit int) ([]models.PainRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source_type, source_id, subreddit, raw_quote, author,
		       source_score, source_url
		FROM pain_records
		WHERE tagged_at IS NOT NULL AND embedding_id IS NULL
		ORDER BY id
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPainRecords(rows)
}

// SaveEmbedding persists a vector (rounded to 4 decimal places) and links
// it to its pain record.
func (s *Store) SaveEmbedding(ctx context.Context, painRecordID int64, vector []float32) (int64, error) {
	rounded := make([]float32, len(vector))
	for i, v := range vector {
		rounded[i] = float32(math.Round(float64(v)*10000) / 10000)
	}
	vecJSON, err := json.Marshal(rounded)
	if err != nil {
		return 0, err
	}

	var embeddingID int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO embeddings (pain_record_id, vector, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (pain_record_id) DO UPDATE SET vector = EXCLUDED.vector
		RETURNING id`,
		painRecordID, vecJSON).Scan(&embeddingID)
	if err != nil {
		return 0, err
	}

	_, err = s.pool.Exec(ctx,
		`UPDATE pain_records SET embedding_id = $2 WHERE id = $1`,
		painRecordID, embeddingID)
	return embeddingID, err
}

// GetEmbeddingVector loads one stored vector by embedding id.
func (s *Store) GetEmbeddingVector(ctx context.Context, embeddingID int64) ([]float32, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT vector FROM embeddings WHERE id = $1`, embeddingID).Scan(&raw)
	if err != nil {
		return nil, notFoundOr(err)
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// UnclusteredRecords returns records ready for clustering: tagged,
// embedded, not yet assigned.
func (s *Store) UnclusteredRecords(ctx context.Context, limit int) ([]models.PainRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source_type, source_id, subreddit, raw_quote, author,
		       source_score, source_url, embedding_id, normalized_topic,
		       COALESCE(persona, ''), COALESCE(severity, '')
		FROM pain_records
		WHERE cluster_id IS NULL
		  AND embedding_id IS NOT NULL
		  AND normalized_topic IS NOT NULL
		ORDER BY id
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]models.PainRecord, 0)
	for rows.Next() {
		var r models.PainRecord
		if err := rows.Scan(&r.ID, &r.SourceType, &r.SourceID, &r.Subreddit,
			&r.RawQuote, &r.Author, &r.SourceScore, &r.SourceURL,
			&r.EmbeddingID, &r.NormalizedTopic, &r.Persona, &r.Severity); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// RecordsNeedingGeo returns records without a resolved region.
func (s *Store) RecordsNeedingGeo(ctx context.Context, limit int) ([]models.PainRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source_type, source_id, subreddit, raw_quote, author,
		       source_score, source_url
		FROM pain_records
		WHERE geo_region IS NULL
		ORDER BY id
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPainRecords(rows)
}

// ApplyGeo persists the region detection result for one record.
func (s *Store) ApplyGeo(ctx context.Context, recordID int64, region string, confidence float64, signals []string) error {
	signalsJSON, err := json.Marshal(signals)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE pain_records
		SET geo_region = $2, geo_confidence = $3, geo_signals = $4
		WHERE id = $1`,
		recordID, region, confidence, signalsJSON)
	return err
}

// ListPainRecords returns the newest pain records for the read API.
func (s *Store) ListPainRecords(ctx context.Context, limit int) ([]models.PainRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source_type, source_id, subreddit, raw_quote, author,
		       source_score, source_url, extracted_at,
		       COALESCE(topics, '[]'::jsonb), COALESCE(persona, ''),
		       COALESCE(severity, ''), COALESCE(normalized_topic, ''),
		       cluster_id, COALESCE(geo_region, '')
		FROM pain_records
		ORDER BY id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]models.PainRecord, 0)
	for rows.Next() {
		var r models.PainRecord
		var topicsRaw []byte
		if err := rows.Scan(&r.ID, &r.SourceType, &r.SourceID, &r.Subreddit,
			&r.RawQuote, &r.Author, &r.SourceScore, &r.SourceURL, &r.ExtractedAt,
			&topicsRaw, &r.Persona, &r.Severity, &r.NormalizedTopic,
			&r.ClusterID, &r.GeoRegion); err != nil {
			return nil, err
		}
		// JSON columns are untrusted on read; a bad shape degrades to empty.
		_ = json.Unmarshal(topicsRaw, &r.Topics)
		records = append(records, r)
	}
	return records, rows.Err()
}

// PainRecordCounts returns totals for /api/stats.
func (s *Store) PainRecordCounts(ctx context.Context) (total, tagged, clustered int64, err error) {
	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE tagged_at IS NOT NULL),
		       COUNT(*) FILTER (WHERE cluster_id IS NOT NULL)
		FROM pain_records`).Scan(&total, &tagged, &clustered)
	return total, tagged, clustered, err
}

// RenameTopic rewrites normalized_topic for every record carrying the old
// form; used when applying topic merges.
func (s *Store) RenameTopic(ctx context.Context, from, to string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE pain_records SET normalized_topic = $2 WHERE normalized_topic = $1`,
		from, to)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type scannable interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanPainRecords(rows scannable) ([]models.PainRecord, error) {
	records := make([]models.PainRecord, 0)
	for rows.Next() {
		var r models.PainRecord
		if err := rows.Scan(&r.ID, &r.SourceType, &r.SourceID, &r.Subreddit,
			&r.RawQuote, &r.Author, &r.SourceScore, &r.SourceURL); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
