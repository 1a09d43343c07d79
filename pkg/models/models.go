package models

import "time"

// Core data model for the opportunity mining engine. Every row type here
// maps 1:1 onto a table in internal/db/schema.sql. All cross-phase
// communication happens through these rows; the pipeline phases never
// share in-memory state.

// RawPost is a harvested submission, immutable after fetch except for the
// comments-fetched watermark.
type RawPost struct {
	ID                string     `json:"id"`
	Subreddit         string     `json:"subreddit"`
	Title             string     `json:"title"`
	Body              string     `json:"body"`
	Author            string     `json:"author"`
	CreatedUTC        int64      `json:"created_utc"`
	Score             int        `json:"score"`
	NumComments       int        `json:"num_comments"`
	URL               string     `json:"url"`
	Permalink         string     `json:"permalink"`
	SortType          string     `json:"sort_type"`
	FetchedAt         time.Time  `json:"fetched_at"`
	CommentsFetched   int        `json:"comments_fetched"`
	CommentsFetchedAt *time.Time `json:"comments_fetched_at,omitempty"`
}

// RawComment is a harvested comment. HN comments carry synthesized ids
// ("hn_<objectID>") and subreddit "hackernews".
type RawComment struct {
	ID          string     `json:"id"`
	PostID      string     `json:"post_id"`
	ParentID    string     `json:"parent_id"`
	Body        string     `json:"body"`
	Author      string     `json:"author"`
	CreatedUTC  int64      `json:"created_utc"`
	Score       int        `json:"score"`
	PostScore   int        `json:"post_score"`
	PostTitle   string     `json:"post_title"`
	Subreddit   string     `json:"subreddit"`
	FetchedAt   time.Time  `json:"fetched_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	IsPainPoint *bool      `json:"is_pain_point,omitempty"`
}

// Source types for pain records.
const (
	SourcePost      = "post"
	SourceComment   = "comment"
	SourceHNComment = "hn_comment"
)

// Severity levels, ordered. Anything else coming back from the tagger is
// coerced to SeverityMedium.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// SeverityWeight maps a severity label to its numeric weight (1..4).
func SeverityWeight(severity string) int {
	switch severity {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 2
}

// PainRecord is one accepted quote: a comment or post the binary filter
// judged to express a personal problem.
type PainRecord struct {
	ID                int64      `json:"id"`
	SourceType        string     `json:"source_type"`
	SourceID          string     `json:"source_id"`
	Subreddit         string     `json:"subreddit"`
	RawQuote          string     `json:"raw_quote"`
	Author            string     `json:"author"`
	SourceScore       int        `json:"source_score"`
	SourceURL         string     `json:"source_url"`
	ExtractedAt       time.Time  `json:"extracted_at"`
	Topics            []string   `json:"topics,omitempty"`
	Persona           string     `json:"persona,omitempty"`
	Severity          string     `json:"severity,omitempty"`
	TaggedAt          *time.Time `json:"tagged_at,omitempty"`
	EmbeddingID       *int64     `json:"embedding_id,omitempty"`
	NormalizedTopic   string     `json:"normalized_topic,omitempty"`
	ClusterID         *int64     `json:"cluster_id,omitempty"`
	ClusterSimilarity *float64   `json:"cluster_similarity,omitempty"`
	GeoRegion         string     `json:"geo_region,omitempty"`
	GeoConfidence     *float64   `json:"geo_confidence,omitempty"`
	GeoSignals        []string   `json:"geo_signals,omitempty"`
}

// Embedding is a persisted 1536-dim vector for one pain record. Stored as
// a JSON array rounded to 4 decimal places.
type Embedding struct {
	ID           int64     `json:"id"`
	PainRecordID int64     `json:"pain_record_id"`
	Vector       []float32 `json:"vector"`
	CreatedAt    time.Time `json:"created_at"`
}

// ClusterQuote is one of a cluster's showcased quotes (top_quotes JSON).
type ClusterQuote struct {
	Quote     string `json:"quote"`
	Author    string `json:"author"`
	Subreddit string `json:"subreddit"`
	Score     int    `json:"score"`
	Severity  string `json:"severity,omitempty"`
	Persona   string `json:"persona,omitempty"`
}

// PainCluster groups pain records whose embeddings pass the similarity
// threshold against a common centroid. The centroid text and embedding are
// those of the founding member and are never recomputed on add.
type PainCluster struct {
	ID                 int64          `json:"id"`
	CentroidText       string         `json:"centroid_text"`
	TopicCanonical     string         `json:"topic_canonical"`
	BroadCategory      string         `json:"broad_category"`
	CentroidEmbeddingID *int64        `json:"centroid_embedding_id,omitempty"`
	ProductName        string         `json:"product_name,omitempty"`
	Tagline            string         `json:"tagline,omitempty"`
	HowItWorks         []string       `json:"how_it_works,omitempty"`
	TargetCustomer     string         `json:"target_customer,omitempty"`
	SocialProofCount   int            `json:"social_proof_count"`
	LastSynthCount     int            `json:"last_synth_count"`
	Version            int            `json:"version"`
	MemberCount        int            `json:"member_count"`
	UniqueAuthors      int            `json:"unique_authors"`
	SubredditCount     int            `json:"subreddit_count"`
	TotalUpvotes       int            `json:"total_upvotes"`
	TotalScore         int            `json:"total_score"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	SynthesizedAt      *time.Time     `json:"synthesized_at,omitempty"`
	ScoredAt           *time.Time     `json:"scored_at,omitempty"`
	TopQuotes          []ClusterQuote `json:"top_quotes,omitempty"`
	SubredditsList     []string       `json:"subreddits_list,omitempty"`
	Categories         []string       `json:"categories,omitempty"`
}

// ClusterMember links a pain record to its cluster.
type ClusterMember struct {
	ClusterID       int64     `json:"cluster_id"`
	PainRecordID    int64     `json:"pain_record_id"`
	SimilarityScore float64   `json:"similarity_score"`
	AddedAt         time.Time `json:"added_at"`
}

// Trend statuses derived from velocity and spike detection.
const (
	TrendHot     = "hot"
	TrendRising  = "rising"
	TrendStable  = "stable"
	TrendCooling = "cooling"
	TrendCold    = "cold"
)

// PainTrend is one per-topic daily snapshot. Unique on
// (topic_canonical, snapshot_date, bucket_type).
type PainTrend struct {
	TopicCanonical  string    `json:"topic_canonical"`
	SnapshotDate    string    `json:"snapshot_date"` // YYYY-MM-DD
	BucketType      string    `json:"bucket_type"`
	ClusterID       *int64    `json:"cluster_id,omitempty"`
	MentionCount    int       `json:"mention_count"`
	NewMentions     int       `json:"new_mentions"`
	Velocity        *float64  `json:"velocity,omitempty"`
	Velocity7d      *float64  `json:"velocity_7d,omitempty"`
	Velocity30d     *float64  `json:"velocity_30d,omitempty"`
	TrendStatus     string    `json:"trend_status"`
	IsSpike         bool      `json:"is_spike"`
	AvgSeverity     float64   `json:"avg_severity"`
	SubredditSpread int       `json:"subreddit_spread"`
	CreatedAt       time.Time `json:"created_at"`
}

// TrendSummary is the per-topic rollup, overwritten on every snapshot run.
type TrendSummary struct {
	TopicCanonical  string    `json:"topic_canonical"`
	CurrentCount    int       `json:"current_count"`
	CurrentVelocity *float64  `json:"current_velocity,omitempty"`
	TrendStatus     string    `json:"trend_status"`
	PeakCount       int       `json:"peak_count"`
	PeakDate        string    `json:"peak_date"`
	FirstSeen       string    `json:"first_seen"`
	LastUpdated     time.Time `json:"last_updated"`
	Sparkline       []int     `json:"sparkline"`
}

// CompetitorMention is one mined complaint about a named competitor
// product. Deduplicated by source URL.
type CompetitorMention struct {
	ID          int64     `json:"id"`
	Product     string    `json:"product"`
	Vertical    string    `json:"vertical"`
	Subreddit   string    `json:"subreddit"`
	Quote       string    `json:"quote"`
	Author      string    `json:"author"`
	Sentiment   string    `json:"sentiment"`
	FeatureGap  string    `json:"feature_gap,omitempty"`
	SourceURL   string    `json:"source_url"`
	SourceScore int       `json:"source_score"`
	MinedAt     time.Time `json:"mined_at"`
}

// MarketEstimate is a per-cluster market sizing enrichment.
type MarketEstimate struct {
	ID           int64     `json:"id"`
	ClusterID    int64     `json:"cluster_id"`
	TAMUSD       int64     `json:"tam_usd"`
	SAMUSD       int64     `json:"sam_usd"`
	SOMUSD       int64     `json:"som_usd"`
	Confidence   string    `json:"confidence"`
	Method       string    `json:"method"`
	Competitors  []string  `json:"competitors,omitempty"`
	PricingModel string    `json:"pricing_model,omitempty"`
	Reasoning    string    `json:"reasoning,omitempty"`
	EstimatedAt  time.Time `json:"estimated_at"`
}

// MvpFeature is one extracted buildable feature for a cluster's concept.
type MvpFeature struct {
	ID          int64     `json:"id"`
	ClusterID   int64     `json:"cluster_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	FeatureType string    `json:"feature_type"` // core / differentiator / delighter
	Effort      string    `json:"effort"`       // small / medium / large
	Priority    int       `json:"priority"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// OutreachContact is a candidate early-adopter sourced from a cluster's
// own members: people who publicly described the pain.
type OutreachContact struct {
	ID           int64     `json:"id"`
	ClusterID    int64     `json:"cluster_id"`
	Username     string    `json:"username"`
	Platform     string    `json:"platform"`
	Subreddit    string    `json:"subreddit"`
	Quote        string    `json:"quote"`
	SourceURL    string    `json:"source_url"`
	PainSeverity string    `json:"pain_severity"`
	Status       string    `json:"status"` // pending / contacted / replied / converted / declined
	AddedAt      time.Time `json:"added_at"`
}

// LandingPage holds generated landing copy for a synthesized concept.
type LandingPage struct {
	ID          int64     `json:"id"`
	ClusterID   int64     `json:"cluster_id"`
	Headline    string    `json:"headline"`
	Subheadline string    `json:"subheadline"`
	Bullets     []string  `json:"bullets,omitempty"`
	CTAText     string    `json:"cta_text"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Alert types emitted by the alert generator.
const (
	AlertNewOpportunity = "new_opportunity"
	AlertTrendSpike     = "trend_spike"
	AlertClusterGrowth  = "cluster_growth"
	AlertCompetitorGap  = "competitor_gap"
)

// Alert is a persisted notification row, also broadcast over the
// websocket hub when created.
type Alert struct {
	ID        int64     `json:"id"`
	AlertType string    `json:"alert_type"`
	Severity  string    `json:"severity"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	ClusterID *int64    `json:"cluster_id,omitempty"`
	Topic     string    `json:"topic,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// GeoStats is the per-region aggregate refreshed by the geo tagger.
type GeoStats struct {
	Region        string    `json:"region"`
	RecordCount   int       `json:"record_count"`
	ClusterCount  int       `json:"cluster_count"`
	TopTopics     []string  `json:"top_topics,omitempty"`
	AvgConfidence float64   `json:"avg_confidence"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Identity is the decoded proxy-injected identity. Signature verification
// is delegated upstream; the engine only consumes (email, exp).
type Identity struct {
	Email     string `json:"email"`
	ExpiresAt int64  `json:"exp"`
}

// Opportunity is the read-API projection of a cluster joined with its
// optional market estimate.
type Opportunity struct {
	PainCluster
	MarketTAM *int64 `json:"market_tam,omitempty"`
}
