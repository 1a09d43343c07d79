package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/painscope/opportunity-engine/internal/db"
)

const clusterBatch = 500

// ClusterResult summarizes one clustering pass.
type ClusterResult struct {
	Assigned    int `json:"assigned"`
	NewClusters int `json:"new_clusters"`
}

// RunClusterer assigns each tagged, embedded, unassigned record to its
// nearest cluster by cosine against the cluster's centroid embedding, or
// opens a new cluster seeded by the record itself. Centroids are never
// recomputed: the founding member defines the cluster for its lifetime,
// which keeps assignment order-insensitive for already-assigned members.
func (p *Pipeline) RunClusterer(ctx context.Context) (ClusterResult, error) {
	records, err := p.store.UnclusteredRecords(ctx, clusterBatch)
	if err != nil {
		return ClusterResult{}, fmt.Errorf("select unclustered records: %w", err)
	}
	if len(records) == 0 {
		return ClusterResult{}, nil
	}

	candidates, err := p.store.ClusterCandidates(ctx)
	if err != nil {
		return ClusterResult{}, fmt.Errorf("load cluster candidates: %w", err)
	}

	var result ClusterResult
	for _, record := range records {
		vector, err := p.store.GetEmbeddingVector(ctx, *record.EmbeddingID)
		if err != nil {
			log.Printf("[Clusterer] missing vector for record %d: %v", record.ID, err)
			continue
		}

		best, bestScore := bestCluster(candidates, vector)
		if best != nil && bestScore >= p.cfg.ClusterThreshold {
			if err := p.store.AddMember(ctx, best.ID, record.ID, bestScore); err != nil {
				return result, fmt.Errorf("add record %d to cluster %d: %w", record.ID, best.ID, err)
			}
			best.SocialProofCount++
			result.Assigned++
			continue
		}

		clusterID, err := p.store.CreateCluster(ctx, record, CategoryOf(record.NormalizedTopic))
		if err != nil {
			return result, fmt.Errorf("create cluster for record %d: %w", record.ID, err)
		}
		if err := p.store.AddMember(ctx, clusterID, record.ID, 1.0); err != nil {
			return result, fmt.Errorf("seed cluster %d: %w", clusterID, err)
		}
		candidates = append(candidates, db.ClusterCandidate{
			ID:               clusterID,
			TopicCanonical:   record.NormalizedTopic,
			SocialProofCount: 1,
			Centroid:         vector,
		})
		result.Assigned++
		result.NewClusters++
	}

	log.Printf("[Clusterer] %d assigned, %d new clusters", result.Assigned, result.NewClusters)
	return result, nil
}

// bestCluster returns the candidate with the highest cosine score. Ties
// prefer the cluster with more social proof, then the smaller id.
func bestCluster(candidates []db.ClusterCandidate, vector []float32) (*db.ClusterCandidate, float64) {
	var best *db.ClusterCandidate
	bestScore := -2.0
	for i := range candidates {
		score := CosineSimilarity(vector, candidates[i].Centroid)
		switch {
		case score > bestScore:
			best = &candidates[i]
			bestScore = score
		case score == bestScore && best != nil:
			if candidates[i].SocialProofCount > best.SocialProofCount ||
				(candidates[i].SocialProofCount == best.SocialProofCount && candidates[i].ID < best.ID) {
				best = &candidates[i]
			}
		}
	}
	return best, bestScore
}

// categoryKeywords maps broad product categories to topic keywords, first
// match wins.
var categoryKeywords = []struct {
	category string
	words    []string
}{
	{"finance", []string{"invoice", "payment", "payout", "tax", "account", "bank", "payroll", "expense", "pricing"}},
	{"sales_marketing", []string{"lead", "marketing", "seo", "outreach", "ads", "social media", "email", "customer acquisition"}},
	{"operations", []string{"schedul", "booking", "inventory", "shipping", "logistics", "staff", "roster", "onboard"}},
	{"software_tools", []string{"api", "integration", "software", "app", "tool", "automation", "export", "sync", "migration"}},
	{"communication", []string{"client", "customer", "communication", "support", "response", "review", "feedback"}},
	{"compliance", []string{"legal", "compliance", "contract", "insurance", "regulation", "permit", "license"}},
}

// CategoryOf buckets a normalized topic into a broad category by keyword.
func CategoryOf(normalizedTopic string) string {
	topic := strings.ToLower(normalizedTopic)
	for _, c := range categoryKeywords {
		for _, w := range c.words {
			if strings.Contains(topic, w) {
				return c.category
			}
		}
	}
	return "general"
}
