package pipeline

import (
	"testing"

	"github.com/painscope/opportunity-engine/internal/db"
)

func TestBestClusterPicksHighestCosine(t *testing.T) {
	candidates := []db.ClusterCandidate{
		{ID: 1, Centroid: []float32{1, 0, 0}},
		{ID: 2, Centroid: []float32{0, 1, 0}},
	}
	best, score := bestCluster(candidates, []float32{0.1, 0.99, 0})
	if best == nil || best.ID != 2 {
		t.Fatalf("expected cluster 2, got %+v", best)
	}
	if score < 0.9 {
		t.Errorf("expected a high score, got %f", score)
	}
}

func TestBestClusterTieBreaksOnSocialProof(t *testing.T) {
	centroid := []float32{1, 0, 0}
	candidates := []db.ClusterCandidate{
		{ID: 1, SocialProofCount: 3, Centroid: centroid},
		{ID: 2, SocialProofCount: 5, Centroid: centroid},
	}
	best, _ := bestCluster(candidates, []float32{1, 0, 0})
	if best == nil || best.ID != 2 {
		t.Errorf("expected the cluster with more social proof, got %+v", best)
	}
}

func TestBestClusterTieBreaksOnSmallerID(t *testing.T) {
	centroid := []float32{1, 0, 0}
	candidates := []db.ClusterCandidate{
		{ID: 7, SocialProofCount: 4, Centroid: centroid},
		{ID: 3, SocialProofCount: 4, Centroid: centroid},
	}
	best, _ := bestCluster(candidates, []float32{1, 0, 0})
	if best == nil || best.ID != 3 {
		t.Errorf("expected the smaller cluster id on a full tie, got %+v", best)
	}
}

func TestBestClusterEmptyCandidates(t *testing.T) {
	best, _ := bestCluster(nil, []float32{1, 0, 0})
	if best != nil {
		t.Errorf("expected nil with no candidates, got %+v", best)
	}
}

func TestCategoryOf(t *testing.T) {
	cases := []struct {
		topic string
		want  string
	}{
		{"invoice delay", "finance"},
		{"scheduling conflict", "operations"},
		{"api sync failure", "software_tools"},
		{"lead generation", "sales_marketing"},
		{"contract dispute", "compliance"},
		{"customer support burnout", "communication"},
		{"something unrecognizable", "general"},
	}
	for _, c := range cases {
		if got := CategoryOf(c.topic); got != c.want {
			t.Errorf("CategoryOf(%q) = %q, want %q", c.topic, got, c.want)
		}
	}
}
