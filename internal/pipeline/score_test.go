package pipeline

import (
	"testing"

	"github.com/painscope/opportunity-engine/internal/db"
)

func TestOpportunityScoreEmptyCluster(t *testing.T) {
	if got := OpportunityScore(db.ScoreInput{}); got != 0 {
		t.Errorf("empty cluster should score 0, got %d", got)
	}
}

func TestOpportunityScoreTypicalCluster(t *testing.T) {
	in := db.ScoreInput{
		MemberCount:    8,
		UniqueAuthors:  6,
		SubredditCount: 4,
		TotalUpvotes:   80,
		SeverityCounts: map[string]int{"high": 3, "medium": 5},
	}
	// social log2(9)*10 ≈ 31.70, authors capped 15, communities 8,
	// engagement log2(11)*2 ≈ 6.92, severity 3*3+5*2 = 19
	if got := OpportunityScore(in); got != 81 {
		t.Errorf("expected score 81, got %d", got)
	}
}

func TestOpportunityScoreAllCapsReachable(t *testing.T) {
	in := db.ScoreInput{
		MemberCount:    1000,
		UniqueAuthors:  1000,
		SubredditCount: 20,
		TotalUpvotes:   1000000,
		SeverityCounts: map[string]int{"critical": 1000},
	}
	if got := OpportunityScore(in); got != 100 {
		t.Errorf("fully capped cluster should score 100, got %d", got)
	}
}

func TestOpportunityScoreSingleMember(t *testing.T) {
	in := db.ScoreInput{
		MemberCount:    1,
		UniqueAuthors:  1,
		SubredditCount: 1,
		TotalUpvotes:   0,
		SeverityCounts: map[string]int{"low": 1},
	}
	// social 10, authors capped 15, communities 2, no engagement, severity 1
	if got := OpportunityScore(in); got != 28 {
		t.Errorf("expected score 28 for a singleton, got %d", got)
	}
}

func TestOpportunityScoreSeverityCap(t *testing.T) {
	base := db.ScoreInput{
		MemberCount:    10,
		UniqueAuthors:  1,
		SubredditCount: 1,
		SeverityCounts: map[string]int{"critical": 7}, // 28 raw, capped at 25
	}
	capped := base
	capped.SeverityCounts = map[string]int{"critical": 10} // 40 raw, same cap
	if OpportunityScore(base) != OpportunityScore(capped) {
		t.Errorf("severity above the cap should not change the score")
	}
}
