package pipeline

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/painscope/opportunity-engine/internal/db"
	"github.com/painscope/opportunity-engine/pkg/models"
)

const scoreBatch = 200

// RunScorer recomputes the deterministic opportunity score for every
// cluster whose rollups changed since the last scoring.
func (p *Pipeline) RunScorer(ctx context.Context) (int, error) {
	inputs, err := p.store.ScoreCandidates(ctx, scoreBatch)
	if err != nil {
		return 0, fmt.Errorf("select score candidates: %w", err)
	}

	now := time.Now()
	for _, in := range inputs {
		if err := p.store.ApplyScore(ctx, in.ID, OpportunityScore(in), now); err != nil {
			return 0, fmt.Errorf("apply score to cluster %d: %w", in.ID, err)
		}
	}
	if len(inputs) > 0 {
		log.Printf("[Scorer] %d clusters rescored", len(inputs))
	}
	return len(inputs), nil
}

// OpportunityScore computes the 0-100 opportunity score:
//
//	social proof   min(40, log2(n+1) * 10)
//	author spread  min(15, unique/n * 20)
//	community mix  min(10, subreddits * 2)
//	engagement     min(10, log2(avgUpvotes+1) * 2)
//	severity       sum of member weights, capped at 25
func OpportunityScore(in db.ScoreInput) int {
	n := in.MemberCount
	if n == 0 {
		return 0
	}

	score := math.Min(40, math.Log2(float64(n)+1)*10)
	score += math.Min(15, float64(in.UniqueAuthors)/float64(n)*20)
	score += math.Min(10, float64(in.SubredditCount)*2)

	avgUpvotes := float64(in.TotalUpvotes) / float64(n)
	if avgUpvotes > 0 {
		score += math.Min(10, math.Log2(avgUpvotes+1)*2)
	}

	severity := 0
	for label, count := range in.SeverityCounts {
		severity += models.SeverityWeight(label) * count
	}
	if severity > 25 {
		severity = 25
	}
	score += float64(severity)

	return int(math.Round(score))
}
