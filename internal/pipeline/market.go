package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/painscope/opportunity-engine/internal/llm"
	"github.com/painscope/opportunity-engine/pkg/models"
)

const marketBatch = 5

// RunMarketEstimator sizes the market for synthesized clusters that have
// no estimate yet. Runs on alternating ticks to cap LLM spend.
func (p *Pipeline) RunMarketEstimator(ctx context.Context) (int, error) {
	candidates, err := p.store.MarketCandidates(ctx, marketBatch)
	if err != nil {
		return 0, fmt.Errorf("select market candidates: %w", err)
	}

	estimated := 0
	for _, cand := range candidates {
		prompt := llm.MarketSizingPrompt(cand.ProductName, cand.Tagline,
			"", cand.TopicCanonical, cand.MemberCount)
		raw, err := p.llm.Complete(ctx, prompt, true)
		if err != nil {
			log.Printf("[Market] cluster %d call failed: %v", cand.ID, err)
			continue
		}
		sizing, err := llm.ParseMarketSizing(raw)
		if err != nil {
			log.Printf("[Market] cluster %d output unparseable: %v", cand.ID, err)
			continue
		}

		err = p.store.UpsertMarketEstimate(ctx, models.MarketEstimate{
			ClusterID:    cand.ID,
			TAMUSD:       sizing.TAMUSD,
			SAMUSD:       sizing.SAMUSD,
			SOMUSD:       sizing.SOMUSD,
			Confidence:   sizing.Confidence,
			Method:       sizing.Method,
			Competitors:  sizing.Competitors,
			PricingModel: sizing.PricingModel,
			Reasoning:    sizing.Reasoning,
		})
		if err != nil {
			return estimated, fmt.Errorf("upsert estimate for cluster %d: %w", cand.ID, err)
		}
		estimated++
	}

	if estimated > 0 {
		log.Printf("[Market] %d clusters sized", estimated)
	}
	return estimated, nil
}
