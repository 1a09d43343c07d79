package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/painscope/opportunity-engine/internal/db"
	"github.com/painscope/opportunity-engine/internal/llm"
	"github.com/painscope/opportunity-engine/pkg/models"
)

const featureBatch = 5

// FeatureResult summarizes one feature-extraction pass.
type FeatureResult struct {
	Clusters int `json:"clusters"`
	Features int `json:"features"`
	Landings int `json:"landing_pages"`
}

// RunFeatureExtractor derives a prioritized feature list, and landing
// copy, for synthesized clusters that have neither. Runs on alternating
// ticks, offset from the market estimator.
func (p *Pipeline) RunFeatureExtractor(ctx context.Context) (FeatureResult, error) {
	candidates, err := p.store.FeatureCandidates(ctx, featureBatch)
	if err != nil {
		return FeatureResult{}, fmt.Errorf("select feature candidates: %w", err)
	}

	var result FeatureResult
	for _, cand := range candidates {
		n, err := p.extractClusterFeatures(ctx, cand)
		if err != nil {
			if isStorageErr(err) {
				return result, err
			}
			log.Printf("[Features] cluster %d failed: %v", cand.ID, err)
			continue
		}
		if n > 0 {
			result.Clusters++
			result.Features += n
		}

		if err := p.generateLanding(ctx, cand); err != nil {
			if isStorageErr(err) {
				return result, err
			}
			log.Printf("[Features] landing for cluster %d failed: %v", cand.ID, err)
			continue
		}
		result.Landings++
	}

	if result.Clusters > 0 {
		log.Printf("[Features] %d features across %d clusters, %d landing pages",
			result.Features, result.Clusters, result.Landings)
	}
	return result, nil
}

func (p *Pipeline) extractClusterFeatures(ctx context.Context, cand db.SynthCandidate) (int, error) {
	members, err := p.store.ClusterMemberAnnotations(ctx, cand.ID, 10)
	if err != nil {
		return 0, storageErr(err)
	}
	quotes := make([]string, 0, len(members))
	for _, m := range members {
		q := m.Quote
		if len(q) > 300 {
			q = q[:300]
		}
		quotes = append(quotes, q)
	}

	raw, err := p.llm.Complete(ctx, llm.FeaturePrompt(cand.ProductName, cand.Tagline, "", quotes), true)
	if err != nil {
		return 0, err
	}
	plan, err := llm.ParseFeaturePlan(raw)
	if err != nil {
		return 0, err
	}

	for _, f := range plan.Features {
		err := p.store.UpsertMvpFeature(ctx, models.MvpFeature{
			ClusterID:   cand.ID,
			Name:        f.Name,
			Description: f.Description,
			FeatureType: f.FeatureType,
			Effort:      f.Effort,
			Priority:    f.Priority,
		})
		if err != nil {
			return 0, storageErr(fmt.Errorf("upsert feature %q: %w", f.Name, err))
		}
	}
	return len(plan.Features), nil
}

func (p *Pipeline) generateLanding(ctx context.Context, cand db.SynthCandidate) error {
	if existing, err := p.store.GetLandingPage(ctx, cand.ID); err == nil && existing != nil {
		return nil
	} else if err != nil && err != db.ErrNotFound {
		return storageErr(err)
	}

	members, err := p.store.ClusterMemberAnnotations(ctx, cand.ID, 5)
	if err != nil {
		return storageErr(err)
	}
	quotes := make([]string, 0, len(members))
	for _, m := range members {
		q := m.Quote
		if len(q) > 200 {
			q = q[:200]
		}
		quotes = append(quotes, q)
	}

	raw, err := p.llm.Complete(ctx, llm.LandingPrompt(cand.ProductName, cand.Tagline, "", quotes), true)
	if err != nil {
		return err
	}
	copyOut, err := llm.ParseLandingCopy(raw)
	if err != nil {
		return err
	}

	err = p.store.UpsertLandingPage(ctx, models.LandingPage{
		ClusterID:   cand.ID,
		Headline:    copyOut.Headline,
		Subheadline: copyOut.Subheadline,
		Bullets:     copyOut.PainBullets,
		CTAText:     copyOut.CTAText,
	})
	if err != nil {
		return storageErr(err)
	}
	return nil
}
