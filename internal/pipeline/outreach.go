package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
)

const (
	outreachClusterBatch = 10
	outreachPerCluster   = 20
)

// RunOutreachBuilder assembles early-adopter contact lists for
// synthesized clusters from their own members: everyone on the list has
// already described the pain in public. Deterministic, no LLM involved.
func (p *Pipeline) RunOutreachBuilder(ctx context.Context) (int, error) {
	candidates, err := p.store.OutreachCandidates(ctx, outreachClusterBatch)
	if err != nil {
		return 0, fmt.Errorf("select outreach candidates: %w", err)
	}

	added := 0
	for _, cand := range candidates {
		contacts, err := p.store.ClusterOutreachMembers(ctx, cand.ID, outreachPerCluster)
		if err != nil {
			return added, fmt.Errorf("load members for cluster %d: %w", cand.ID, err)
		}
		for _, c := range contacts {
			c.Platform = "reddit"
			if c.Subreddit == "hackernews" {
				c.Platform = "hackernews"
			}
			c.Quote = truncateQuote(strings.TrimSpace(c.Quote))
			if err := p.store.UpsertOutreachContact(ctx, c); err != nil {
				return added, fmt.Errorf("upsert contact %s: %w", c.Username, err)
			}
			added++
		}
	}

	if added > 0 {
		log.Printf("[Outreach] %d contacts across %d clusters", added, len(candidates))
	}
	return added, nil
}
