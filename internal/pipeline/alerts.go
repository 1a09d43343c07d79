package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/painscope/opportunity-engine/pkg/models"
)

const alertLookbackHours = 24

// RunAlertChecks evaluates every alert condition and persists one alert
// per (condition, subject); the insert key makes re-checks idempotent.
// Newly inserted alerts are also pushed to the live notifier.
func (p *Pipeline) RunAlertChecks(ctx context.Context, now time.Time) (int, error) {
	raised := 0

	fresh, err := p.store.FreshlySynthesizedClusters(ctx, alertLookbackHours)
	if err != nil {
		return raised, fmt.Errorf("check new opportunities: %w", err)
	}
	for _, c := range fresh {
		n, err := p.raiseAlert(ctx, models.Alert{
			AlertType: models.AlertNewOpportunity,
			Severity:  "info",
			Title:     fmt.Sprintf("New opportunity: %s", c.ProductName),
			Body: fmt.Sprintf("%d people are complaining about %s. Concept %q scored %d.",
				c.MemberCount, c.TopicCanonical, c.ProductName, c.TotalScore),
			ClusterID: &c.ID,
			Topic:     c.TopicCanonical,
		})
		if err != nil {
			return raised, err
		}
		raised += n
	}

	today := now.Format("2006-01-02")
	spikes, err := p.store.SpikesOn(ctx, today)
	if err != nil {
		return raised, fmt.Errorf("check trend spikes: %w", err)
	}
	for _, t := range spikes {
		n, err := p.raiseAlert(ctx, models.Alert{
			AlertType: models.AlertTrendSpike,
			Severity:  "warning",
			Title:     fmt.Sprintf("Spike: %s", t.TopicCanonical),
			Body: fmt.Sprintf("%q jumped by %d mentions today (now %d total).",
				t.TopicCanonical, t.NewMentions, t.MentionCount),
			ClusterID: t.ClusterID,
			Topic:     t.TopicCanonical,
		})
		if err != nil {
			return raised, err
		}
		raised += n
	}

	doubled, err := p.store.DoubledClusters(ctx)
	if err != nil {
		return raised, fmt.Errorf("check cluster growth: %w", err)
	}
	for _, c := range doubled {
		n, err := p.raiseAlert(ctx, models.Alert{
			AlertType: models.AlertClusterGrowth,
			Severity:  "info",
			Title:     fmt.Sprintf("Cluster doubled: %s", c.TopicCanonical),
			Body: fmt.Sprintf("Membership grew from %d to %d since the last synthesis.",
				c.LastSynthCount, c.MemberCount),
			ClusterID: &c.ID,
			Topic:     c.TopicCanonical,
		})
		if err != nil {
			return raised, err
		}
		raised += n
	}

	gaps, err := p.store.RecentFeatureGaps(ctx, alertLookbackHours, 10)
	if err != nil {
		return raised, fmt.Errorf("check competitor gaps: %w", err)
	}
	for _, m := range gaps {
		n, err := p.raiseAlert(ctx, models.Alert{
			AlertType: models.AlertCompetitorGap,
			Severity:  "info",
			Title:     fmt.Sprintf("Gap in %s", m.Product),
			Body:      fmt.Sprintf("A %s user: %q", m.Product, m.FeatureGap),
			Topic:     m.Product,
		})
		if err != nil {
			return raised, err
		}
		raised += n
	}

	if raised > 0 {
		log.Printf("[Alerts] %d new alerts raised", raised)
	}
	return raised, nil
}

// raiseAlert persists the alert and, when it is genuinely new, fans it
// out to live subscribers. Returns 1 when inserted, 0 when already known.
func (p *Pipeline) raiseAlert(ctx context.Context, a models.Alert) (int, error) {
	stored, err := p.store.InsertAlert(ctx, a)
	if err != nil {
		return 0, fmt.Errorf("insert alert %q: %w", a.Title, err)
	}
	if stored == nil {
		return 0, nil
	}
	p.notify(*stored)
	return 1, nil
}
