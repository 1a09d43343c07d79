package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/painscope/opportunity-engine/pkg/models"
)

// TrendResult summarizes one snapshot pass.
type TrendResult struct {
	Topics int    `json:"topics"`
	Spikes int    `json:"spikes"`
	Date   string `json:"date"`
}

// RunTrendSnapshotter writes today's per-topic snapshot: cumulative
// mention count, day-over-day velocity, 7d/30d velocity, spike flag, and
// trend status. Upserts by (topic, date, bucket) so re-running the same
// day replaces rather than appends.
func (p *Pipeline) RunTrendSnapshotter(ctx context.Context, now time.Time) (TrendResult, error) {
	today := now.Format("2006-01-02")
	result := TrendResult{Date: today}

	aggs, err := p.store.TopicAggregates(ctx)
	if err != nil {
		return result, fmt.Errorf("aggregate topics: %w", err)
	}

	since := now.AddDate(0, 0, -31).Format("2006-01-02")
	for _, agg := range aggs {
		history, err := p.store.SnapshotHistory(ctx, agg.Topic, since)
		if err != nil {
			return result, fmt.Errorf("history for %q: %w", agg.Topic, err)
		}

		trend := buildTrend(agg.Topic, today, agg.MentionCount, agg.AvgSeverity,
			agg.SubredditSpread, history, now)
		trend.ClusterID = agg.ClusterID

		if err := p.store.UpsertTrend(ctx, trend); err != nil {
			return result, fmt.Errorf("upsert trend %q: %w", agg.Topic, err)
		}
		if err := p.store.RefreshTrendSummary(ctx, agg.Topic, trend); err != nil {
			return result, fmt.Errorf("refresh summary %q: %w", agg.Topic, err)
		}

		result.Topics++
		if trend.IsSpike {
			result.Spikes++
		}
	}

	if err := p.store.SetState(ctx, "last_trend_snapshot", today); err != nil {
		return result, fmt.Errorf("record snapshot date: %w", err)
	}

	log.Printf("[Trends] %d topics snapshotted for %s, %d spikes", result.Topics, today, result.Spikes)
	return result, nil
}

// buildTrend derives velocity, spike, and status for one topic from its
// current count and snapshot history (date → mention_count).
func buildTrend(topic, today string, mentionCount int, avgSeverity float64, spread int, history map[string]int, now time.Time) models.PainTrend {
	dayCount := func(daysAgo int) (int, bool) {
		date := now.AddDate(0, 0, -daysAgo).Format("2006-01-02")
		n, ok := history[date]
		return n, ok
	}

	yesterday, hadYesterday := dayCount(1)
	newMentions := mentionCount - yesterday
	if newMentions < 0 {
		newMentions = 0
	}

	velocity := velocityBetween(mentionCount, yesterday, hadYesterday)

	week, hadWeek := dayCount(7)
	velocity7d := velocityBetween(mentionCount, week, hadWeek)
	month, hadMonth := dayCount(30)
	velocity30d := velocityBetween(mentionCount, month, hadMonth)

	// Spike: today's new mentions tower over the trailing week's typical
	// daily intake. With no history at all, an absolute floor applies.
	isSpike := false
	weekTotal, weekDays := 0, 0
	for d := 1; d <= 7; d++ {
		if n, ok := dayCount(d); ok {
			weekTotal += n
			weekDays++
		}
	}
	if weekDays > 0 {
		weekAvg := float64(weekTotal) / float64(weekDays)
		isSpike = float64(newMentions) >= 3*weekAvg && newMentions > 0
	} else {
		isSpike = newMentions >= 5
	}

	return models.PainTrend{
		TopicCanonical:  topic,
		SnapshotDate:    today,
		BucketType:      "daily",
		MentionCount:    mentionCount,
		NewMentions:     newMentions,
		Velocity:        velocity,
		Velocity7d:      velocity7d,
		Velocity30d:     velocity30d,
		TrendStatus:     classifyTrend(velocity, isSpike),
		IsSpike:         isSpike,
		AvgSeverity:     avgSeverity,
		SubredditSpread: spread,
	}
}

// velocityBetween computes (today-then)/then. A topic appearing from
// nothing reads as 1.0; no movement on no history reads as unknown (nil).
func velocityBetween(today, then int, hadThen bool) *float64 {
	if then == 0 || !hadThen {
		if today > 0 {
			v := 1.0
			return &v
		}
		return nil
	}
	v := float64(today-then) / float64(then)
	return &v
}

// classifyTrend maps velocity and the spike flag to a status label.
func classifyTrend(velocity *float64, isSpike bool) string {
	if isSpike {
		return models.TrendHot
	}
	if velocity == nil {
		return models.TrendStable
	}
	v := *velocity
	switch {
	case v >= 0.5:
		return models.TrendHot
	case v >= 0.1:
		return models.TrendRising
	case v >= -0.1:
		return models.TrendStable
	case v >= -0.3:
		return models.TrendCooling
	default:
		return models.TrendCold
	}
}
