package pipeline

import (
	"testing"
	"time"

	"github.com/painscope/opportunity-engine/pkg/models"
)

func trendDate(now time.Time, daysAgo int) string {
	return now.AddDate(0, 0, -daysAgo).Format("2006-01-02")
}

func TestBuildTrendSpikeOverQuietWeek(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	// A quiet trailing week (1-2 mentions a day), then 10 new mentions.
	history := map[string]int{}
	counts := []int{2, 1, 2, 1, 2, 1, 2}
	for d := 1; d <= 7; d++ {
		history[trendDate(now, d)] = counts[d-1]
	}

	trend := buildTrend("invoice delay", trendDate(now, 0), 12, 2.5, 3, history, now)

	if trend.NewMentions != 10 {
		t.Errorf("expected 10 new mentions, got %d", trend.NewMentions)
	}
	if !trend.IsSpike {
		t.Errorf("10 new mentions over a ~1.6/day week should spike")
	}
	if trend.TrendStatus != models.TrendHot {
		t.Errorf("spiking topic should be hot, got %q", trend.TrendStatus)
	}
	if trend.Velocity == nil || *trend.Velocity != 5.0 {
		t.Errorf("expected day-over-day velocity 5.0, got %v", trend.Velocity)
	}
}

func TestBuildTrendNoHistoryFloor(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	trend := buildTrend("new topic", trendDate(now, 0), 5, 2, 1, map[string]int{}, now)
	if !trend.IsSpike {
		t.Errorf("5 mentions with no history should hit the absolute spike floor")
	}

	trend = buildTrend("quieter topic", trendDate(now, 0), 4, 2, 1, map[string]int{}, now)
	if trend.IsSpike {
		t.Errorf("4 mentions with no history should stay under the spike floor")
	}
}

func TestBuildTrendNeverNegativeNewMentions(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	history := map[string]int{trendDate(now, 1): 20}

	// Mention count shrank after a topic merge moved records away.
	trend := buildTrend("merged topic", trendDate(now, 0), 8, 2, 1, history, now)
	if trend.NewMentions != 0 {
		t.Errorf("shrinking count should clamp new mentions to 0, got %d", trend.NewMentions)
	}
}

func TestVelocityBetween(t *testing.T) {
	if v := velocityBetween(0, 0, false); v != nil {
		t.Errorf("no history and no mentions should read as unknown, got %v", *v)
	}
	if v := velocityBetween(7, 0, false); v == nil || *v != 1.0 {
		t.Errorf("appearing from nothing should read as 1.0, got %v", v)
	}
	if v := velocityBetween(6, 3, true); v == nil || *v != 1.0 {
		t.Errorf("doubling should read as 1.0, got %v", v)
	}
	if v := velocityBetween(2, 4, true); v == nil || *v != -0.5 {
		t.Errorf("halving should read as -0.5, got %v", v)
	}
}

func TestClassifyTrend(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	cases := []struct {
		velocity *float64
		isSpike  bool
		want     string
	}{
		{f(-0.9), true, models.TrendHot}, // spike overrides velocity
		{nil, false, models.TrendStable},
		{f(0.6), false, models.TrendHot},
		{f(0.2), false, models.TrendRising},
		{f(0.0), false, models.TrendStable},
		{f(-0.2), false, models.TrendCooling},
		{f(-0.5), false, models.TrendCold},
	}
	for _, c := range cases {
		if got := classifyTrend(c.velocity, c.isSpike); got != c.want {
			t.Errorf("classifyTrend(%v, %v) = %q, want %q", c.velocity, c.isSpike, got, c.want)
		}
	}
}
