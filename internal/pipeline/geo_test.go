package pipeline

import "testing"

func TestDetectRegionSubredditOutranksKeyword(t *testing.T) {
	// An AU community mentioning a US city stays AU: the community signal
	// is stronger than any single keyword.
	region, confidence, _ := DetectRegion(
		"I can't get my Boston clients to pay invoices on time", "melbourne")
	if region != RegionAU {
		t.Errorf("expected AU from r/melbourne despite the US keyword, got %s", region)
	}
	if confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %f", confidence)
	}
}

func TestDetectRegionKeywordOnly(t *testing.T) {
	region, confidence, signals := DetectRegion(
		"the ATO keeps rejecting my BAS statement", "smallbusiness")
	if region != RegionAU {
		t.Errorf("expected AU from tax-authority keyword, got %s", region)
	}
	if confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %f", confidence)
	}
	if len(signals) == 0 {
		t.Errorf("expected at least one matched signal")
	}
}

func TestDetectRegionNoSignals(t *testing.T) {
	region, confidence, signals := DetectRegion(
		"my point of sale keeps crashing during busy hours", "smallbusiness")
	if region != RegionGlobal {
		t.Errorf("expected GLOBAL with no signals, got %s", region)
	}
	if confidence != 0.1 {
		t.Errorf("expected floor confidence 0.1, got %f", confidence)
	}
	if len(signals) != 0 {
		t.Errorf("expected no signals, got %v", signals)
	}
}

func TestDetectRegionStackedSignalsCapAtOne(t *testing.T) {
	region, confidence, _ := DetectRegion(
		"superannuation payments are a nightmare to reconcile", "australia")
	if region != RegionAU {
		t.Errorf("expected AU, got %s", region)
	}
	if confidence != 1.0 {
		t.Errorf("community plus strong keyword should cap at 1.0, got %f", confidence)
	}
}

func TestDetectRegionSignalsDedupedAndBounded(t *testing.T) {
	quote := "australia australia sydney melbourne brisbane perth adelaide AUD aussie GST superannuation"
	_, _, signals := DetectRegion(quote, "australia")
	if len(signals) > 5 {
		t.Errorf("signals should be capped at 5, got %d: %v", len(signals), signals)
	}
	seen := map[string]bool{}
	for _, s := range signals {
		if seen[s] {
			t.Errorf("duplicate signal %q", s)
		}
		seen[s] = true
	}
}
