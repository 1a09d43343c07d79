package llm

import "testing"

func TestParseBinaryFilter(t *testing.T) {
	result, defaulted := ParseBinaryFilter(`{"is_pain": true}`)
	if !result.IsPain || defaulted {
		t.Errorf("expected is_pain=true without defaulting, got %v defaulted=%v", result.IsPain, defaulted)
	}

	result, defaulted = ParseBinaryFilter(`{"is_pain": false}`)
	if result.IsPain || defaulted {
		t.Errorf("expected is_pain=false without defaulting, got %v defaulted=%v", result.IsPain, defaulted)
	}
}

func TestParseBinaryFilterDefaultsToInclusion(t *testing.T) {
	for _, raw := range []string{"maybe", "", "yes, this is a pain point", "{broken"} {
		result, defaulted := ParseBinaryFilter(raw)
		if !result.IsPain || !defaulted {
			t.Errorf("unparseable output %q should default to pain, got %v defaulted=%v",
				raw, result.IsPain, defaulted)
		}
	}
}

func TestParseBinaryFilterFencedOutput(t *testing.T) {
	raw := "```json\n{\"is_pain\": false}\n```"
	result, defaulted := ParseBinaryFilter(raw)
	if result.IsPain || defaulted {
		t.Errorf("fenced JSON should parse cleanly, got %v defaulted=%v", result.IsPain, defaulted)
	}
}

func TestParseTagging(t *testing.T) {
	raw := `{"topics": ["invoice delays"], "persona": "freelancer", "severity": "high"}`
	result, err := ParseTagging(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Topics[0] != "invoice delays" || result.Persona != "freelancer" || result.Severity != "high" {
		t.Errorf("fields not carried through: %+v", result)
	}
}

func TestParseTaggingCoercesUnknowns(t *testing.T) {
	raw := `{"topics": ["tax stress"], "persona": "", "severity": "extreme"}`
	result, err := ParseTagging(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Severity != "medium" {
		t.Errorf("unknown severity should coerce to medium, got %q", result.Severity)
	}
	if result.Persona != "unknown" {
		t.Errorf("empty persona should coerce to unknown, got %q", result.Persona)
	}
}

func TestParseTaggingRejectsEmptyTopics(t *testing.T) {
	if _, err := ParseTagging(`{"topics": [], "persona": "x", "severity": "low"}`); err == nil {
		t.Errorf("expected an error for empty topics")
	}
}

func TestParseTopicMergePlanDropsSelfMerges(t *testing.T) {
	raw := `{"merges": [{"from": "invoice", "to": "invoice"}, {"from": "tax stress", "to": "tax"}]}`
	plan, err := ParseTopicMergePlan(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Merges) != 1 || plan.Merges[0].From != "tax stress" {
		t.Errorf("self-merge should be dropped, got %+v", plan.Merges)
	}
}

func TestParseTopicMergePlanBareArray(t *testing.T) {
	raw := `[{"from": "invoice delay", "to": "invoice"}]`
	plan, err := ParseTopicMergePlan(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Merges) != 1 || plan.Merges[0].To != "invoice" {
		t.Errorf("bare array form should parse, got %+v", plan.Merges)
	}
}

func TestParseProductConceptRequiresNameAndTagline(t *testing.T) {
	if _, err := ParseProductConcept(`{"product_name": "", "tagline": "x"}`); err == nil {
		t.Errorf("expected an error for missing product name")
	}
	concept, err := ParseProductConcept(
		`{"product_name": "ChaseLess", "tagline": "Invoices that chase themselves", "how_it_works": "a. b.", "target_customer": "freelancers"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if concept.ProductName != "ChaseLess" {
		t.Errorf("fields not carried through: %+v", concept)
	}
}

func TestParseMarketSizing(t *testing.T) {
	raw := `{"tam_usd": 5000000000, "sam_usd": 400000000, "som_usd": 20000000,
		"method": "top-down", "confidence": "medium", "competitors": ["Xero"],
		"pricing_model": "subscription", "reasoning": "..."}`
	sizing, err := ParseMarketSizing(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sizing.TAMUSD != 5000000000 || sizing.Confidence != "medium" {
		t.Errorf("fields not carried through: %+v", sizing)
	}

	if _, err := ParseMarketSizing(`{"tam_usd": -1}`); err == nil {
		t.Errorf("expected an error for negative sizing")
	}

	sizing, err = ParseMarketSizing(`{"tam_usd": 1, "confidence": "certain"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sizing.Confidence != "low" {
		t.Errorf("unknown confidence should coerce to low, got %q", sizing.Confidence)
	}
}

func TestParseFeaturePlanCoercions(t *testing.T) {
	raw := `{"features": [
		{"name": "Recurring invoices", "feature_type": "mvp", "priority": 9, "effort": "huge"},
		{"name": "", "feature_type": "core"},
		{"name": "Late-fee automation", "feature_type": "differentiator", "priority": 2, "effort": "small"}
	]}`
	plan, err := ParseFeaturePlan(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Features) != 2 {
		t.Fatalf("nameless feature should be dropped, got %d features", len(plan.Features))
	}
	first := plan.Features[0]
	if first.FeatureType != "core" || first.Effort != "medium" || first.Priority != 3 {
		t.Errorf("unknown values should coerce to defaults, got %+v", first)
	}
	second := plan.Features[1]
	if second.FeatureType != "differentiator" || second.Effort != "small" || second.Priority != 2 {
		t.Errorf("valid values should pass through, got %+v", second)
	}
}

func TestParseLandingCopyRequiresHeadline(t *testing.T) {
	if _, err := ParseLandingCopy(`{"headline": ""}`); err == nil {
		t.Errorf("expected an error for missing headline")
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"Here you go:\n{\"a\": 1}\nHope that helps!", `{"a": 1}`},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{`[1, 2, 3]`, `[1, 2, 3]`},
		{"no json here", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := extractJSON(c.in); got != c.want {
			t.Errorf("extractJSON(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
