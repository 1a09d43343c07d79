package pipeline

import (
	"testing"

	"github.com/painscope/opportunity-engine/internal/llm"
)

func TestNormalizeTopic(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Client Onboarding", "customer onboard"},
		{"customer onboarding", "customer onboard"},
		{"invoice_delays", "invoice delay"},
		{"Invoicing", "invoice"},
		{"bookings", "book"},
		{"shipment delays", "ship delay"},
		{"invoice invoicing", "invoice"},
		{"ring", "ring"}, // stem guard: too short to strip
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeTopic(c.in); got != c.want {
			t.Errorf("NormalizeTopic(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeTopicIdempotent(t *testing.T) {
	inputs := []string{
		"Client Onboarding", "bookings", "invoice_delays", "payment processing",
		"tax compliance", "customer communication issues",
	}
	for _, in := range inputs {
		once := NormalizeTopic(in)
		twice := NormalizeTopic(once)
		if once != twice {
			t.Errorf("NormalizeTopic not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestTopicsSimilar(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"invoice delay", "invoice delay", true},
		{"customer onboard", "onboard", true}, // substring
		{"invoice payment tax delay chase", "invoice payment tax delay bank", true}, // jaccard 4/6
		{"invoice payment delay", "invoice payment issue", false},                   // jaccard 2/4
		{"", "invoice", false},
		{"", "", true},
	}
	for _, c := range cases {
		if got := TopicsSimilar(c.a, c.b); got != c.want {
			t.Errorf("TopicsSimilar(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestDropCycles(t *testing.T) {
	merges := []llm.TopicMerge{
		{From: "invoice delay", To: "invoice"},
		{From: "invoice", To: "invoice delay"},
		{From: "tax stress", To: "tax"},
	}
	kept, dropped := dropCycles(merges)
	if dropped != 2 {
		t.Errorf("expected 2 dropped cycle directives, got %d", dropped)
	}
	if len(kept) != 1 || kept[0].From != "tax stress" {
		t.Errorf("expected only the acyclic directive to survive, got %v", kept)
	}
}

func TestRuleMergePlanFoldsOntoShorterForm(t *testing.T) {
	plan := ruleMergePlan([]string{"customer onboard", "onboard"})
	if len(plan) != 1 {
		t.Fatalf("expected 1 merge, got %d", len(plan))
	}
	if plan[0].From != "customer onboard" || plan[0].To != "onboard" {
		t.Errorf("expected merge onto the shorter form, got %+v", plan[0])
	}
}
