package pipeline

import (
	"strings"
	"testing"
)

func TestClassifySentiment(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"I hate this product, it's the worst tool I've used", "negative"},
		{"so slow and clunky compared to the old version", "frustrated"},
		{"works fine for our team", "neutral"},
		{"useless. annoying to set up, confusing UI, switching away next month", "negative"},
		{"it's a bit expensive but does the job", "frustrated"},
	}
	for _, c := range cases {
		if got := ClassifySentiment(c.text); got != c.want {
			t.Errorf("ClassifySentiment(%q) = %q, want %q", c.text, got, c.want)
		}
	}
}

func TestExtractFeatureGap(t *testing.T) {
	gap := ExtractFeatureGap("Decent invoicing but I wish it had recurring billing for retainers.")
	if gap == "" {
		t.Fatalf("expected a feature gap")
	}
	if !strings.HasPrefix(strings.ToLower(gap), "i wish") {
		t.Errorf("gap should start at the wish phrase, got %q", gap)
	}

	gap = ExtractFeatureGap("There's no way to export timesheets to CSV without the top plan")
	if gap == "" || !strings.Contains(strings.ToLower(gap), "no way to export") {
		t.Errorf("expected the export gap, got %q", gap)
	}

	if gap := ExtractFeatureGap("works great, highly recommend"); gap != "" {
		t.Errorf("expected no gap in praise, got %q", gap)
	}
}

func TestBuildMentionDropsNeutralWithoutGap(t *testing.T) {
	m := buildMention("Xero", "accounting", "Accounting",
		"we moved to Xero last quarter and it does the basics", "user1", "https://example.com/1", 4)
	if m != nil {
		t.Errorf("neutral mention with no gap should be dropped, got %+v", m)
	}
}

func TestBuildMentionKeepsComplaint(t *testing.T) {
	m := buildMention("Xero", "accounting", "Accounting",
		"Xero is terrible, the worst bank feed reliability and it doesn't support multi-entity consolidation",
		"user2", "https://example.com/2", 17)
	if m == nil {
		t.Fatalf("complaint should produce a mention")
	}
	if m.Sentiment != "negative" {
		t.Errorf("expected negative sentiment, got %q", m.Sentiment)
	}
	if m.FeatureGap == "" {
		t.Errorf("expected a feature gap to be extracted")
	}
	if m.Product != "Xero" || m.Vertical != "accounting" || m.SourceScore != 17 {
		t.Errorf("mention fields not carried through: %+v", m)
	}
}

func TestMentionsProductCaseInsensitive(t *testing.T) {
	if !mentionsProduct("thinking about leaving QUICKBOOKS for good", "QuickBooks") {
		t.Errorf("product match should be case-insensitive")
	}
	if mentionsProduct("considering a new ledger tool", "QuickBooks") {
		t.Errorf("unrelated text should not match")
	}
}
