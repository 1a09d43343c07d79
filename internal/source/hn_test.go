package source

import "testing"

func TestCleanHNBody(t *testing.T) {
	raw := `I switched last year.<p>Honestly the invoicing side is still painful &amp; slow &mdash; I do it by hand.`
	want := "I switched last year. Honestly the invoicing side is still painful & slow — I do it by hand."
	if got := cleanHNBody(raw); got != want {
		t.Errorf("cleanHNBody mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestCleanHNBodyCollapsesWhitespace(t *testing.T) {
	raw := "  line one\n\n\tline   two  "
	if got := cleanHNBody(raw); got != "line one line two" {
		t.Errorf("expected collapsed whitespace, got %q", got)
	}
}

func TestNormalizeSpaceEmpty(t *testing.T) {
	if got := normalizeSpace("   \n\t  "); got != "" {
		t.Errorf("whitespace-only input should be empty, got %q", got)
	}
}
