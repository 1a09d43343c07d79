package pipeline

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateQuoteShortInputUntouched(t *testing.T) {
	s := "short quote"
	if got := truncateQuote(s); got != s {
		t.Errorf("short input should pass through, got %q", got)
	}
}

func TestTruncateQuoteCapsLength(t *testing.T) {
	s := strings.Repeat("a", maxPainQuoteLen+500)
	got := truncateQuote(s)
	if len(got) != maxPainQuoteLen {
		t.Errorf("expected %d bytes, got %d", maxPainQuoteLen, len(got))
	}
}

func TestTruncateQuoteNeverSplitsRunes(t *testing.T) {
	// The single-byte prefix shifts every rune boundary so the byte cap
	// lands mid-rune.
	s := "a" + strings.Repeat("é", maxPainQuoteLen)
	got := truncateQuote(s)
	if len(got) > maxPainQuoteLen {
		t.Errorf("truncated quote exceeds the cap: %d bytes", len(got))
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncation split a multi-byte rune")
	}
}

func TestHNItemID(t *testing.T) {
	if got := hnItemID("hn_38123456"); got != "38123456" {
		t.Errorf("expected the bare item id, got %q", got)
	}
	if got := hnItemID("abc123"); got != "abc123" {
		t.Errorf("non-HN ids should pass through, got %q", got)
	}
}
