package pipeline

import (
	"errors"
	"fmt"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	got := splitSentences("Connect your accounting software. We match incoming payments. Done.")
	want := []string{"Connect your accounting software", "We match incoming payments", "Done"}
	if len(got) != len(want) {
		t.Fatalf("expected %d steps, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitSentencesEmpty(t *testing.T) {
	if got := splitSentences(""); len(got) != 0 {
		t.Errorf("empty input should yield no steps, got %v", got)
	}
}

func TestStorageErrClassification(t *testing.T) {
	base := errors.New("connection refused")

	if !isStorageErr(storageErr(base)) {
		t.Errorf("wrapped storage error should classify as storage")
	}
	if !isStorageErr(fmt.Errorf("save concept: %w", storageErr(base))) {
		t.Errorf("classification should survive further wrapping")
	}
	if isStorageErr(base) {
		t.Errorf("plain error should not classify as storage")
	}
	if storageErr(nil) != nil {
		t.Errorf("nil should stay nil")
	}
}
