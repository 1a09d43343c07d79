package metrics

import (
	"math"
	"testing"
)

func TestAdjustedRandIndexPerfectAgreement(t *testing.T) {
	clusters := []string{"1", "1", "2", "2", "3", "3"}
	topics := []string{"invoice", "invoice", "scheduling", "scheduling", "payroll", "payroll"}

	ari := AdjustedRandIndex(clusters, topics)
	if math.Abs(ari-1.0) > 0.01 {
		t.Errorf("expected ARI=1.0 for matching partitions, got %f", ari)
	}
}

func TestAdjustedRandIndexDissimilarPartitions(t *testing.T) {
	clusters := []string{"1", "1", "1", "2", "2", "2"}
	topics := []string{"a", "b", "a", "b", "a", "b"}

	ari := AdjustedRandIndex(clusters, topics)
	if ari > 0.5 {
		t.Errorf("expected ARI near 0 for dissimilar partitions, got %f", ari)
	}
}

func TestAdjustedRandIndexCollapse(t *testing.T) {
	// Everything in one cluster against three distinct topics should not
	// look like agreement.
	clusters := []string{"1", "1", "1", "1", "1", "1"}
	topics := []string{"a", "a", "b", "b", "c", "c"}

	ari := AdjustedRandIndex(clusters, topics)
	if ari > 0.1 {
		t.Errorf("expected low ARI for collapsed clustering, got %f", ari)
	}
}

func TestAdjustedRandIndexDegenerateInput(t *testing.T) {
	if got := AdjustedRandIndex([]string{"1"}, []string{"a"}); got != 0 {
		t.Errorf("single record should score 0, got %f", got)
	}
	if got := AdjustedRandIndex([]string{"1", "2"}, []string{"a"}); got != 0 {
		t.Errorf("mismatched lengths should score 0, got %f", got)
	}
}

func TestVariationOfInformationIdentical(t *testing.T) {
	clusters := []string{"1", "1", "2", "2", "3", "3"}
	topics := []string{"x", "x", "y", "y", "z", "z"}

	vi := VariationOfInformation(clusters, topics)
	if vi > 0.01 {
		t.Errorf("expected VI=0 for identical partitions, got %f", vi)
	}
}

func TestVariationOfInformationDifferent(t *testing.T) {
	clusters := []string{"1", "1", "1", "2", "2", "2"}
	topics := []string{"a", "b", "a", "b", "a", "b"}

	vi := VariationOfInformation(clusters, topics)
	if vi < 0.1 {
		t.Errorf("expected VI > 0 for different partitions, got %f", vi)
	}
}
