package metrics

import "math"

// The embedding clusterer and the topic tagger label the same pain
// records independently. Comparing the two partitions catches cluster
// collapse (everything folding into one cluster) and drift after a
// similarity threshold change, without any hand-labeled ground truth.

// AdjustedRandIndex scores the structural agreement between two
// labelings of the same records. 1 is identical partitioning, 0 is
// chance-level, negative is worse than chance. Inputs with fewer than
// two records, or mismatched lengths, score 0.
func AdjustedRandIndex(a, b []string) float64 {
	n := len(a)
	if n != len(b) || n < 2 {
		return 0
	}

	joint, aCounts, bCounts := contingency(a, b)

	var sumJoint, sumA, sumB float64
	for _, row := range joint {
		for _, c := range row {
			sumJoint += pairs(c)
		}
	}
	for _, c := range aCounts {
		sumA += pairs(c)
	}
	for _, c := range bCounts {
		sumB += pairs(c)
	}

	total := pairs(n)
	if total == 0 {
		return 0
	}
	expected := sumA * sumB / total
	maximum := (sumA + sumB) / 2
	if math.Abs(maximum-expected) < 1e-12 {
		// Both partitions are all-singletons or a single block.
		return 1
	}
	return (sumJoint - expected) / (maximum - expected)
}

// VariationOfInformation is the information-theoretic distance between
// two labelings of the same records: the sum of the two conditional
// entropies H(A|B) + H(B|A). 0 means identical partitions; larger means
// more disagreement.
func VariationOfInformation(a, b []string) float64 {
	n := len(a)
	if n != len(b) || n < 2 {
		return 0
	}

	joint, aCounts, bCounts := contingency(a, b)
	nf := float64(n)

	var vi float64
	for la, row := range joint {
		for lb, c := range row {
			p := float64(c) / nf
			vi -= p * math.Log2(float64(c)/float64(bCounts[lb]))
			vi -= p * math.Log2(float64(c)/float64(aCounts[la]))
		}
	}
	return vi
}

// contingency builds the joint label-count table and both marginals.
func contingency(a, b []string) (map[string]map[string]int, map[string]int, map[string]int) {
	joint := make(map[string]map[string]int)
	aCounts := make(map[string]int)
	bCounts := make(map[string]int)
	for i := range a {
		row := joint[a[i]]
		if row == nil {
			row = make(map[string]int)
			joint[a[i]] = row
		}
		row[b[i]]++
		aCounts[a[i]]++
		bCounts[b[i]]++
	}
	return joint, aCounts, bCounts
}

// pairs is C(n, 2).
func pairs(n int) float64 {
	if n < 2 {
		return 0
	}
	return float64(n) * float64(n-1) / 2
}
