package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/painscope/opportunity-engine/internal/db"
	"github.com/painscope/opportunity-engine/internal/llm"
)

// Topic normalization and the periodic merge pass. Normalization is
// deterministic and idempotent: normalize(normalize(t)) == normalize(t).

// topicSynonyms folds common word variants onto one canonical form.
var topicSynonyms = map[string]string{
	"clients":   "customer",
	"client":    "customer",
	"customers": "customer",
	"invoices":  "invoice",
	"invoicing": "invoice",
	"payments":  "payment",
	"payouts":   "payout",
	"leads":     "lead",
	"emails":    "email",
	"apps":      "app",
	"tools":     "tool",
	"issues":    "issue",
	"problems":  "problem",
	"delays":    "delay",
	"delayed":   "delay",
	"bookings":  "booking",
	"taxes":     "tax",
	"fees":      "fee",
	"reviews":   "review",
	"contracts": "contract",
}

// topicSuffixes are stripped from each word after synonym mapping, longest
// first so "ization" wins over "ing".
var topicSuffixes = []string{"ization", "isation", "ment", "ness", "ing"}

// NormalizeTopic canonicalizes a raw topic phrase: lowercase, separators
// to spaces, synonym mapping, suffix stripping, consecutive duplicate
// removal.
func NormalizeTopic(topic string) string {
	topic = strings.ToLower(topic)
	topic = strings.ReplaceAll(topic, "_", " ")
	topic = strings.ReplaceAll(topic, "-", " ")

	words := strings.Fields(topic)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if mapped, ok := topicSynonyms[w]; ok {
			w = mapped
		}
		// Suffix stripping runs after synonym mapping so the result is a
		// fixed point: normalizing an already-normalized topic is a no-op.
		for _, suffix := range topicSuffixes {
			// Guard the stem length so "ring" does not become "r".
			if strings.HasSuffix(w, suffix) && len(w) > len(suffix)+2 {
				w = strings.TrimSuffix(w, suffix)
				break
			}
		}
		if len(out) > 0 && out[len(out)-1] == w {
			continue
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

// TopicsSimilar reports whether two normalized topics describe the same
// thing: equal, one contains the other, or word-set Jaccard above 0.6.
func TopicsSimilar(a, b string) bool {
	if a == b {
		return true
	}
	if a == "" || b == "" {
		return false
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	return jaccard(strings.Fields(a), strings.Fields(b)) > 0.6
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, w := range a {
		set[w] = true
	}
	intersection := 0
	union := len(set)
	seen := make(map[string]bool, len(b))
	for _, w := range b {
		if seen[w] {
			continue
		}
		seen[w] = true
		if set[w] {
			intersection++
		} else {
			union++
		}
	}
	return float64(intersection) / float64(union)
}

const llmMergeTopicLimit = 50

// MergeResult summarizes one topic-merge pass.
type MergeResult struct {
	RuleMerges     int `json:"rule_merges"`
	LLMMerges      int `json:"llm_merges"`
	CentroidMerges int `json:"centroid_merges"`
	DroppedCycles  int `json:"dropped_cycles"`
	RecordsRenamed int `json:"records_renamed"`
}

// RunTopicMerger consolidates near-duplicate topics and clusters. Three
// sub-passes: rule-based topic similarity, an optional LLM pass over the
// surviving canonical topics, and a centroid-embedding pass that folds
// singleton clusters into established ones above the merge threshold.
func (p *Pipeline) RunTopicMerger(ctx context.Context, withLLM bool) (MergeResult, error) {
	var result MergeResult

	topics, err := p.store.CanonicalTopics(ctx, 500)
	if err != nil {
		return result, fmt.Errorf("load canonical topics: %w", err)
	}

	rulePlan := ruleMergePlan(topics)
	n, renamed, err := p.applyMerges(ctx, rulePlan)
	result.RuleMerges = n
	result.RecordsRenamed += renamed
	if err != nil {
		return result, err
	}

	if withLLM {
		survivors, err := p.store.CanonicalTopics(ctx, llmMergeTopicLimit)
		if err != nil {
			return result, fmt.Errorf("reload topics for llm pass: %w", err)
		}
		if len(survivors) >= 2 {
			raw, err := p.llm.Complete(ctx, llm.TopicMergePrompt(survivors), true)
			if err != nil {
				log.Printf("[Merger] llm pass failed: %v", err)
			} else if plan, err := llm.ParseTopicMergePlan(raw); err != nil {
				log.Printf("[Merger] llm plan unparseable: %v", err)
			} else {
				merges, dropped := dropCycles(plan.Merges)
				result.DroppedCycles = dropped
				n, renamed, err := p.applyMerges(ctx, merges)
				result.LLMMerges = n
				result.RecordsRenamed += renamed
				if err != nil {
					return result, err
				}
			}
		}
	}

	n, err = p.mergeSingletonsByCentroid(ctx)
	result.CentroidMerges = n
	if err != nil {
		return result, err
	}

	log.Printf("[Merger] %d rule merges, %d llm merges, %d centroid merges, %d cycle directives dropped",
		result.RuleMerges, result.LLMMerges, result.CentroidMerges, result.DroppedCycles)
	return result, nil
}

// ruleMergePlan pairs up similar topics, always folding onto the shorter
// (more general) form, breaking length ties lexicographically.
func ruleMergePlan(topics []string) []llm.TopicMerge {
	merges := make([]llm.TopicMerge, 0)
	merged := make(map[string]bool)
	for i := 0; i < len(topics); i++ {
		if merged[topics[i]] {
			continue
		}
		for j := i + 1; j < len(topics); j++ {
			if merged[topics[j]] {
				continue
			}
			if !TopicsSimilar(topics[i], topics[j]) {
				continue
			}
			from, to := topics[j], topics[i]
			if len(from) < len(to) || (len(from) == len(to) && from < to) {
				from, to = to, from
			}
			merges = append(merges, llm.TopicMerge{From: from, To: to})
			merged[from] = true
		}
	}
	return merges
}

// dropCycles removes directive pairs that merge in both directions; both
// sides of a cycle are dropped since the model contradicted itself.
func dropCycles(merges []llm.TopicMerge) ([]llm.TopicMerge, int) {
	forward := make(map[string]string, len(merges))
	for _, m := range merges {
		forward[m.From] = m.To
	}

	kept := make([]llm.TopicMerge, 0, len(merges))
	dropped := 0
	for _, m := range merges {
		if forward[m.To] == m.From {
			dropped++
			continue
		}
		kept = append(kept, m)
	}
	return kept, dropped
}

// applyMerges executes a merge plan: rename pain-record topics, then merge
// the source cluster into the target when both exist.
func (p *Pipeline) applyMerges(ctx context.Context, merges []llm.TopicMerge) (applied, renamed int, err error) {
	for _, m := range merges {
		n, err := p.store.RenameTopic(ctx, m.From, m.To)
		if err != nil {
			return applied, renamed, fmt.Errorf("rename topic %q to %q: %w", m.From, m.To, err)
		}
		renamed += int(n)

		targetID, err := p.store.ClusterIDByTopic(ctx, m.To)
		if errors.Is(err, db.ErrNotFound) {
			// No target cluster; the source cluster (if any) adopts the
			// canonical topic instead of merging.
			sourceID, err := p.store.ClusterIDByTopic(ctx, m.From)
			if errors.Is(err, db.ErrNotFound) {
				continue
			}
			if err != nil {
				return applied, renamed, err
			}
			if err := p.store.SetClusterTopic(ctx, sourceID, m.To); err != nil {
				return applied, renamed, err
			}
			continue
		}
		if err != nil {
			return applied, renamed, err
		}

		sourceID, err := p.store.ClusterIDByTopic(ctx, m.From)
		if errors.Is(err, db.ErrNotFound) {
			continue
		}
		if err != nil {
			return applied, renamed, err
		}
		if sourceID == targetID {
			continue
		}

		if err := p.store.MergeClusters(ctx, sourceID, targetID); err != nil {
			return applied, renamed, fmt.Errorf("merge cluster %d into %d: %w", sourceID, targetID, err)
		}
		applied++
	}
	return applied, renamed, nil
}

// mergeSingletonsByCentroid folds one-member clusters into an established
// cluster when centroid cosine exceeds the merge threshold.
func (p *Pipeline) mergeSingletonsByCentroid(ctx context.Context) (int, error) {
	singletons, err := p.store.SingletonClusters(ctx)
	if err != nil {
		return 0, fmt.Errorf("load singleton clusters: %w", err)
	}
	if len(singletons) == 0 {
		return 0, nil
	}
	established, err := p.store.EstablishedClusters(ctx)
	if err != nil {
		return 0, fmt.Errorf("load established clusters: %w", err)
	}
	if len(established) == 0 {
		return 0, nil
	}

	merges := 0
	for _, single := range singletons {
		best, score := bestCluster(established, single.Centroid)
		if best == nil || score <= p.cfg.MergeThreshold {
			continue
		}
		if err := p.store.MergeClusters(ctx, single.ID, best.ID); err != nil {
			return merges, fmt.Errorf("merge singleton %d into %d: %w", single.ID, best.ID, err)
		}
		best.SocialProofCount++
		merges++
	}
	return merges, nil
}
