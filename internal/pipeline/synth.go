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

const synthQuoteLimit = 25

// SynthResult summarizes one synthesis pass.
type SynthResult struct {
	Synthesized int `json:"synthesized"`
	Skipped     int `json:"skipped"`
	Errors      int `json:"errors"`
}

// RunSynthesizer generates (or refreshes) product concepts for clusters
// that crossed the member floor and either were never synthesized or grew
// past the growth threshold. The update compare-and-writes on the
// last_synth_count the gate read, so a concurrent synthesis of the same
// cluster results in exactly one version bump.
func (p *Pipeline) RunSynthesizer(ctx context.Context) (SynthResult, error) {
	candidates, err := p.store.SynthCandidates(ctx, p.cfg.SynthMemberFloor, p.cfg.SynthGrowth, p.cfg.SynthBatch)
	if err != nil {
		return SynthResult{}, fmt.Errorf("select synthesis candidates: %w", err)
	}

	var result SynthResult
	for _, cand := range candidates {
		applied, err := p.synthesizeCluster(ctx, cand)
		if err != nil {
			if isStorageErr(err) {
				return result, err
			}
			log.Printf("[Synth] cluster %d (%s) failed: %v", cand.ID, cand.TopicCanonical, err)
			result.Errors++
			continue
		}
		if applied {
			result.Synthesized++
		} else {
			result.Skipped++
		}
	}

	log.Printf("[Synth] %d synthesized, %d skipped, %d errors",
		result.Synthesized, result.Skipped, result.Errors)
	return result, nil
}

func (p *Pipeline) synthesizeCluster(ctx context.Context, cand db.SynthCandidate) (bool, error) {
	members, err := p.store.ClusterMemberAnnotations(ctx, cand.ID, synthQuoteLimit)
	if err != nil {
		return false, storageErr(fmt.Errorf("load members of cluster %d: %w", cand.ID, err))
	}
	if len(members) == 0 {
		return false, nil
	}

	quotes := make([]string, 0, len(members))
	personaSet := make(map[string]bool)
	subredditSet := make(map[string]bool)
	severityHist := make(map[string]int)
	for _, m := range members {
		quote := m.Quote
		if len(quote) > 300 {
			quote = quote[:300]
		}
		annotation := ""
		if m.Persona != "" || m.Severity != "" {
			annotation = fmt.Sprintf(" [%s, %s]", m.Persona, m.Severity)
		}
		quotes = append(quotes, strings.TrimSpace(quote)+annotation)
		if m.Persona != "" {
			personaSet[m.Persona] = true
		}
		subredditSet[m.Subreddit] = true
		if m.Severity != "" {
			severityHist[m.Severity]++
		}
	}

	prevName, prevTagline := "", ""
	if cand.Version > 0 {
		prevName, prevTagline = cand.ProductName, cand.Tagline
	}

	prompt := llm.SynthesisPrompt(cand.TopicCanonical, quotes, setToSlice(personaSet),
		severityHist, setToSlice(subredditSet), prevName, prevTagline)
	raw, err := p.llm.Complete(ctx, prompt, true)
	if err != nil {
		return false, err
	}
	concept, err := llm.ParseProductConcept(raw)
	if err != nil {
		return false, err
	}

	howItWorks := splitSentences(concept.HowItWorks)
	applied, err := p.store.ApplySynthesis(ctx, cand, concept.ProductName,
		concept.Tagline, howItWorks, concept.TargetCustomer)
	if err != nil {
		return false, storageErr(err)
	}
	return applied, nil
}

func setToSlice(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

// splitSentences breaks the how-it-works prose into per-sentence bullets
// for the JSON column.
func splitSentences(s string) []string {
	parts := strings.Split(s, ". ")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(strings.TrimSuffix(part, "."))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// storageError wraps store failures so the pass can distinguish them from
// per-item LLM failures: storage aborts the phase, LLM failures skip the
// item.
type storageError struct{ err error }

func (e storageError) Error() string { return e.err.Error() }
func (e storageError) Unwrap() error { return e.err }

func storageErr(err error) error {
	if err == nil {
		return nil
	}
	return storageError{err: err}
}

func isStorageErr(err error) bool {
	var se storageError
	return errors.As(err, &se)
}
