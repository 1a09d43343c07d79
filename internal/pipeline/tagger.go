package pipeline

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/painscope/opportunity-engine/internal/llm"
	"github.com/painscope/opportunity-engine/pkg/models"
)

const taggerBatch = 100

// TagResult summarizes one tagging pass.
type TagResult struct {
	Tagged      int `json:"tagged"`
	ParseErrors int `json:"parse_errors"`
	CallErrors  int `json:"call_errors"`
}

// RunTagger annotates untagged pain records with topics, persona, and
// severity. The normalized topic is derived here so a tagged record is
// immediately clusterable; topics, persona, severity, normalized_topic,
// and tagged_at land in one update.
func (p *Pipeline) RunTagger(ctx context.Context) (TagResult, error) {
	records, err := p.store.UntaggedRecords(ctx, taggerBatch)
	if err != nil {
		return TagResult{}, fmt.Errorf("select untagged records: %w", err)
	}
	if len(records) == 0 {
		return TagResult{}, nil
	}

	type outcome struct {
		record models.PainRecord
		tags   llm.TaggingResult
		ok     bool
		called bool
	}
	outcomes := make([]outcome, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.LLMWorkers)
	for i, record := range records {
		i, record := i, record
		g.Go(func() error {
			raw, err := p.llm.Complete(gctx, llm.TaggingPrompt(record.RawQuote), true)
			if err != nil {
				outcomes[i] = outcome{record: record}
				return nil
			}
			tags, err := llm.ParseTagging(raw)
			if err != nil {
				outcomes[i] = outcome{record: record, called: true}
				return nil
			}
			outcomes[i] = outcome{record: record, tags: tags, ok: true, called: true}
			return nil
		})
	}
	_ = g.Wait()

	var result TagResult
	for _, o := range outcomes {
		if o.record.ID == 0 {
			continue
		}
		if !o.ok {
			if o.called {
				result.ParseErrors++
			} else {
				result.CallErrors++
			}
			continue // untouched; the next tick retries
		}

		normalized := NormalizeTopic(o.tags.Topics[0])
		if normalized == "" {
			result.ParseErrors++
			continue
		}
		if err := p.store.ApplyTags(ctx, o.record.ID, o.tags.Topics,
			o.tags.Persona, o.tags.Severity, normalized); err != nil {
			return result, fmt.Errorf("apply tags to record %d: %w", o.record.ID, err)
		}
		result.Tagged++
	}

	log.Printf("[Tagger] %d tagged, %d parse errors, %d call errors",
		result.Tagged, result.ParseErrors, result.CallErrors)
	return result, nil
}
