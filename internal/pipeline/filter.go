package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/painscope/opportunity-engine/internal/llm"
	"github.com/painscope/opportunity-engine/pkg/models"
)

// FilterResult summarizes one binary-filter pass.
type FilterResult struct {
	Processed int `json:"processed"`
	Accepted  int `json:"accepted"`
	Defaulted int `json:"defaulted"`
	Errors    int `json:"errors"`
}

// RunBinaryFilter classifies unprocessed comments as pain / not-pain with
// one small LLM call each. Verdict and processed_at always land together;
// unparseable output defaults to pain so a flaky model never silently
// discards signal.
func (p *Pipeline) RunBinaryFilter(ctx context.Context) (FilterResult, error) {
	comments, err := p.store.UnprocessedComments(ctx, p.cfg.BinaryFilterBatch, minPainQuoteLen)
	if err != nil {
		return FilterResult{}, fmt.Errorf("select unprocessed comments: %w", err)
	}
	if len(comments) == 0 {
		return FilterResult{}, nil
	}

	type verdict struct {
		comment   models.RawComment
		isPain    bool
		defaulted bool
		failed    bool
	}
	verdicts := make([]verdict, len(comments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.LLMWorkers)
	for i, comment := range comments {
		i, comment := i, comment
		g.Go(func() error {
			raw, err := p.llm.Complete(gctx, llm.BinaryFilterPrompt(comment.Body), true)
			if err != nil {
				verdicts[i] = verdict{comment: comment, failed: true}
				return nil // skip the item, keep the batch going
			}
			parsed, defaulted := llm.ParseBinaryFilter(raw)
			verdicts[i] = verdict{comment: comment, isPain: parsed.IsPain, defaulted: defaulted}
			return nil
		})
	}
	_ = g.Wait()

	var result FilterResult
	now := time.Now()
	for _, v := range verdicts {
		if v.comment.ID == "" || v.failed {
			if v.failed {
				result.Errors++
			}
			continue
		}

		if err := p.store.MarkCommentProcessed(ctx, v.comment.ID, v.isPain, now); err != nil {
			return result, fmt.Errorf("mark comment %s: %w", v.comment.ID, err)
		}
		result.Processed++
		if v.defaulted {
			result.Defaulted++
		}

		if v.isPain {
			if _, err := p.store.CreatePainRecord(ctx, painRecordFromComment(v.comment)); err != nil {
				return result, fmt.Errorf("create pain record for %s: %w", v.comment.ID, err)
			}
			result.Accepted++
		}
	}

	if result.Defaulted > 0 {
		if _, err := p.store.IncrementState(ctx, "filter_defaulted_count", result.Defaulted); err != nil {
			return result, fmt.Errorf("bump defaulted counter: %w", err)
		}
	}

	log.Printf("[Filter] %d processed, %d accepted, %d defaulted, %d errors",
		result.Processed, result.Accepted, result.Defaulted, result.Errors)
	return result, nil
}

// painRecordFromComment builds the pain record for an accepted comment.
func painRecordFromComment(c models.RawComment) models.PainRecord {
	sourceType := models.SourceComment
	sourceURL := "https://www.reddit.com/comments/" + c.PostID + "/_/" + c.ID
	if c.Subreddit == "hackernews" {
		sourceType = models.SourceHNComment
		sourceURL = "https://news.ycombinator.com/item?id=" + hnItemID(c.ID)
	}
	return models.PainRecord{
		SourceType:  sourceType,
		SourceID:    c.ID,
		Subreddit:   c.Subreddit,
		RawQuote:    truncateQuote(c.Body),
		Author:      c.Author,
		SourceScore: c.Score,
		SourceURL:   sourceURL,
	}
}

func hnItemID(syntheticID string) string {
	const prefix = "hn_"
	if len(syntheticID) > len(prefix) && syntheticID[:len(prefix)] == prefix {
		return syntheticID[len(prefix):]
	}
	return syntheticID
}
