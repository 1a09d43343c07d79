package pipeline

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/painscope/opportunity-engine/internal/source"
	"github.com/painscope/opportunity-engine/pkg/models"
)

// Ingestion roster. The full list is too large to sweep every tick within
// the rate budget, so each pass takes the next window of subreddits via
// the persisted rotating cursor in processing_state.subreddits_index.
var subredditRoster = []string{
	// founder / small business
	"smallbusiness", "Entrepreneur", "startups", "SaaS", "indiehackers",
	"sweatystartup", "EntrepreneurRideAlong",
	// freelance / services
	"freelance", "WebDesign", "graphic_design", "copywriting", "marketing",
	// trades and local services
	"Accounting", "Bookkeeping", "realtors", "Landlord", "PropertyManagement",
	// tech workers with tool pain
	"webdev", "devops", "ExperiencedDevs", "dataengineering",
	// australia-heavy communities
	"AusFinance", "smallbusinessaus", "australia",
}

const subredditsPerPass = 6

// hnQueries are the standing complaint searches run against HN every tick.
var hnQueries = []string{
	"i wish there was a tool",
	"frustrating workflow",
	"why is there no",
	"biggest pain point",
}

const (
	postsPerListing   = 50
	hnResultsPerQuery = 50
	commentFetchBatch = 20
	minPainQuoteLen   = 30
	maxPainQuoteLen   = 1500
)

// IngestResult summarizes one ingestion pass for logs and trigger
// responses.
type IngestResult struct {
	Subreddits  []string `json:"subreddits"`
	PostsFound  int      `json:"posts_found"`
	PostsNew    int      `json:"posts_new"`
	CommentsNew int      `json:"comments_new"`
	HNComments  int      `json:"hn_comments_new"`
	FetchErrors int      `json:"fetch_errors"`
}

// RunIngest executes one ingestion pass: the next roster window with the
// given sort order, then comment fetches for unfetched posts, then the
// standing HN searches. Fetch failures are logged and skipped; only
// storage errors abort the pass.
func (p *Pipeline) RunIngest(ctx context.Context, sort, timeWindow string) (IngestResult, error) {
	subs, err := p.nextSubredditWindow(ctx)
	if err != nil {
		return IngestResult{}, fmt.Errorf("advance subreddit cursor: %w", err)
	}
	result := IngestResult{Subreddits: subs}

	for _, sub := range subs {
		posts, err := p.reddit.FetchSubredditListing(ctx, sub, sort, timeWindow, postsPerListing)
		if err != nil {
			log.Printf("[Ingest] r/%s %s listing failed: %v", sub, sort, err)
			result.FetchErrors++
			continue
		}
		result.PostsFound += len(posts)
		for _, post := range posts {
			inserted, err := p.store.UpsertPost(ctx, post)
			if err != nil {
				return result, fmt.Errorf("upsert post %s: %w", post.ID, err)
			}
			if inserted {
				result.PostsNew++
			}
		}
	}

	newComments, fetchErrs, err := p.fetchPendingComments(ctx)
	result.CommentsNew = newComments
	result.FetchErrors += fetchErrs
	if err != nil {
		return result, err
	}

	hnNew, err := p.ingestHN(ctx)
	result.HNComments = hnNew
	if err != nil {
		return result, err
	}

	log.Printf("[Ingest] %s pass over %v: %d posts (%d new), %d comments, %d hn, %d fetch errors",
		sort, subs, result.PostsFound, result.PostsNew, result.CommentsNew,
		result.HNComments, result.FetchErrors)
	return result, nil
}

// fetchPendingComments pulls comment trees for posts below the watermark,
// with a small worker pool. The per-host limiter inside the client keeps
// actual request spacing honest regardless of worker count.
func (p *Pipeline) fetchPendingComments(ctx context.Context) (newComments, fetchErrors int, err error) {
	posts, err := p.store.PostsNeedingComments(ctx, commentFetchBatch)
	if err != nil {
		return 0, 0, fmt.Errorf("select posts needing comments: %w", err)
	}

	type fetchOutcome struct {
		post     models.RawPost
		comments []models.RawComment
		err      error
	}
	outcomes := make([]fetchOutcome, len(posts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.RedditWorkers)
	for i, post := range posts {
		i, post := i, post
		g.Go(func() error {
			limit := source.CommentLimitFor(post.Score, post.NumComments)
			comments, err := p.reddit.FetchPostComments(gctx, post, limit, p.cfg.CommentDepthMax)
			outcomes[i] = fetchOutcome{post: post, comments: comments, err: err}
			return nil // fetch failures never cancel sibling fetches
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		if o.post.ID == "" {
			continue
		}
		if o.err != nil {
			log.Printf("[Ingest] comments for %s failed: %v", o.post.ID, o.err)
			fetchErrors++
			continue
		}
		for _, c := range o.comments {
			inserted, err := p.store.UpsertComment(ctx, c)
			if err != nil {
				return newComments, fetchErrors, fmt.Errorf("upsert comment %s: %w", c.ID, err)
			}
			if inserted {
				newComments++
			}
		}
		if err := p.store.SetCommentsFetched(ctx, o.post.ID, len(o.comments)); err != nil {
			return newComments, fetchErrors, fmt.Errorf("set watermark for %s: %w", o.post.ID, err)
		}
	}
	return newComments, fetchErrors, nil
}

func (p *Pipeline) ingestHN(ctx context.Context) (int, error) {
	inserted := 0
	for _, query := range hnQueries {
		comments, err := p.hn.SearchComments(ctx, query, hnResultsPerQuery)
		if err != nil {
			log.Printf("[Ingest] hn search %q failed: %v", query, err)
			continue
		}
		for _, c := range comments {
			ok, err := p.store.UpsertComment(ctx, c)
			if err != nil {
				return inserted, fmt.Errorf("upsert hn comment %s: %w", c.ID, err)
			}
			if ok {
				inserted++
			}
		}
	}
	return inserted, nil
}

// nextSubredditWindow advances the rotating cursor and returns the next
// window of the roster, wrapping around.
func (p *Pipeline) nextSubredditWindow(ctx context.Context) ([]string, error) {
	next, err := p.store.IncrementState(ctx, "subreddits_index", subredditsPerPass)
	if err != nil {
		return nil, err
	}
	start := (next - subredditsPerPass) % len(subredditRoster)
	if start < 0 {
		start += len(subredditRoster)
	}

	window := make([]string, 0, subredditsPerPass)
	for i := 0; i < subredditsPerPass; i++ {
		window = append(window, subredditRoster[(start+i)%len(subredditRoster)])
	}
	return window, nil
}

// truncateQuote bounds a raw quote to the pain-record column limit without
// splitting a rune.
func truncateQuote(s string) string {
	if len(s) <= maxPainQuoteLen {
		return s
	}
	cut := maxPainQuoteLen
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}
