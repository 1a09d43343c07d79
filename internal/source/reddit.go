package source

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/painscope/opportunity-engine/pkg/models"
)

// Reddit JSON client. Uses the public listing endpoints (no OAuth); Reddit
// requires a descriptive User-Agent and throttles aggressively, so every
// request goes through a shared per-host limiter.

const redditBaseURL = "https://www.reddit.com"

type RedditClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	baseURL    string
}

// NewRedditClient builds a client that spaces requests at least
// minInterval apart.
func NewRedditClient(userAgent string, minInterval time.Duration) *RedditClient {
	return &RedditClient{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(minInterval), 1),
		userAgent:  userAgent,
		baseURL:    redditBaseURL,
	}
}

// listingEnvelope is the generic Reddit API wrapper: everything is a
// "kind + data" pair, listings nest children of further pairs.
type listingEnvelope struct {
	Kind string      `json:"kind"`
	Data listingData `json:"data"`
}

type listingData struct {
	After    string         `json:"after"`
	Children []listingChild `json:"children"`
}

type listingChild struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// postData mirrors the fields of a t3 (link) thing the engine consumes.
type postData struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	URL         string  `json:"url"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Permalink   string  `json:"permalink"`
	Over18      bool    `json:"over_18"`
	Locked      bool    `json:"locked"`
	Stickied    bool    `json:"stickied"`
	RemovedBy   string  `json:"removed_by_category"`
}

// commentData mirrors a t1 (comment) thing. Replies is either an empty
// string or a nested listing envelope, so it stays raw until the walk.
type commentData struct {
	ID         string          `json:"id"`
	ParentID   string          `json:"parent_id"`
	Body       string          `json:"body"`
	Author     string          `json:"author"`
	Score      int             `json:"score"`
	CreatedUTC float64         `json:"created_utc"`
	Replies    json.RawMessage `json:"replies"`
}

// FetchSubredditListing returns filtered posts from one subreddit listing.
// sort is one of top/hot/new; timeWindow applies to top (day/week/month).
// Failures are the caller's to log; an error always comes with a nil slice.
func (c *RedditClient) FetchSubredditListing(ctx context.Context, sub, sort, timeWindow string, limit int) ([]models.RawPost, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	endpoint := fmt.Sprintf("%s/r/%s/%s.json?limit=%d&raw_json=1", c.baseURL, url.PathEscape(sub), sort, limit)
	if sort == "top" && timeWindow != "" {
		endpoint += "&t=" + url.QueryEscape(timeWindow)
	}

	var envelope listingEnvelope
	if err := c.getJSON(ctx, endpoint, &envelope); err != nil {
		return nil, err
	}

	posts := make([]models.RawPost, 0, len(envelope.Data.Children))
	for _, child := range envelope.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		var p postData
		if err := json.Unmarshal(child.Data, &p); err != nil {
			continue
		}
		if !keepPost(p) {
			continue
		}
		posts = append(posts, models.RawPost{
			ID:          p.ID,
			Subreddit:   p.Subreddit,
			Title:       html.UnescapeString(p.Title),
			Body:        html.UnescapeString(p.Selftext),
			Author:      p.Author,
			CreatedUTC:  int64(p.CreatedUTC),
			Score:       p.Score,
			NumComments: p.NumComments,
			URL:         p.URL,
			Permalink:   c.baseURL + p.Permalink,
			SortType:    sort,
		})
	}
	return posts, nil
}

// keepPost drops NSFW, removed, and locked submissions.
func keepPost(p postData) bool {
	if p.Over18 || p.Locked || p.Stickied {
		return false
	}
	if p.RemovedBy != "" || p.Author == "[deleted]" {
		return false
	}
	return true
}

// FetchPostComments walks a post's comment tree to maxDepth and returns
// the flattened, filtered records.
func (c *RedditClient) FetchPostComments(ctx context.Context, post models.RawPost, limit, maxDepth int) ([]models.RawComment, error) {
	endpoint := fmt.Sprintf("%s/r/%s/comments/%s.json?limit=%d&depth=%d&raw_json=1",
		c.baseURL, url.PathEscape(post.Subreddit), url.PathEscape(post.ID), limit, maxDepth)

	// The comments endpoint returns a two-element array: [post listing,
	// comment listing].
	var envelopes []listingEnvelope
	if err := c.getJSON(ctx, endpoint, &envelopes); err != nil {
		return nil, err
	}
	if len(envelopes) < 2 {
		return []models.RawComment{}, nil
	}

	comments := make([]models.RawComment, 0, limit)
	c.walkComments(envelopes[1].Data.Children, post, 0, maxDepth, &comments)
	return comments, nil
}

// walkComments recurses the reply tree, flattening acceptable comments.
func (c *RedditClient) walkComments(children []listingChild, post models.RawPost, depth, maxDepth int, out *[]models.RawComment) {
	if depth > maxDepth {
		return
	}
	for _, child := range children {
		if child.Kind != "t1" {
			continue // "more" stubs and anything else
		}
		var cd commentData
		if err := json.Unmarshal(child.Data, &cd); err != nil {
			continue
		}

		if KeepCommentBody(cd.Body) {
			*out = append(*out, models.RawComment{
				ID:         cd.ID,
				PostID:     post.ID,
				ParentID:   cd.ParentID,
				Body:       html.UnescapeString(cd.Body),
				Author:     cd.Author,
				CreatedUTC: int64(cd.CreatedUTC),
				Score:      cd.Score,
				PostScore:  post.Score,
				PostTitle:  post.Title,
				Subreddit:  post.Subreddit,
			})
		}

		// Replies is "" for leaves; only descend into real envelopes.
		if len(cd.Replies) > 2 {
			var replies listingEnvelope
			if err := json.Unmarshal(cd.Replies, &replies); err == nil {
				c.walkComments(replies.Data.Children, post, depth+1, maxDepth, out)
			}
		}
	}
}

// KeepCommentBody rejects deleted/removed bodies and anything under 30
// characters — too short to express a usable pain point.
func KeepCommentBody(body string) bool {
	trimmed := strings.TrimSpace(body)
	if trimmed == "[deleted]" || trimmed == "[removed]" {
		return false
	}
	return len(trimmed) >= 30
}

// CommentLimitFor picks the per-post comment fetch budget: busier posts
// get deeper fetches.
func CommentLimitFor(score, numComments int) int {
	switch {
	case score >= 100 || numComments >= 100:
		return 500
	case score >= 50 || numComments >= 50:
		return 300
	case score >= 10 || numComments >= 20:
		return 200
	default:
		return 100
	}
}

func (c *RedditClient) getJSON(ctx context.Context, endpoint string, dest any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reddit returned status %d for %s", resp.StatusCode, endpoint)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
