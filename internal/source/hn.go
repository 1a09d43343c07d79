package source

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"golang.org/x/time/rate"

	"github.com/painscope/opportunity-engine/pkg/models"
)

// Hacker News client backed by the Algolia search API. HN comments are
// folded into the raw comment table with synthesized "hn_<objectID>" ids
// and subreddit "hackernews" so the downstream pipeline treats both
// sources uniformly.

const hnBaseURL = "https://hn.algolia.com/api/v1"

type HNClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	baseURL    string
}

func NewHNClient(userAgent string, minInterval time.Duration) *HNClient {
	return &HNClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(minInterval), 1),
		userAgent:  userAgent,
		baseURL:    hnBaseURL,
	}
}

type hnSearchResponse struct {
	Hits []hnHit `json:"hits"`
}

type hnHit struct {
	ObjectID    string `json:"objectID"`
	CommentText string `json:"comment_text"`
	StoryID     int64  `json:"story_id"`
	StoryTitle  string `json:"story_title"`
	Author      string `json:"author"`
	CreatedAtI  int64  `json:"created_at_i"`
	Points      int    `json:"points"`
	ParentID    int64  `json:"parent_id"`
}

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// SearchComments runs a full-text comment search and returns filtered
// records ready for the raw store.
func (c *HNClient) SearchComments(ctx context.Context, query string, limit int) ([]models.RawComment, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	endpoint := fmt.Sprintf("%s/search?query=%s&tags=comment&hitsPerPage=%d",
		c.baseURL, url.QueryEscape(query), limit)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hn search returned status %d", resp.StatusCode)
	}

	var result hnSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	comments := make([]models.RawComment, 0, len(result.Hits))
	for _, hit := range result.Hits {
		body := cleanHNBody(hit.CommentText)
		if !KeepCommentBody(body) {
			continue
		}
		comments = append(comments, models.RawComment{
			ID:         "hn_" + hit.ObjectID,
			PostID:     fmt.Sprintf("hn_story_%d", hit.StoryID),
			ParentID:   fmt.Sprintf("hn_%d", hit.ParentID),
			Body:       body,
			Author:     hit.Author,
			CreatedUTC: hit.CreatedAtI,
			Score:      hit.Points,
			PostTitle:  hit.StoryTitle,
			Subreddit:  "hackernews",
		})
	}
	return comments, nil
}

// cleanHNBody strips the markup Algolia embeds in comment_text.
func cleanHNBody(s string) string {
	s = htmlTagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return normalizeSpace(s)
}

func normalizeSpace(s string) string {
	fields := make([]byte, 0, len(s))
	space := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			space = len(fields) > 0
			continue
		}
		if space {
			fields = append(fields, ' ')
			space = false
		}
		fields = append(fields, ch)
	}
	return string(fields)
}
