package pipeline

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/painscope/opportunity-engine/pkg/models"
)

// Competitor mining: a fixed vertical map, swept three verticals per run
// via the persisted rotating cursor in processing_state.vertical_index.

type vertical struct {
	name       string
	products   []string
	subreddits []string
}

var verticalMap = []vertical{
	{"accounting", []string{"Xero", "MYOB", "QuickBooks", "FreshBooks"}, []string{"Accounting", "Bookkeeping", "smallbusiness"}},
	{"scheduling", []string{"Calendly", "Acuity", "ServiceM8", "Jobber"}, []string{"smallbusiness", "sweatystartup"}},
	{"ecommerce", []string{"Shopify", "WooCommerce", "Square", "BigCommerce"}, []string{"ecommerce", "shopify", "smallbusiness"}},
	{"crm", []string{"HubSpot", "Salesforce", "Pipedrive", "Zoho"}, []string{"sales", "CRM", "startups"}},
	{"project_management", []string{"Asana", "Monday", "Trello", "ClickUp", "Jira"}, []string{"projectmanagement", "agile"}},
	{"payments", []string{"Stripe", "PayPal", "Square", "GoCardless"}, []string{"stripe", "smallbusiness", "SaaS"}},
	{"website_builders", []string{"Wix", "Squarespace", "Webflow", "WordPress"}, []string{"webdev", "WebDesign"}},
	{"email_marketing", []string{"Mailchimp", "Klaviyo", "ConvertKit", "ActiveCampaign"}, []string{"marketing", "Emailmarketing"}},
}

const verticalsPerRun = 3

var complaintQueries = []string{
	"%s problems",
	"%s alternative",
	"frustrated with %s",
}

var negativeWords = []string{
	"hate", "terrible", "awful", "worst", "useless", "broken", "scam",
	"cancel", "refund", "switching away", "garbage",
}

var frustratedWords = []string{
	"frustrat", "annoying", "annoyed", "disappointing", "slow", "clunky",
	"confusing", "expensive", "overpriced", "buggy", "wish", "missing",
	"lacking", "painful",
}

var featureGapPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)i wish (?:it|they|there was)?[^.!?\n]{5,120}`),
	regexp.MustCompile(`(?i)(?:it'?s|they'?re)? ?missing [^.!?\n]{5,120}`),
	regexp.MustCompile(`(?i)(?:there'?s )?no way to [^.!?\n]{5,120}`),
	regexp.MustCompile(`(?i)doesn'?t (?:let you|support|have) [^.!?\n]{5,120}`),
	regexp.MustCompile(`(?i)lacks? (?:a |an |any )?[^.!?\n]{5,120}`),
	regexp.MustCompile(`(?i)if only (?:it|they) [^.!?\n]{5,120}`),
}

// MineResult summarizes one competitor-mining run.
type MineResult struct {
	Verticals   []string `json:"verticals"`
	Mentions    int      `json:"mentions"`
	FeatureGaps int      `json:"feature_gaps"`
	FetchErrors int      `json:"fetch_errors"`
}

// RunCompetitorMiner sweeps the next window of verticals, searching each
// vertical's communities and HN for complaints about its named products.
// Mentions are deduped by source URL at the store.
func (p *Pipeline) RunCompetitorMiner(ctx context.Context) (MineResult, error) {
	next, err := p.store.IncrementState(ctx, "vertical_index", verticalsPerRun)
	if err != nil {
		return MineResult{}, fmt.Errorf("advance vertical cursor: %w", err)
	}
	start := (next - verticalsPerRun) % len(verticalMap)
	if start < 0 {
		start += len(verticalMap)
	}

	var result MineResult
	for i := 0; i < verticalsPerRun; i++ {
		v := verticalMap[(start+i)%len(verticalMap)]
		result.Verticals = append(result.Verticals, v.name)

		mentions, gaps, errs, err := p.mineVertical(ctx, v)
		result.Mentions += mentions
		result.FeatureGaps += gaps
		result.FetchErrors += errs
		if err != nil {
			return result, err
		}
	}

	log.Printf("[Competitors] %v: %d mentions (%d with feature gaps), %d fetch errors",
		result.Verticals, result.Mentions, result.FeatureGaps, result.FetchErrors)
	return result, nil
}

func (p *Pipeline) mineVertical(ctx context.Context, v vertical) (mentions, gaps, fetchErrors int, err error) {
	for _, product := range v.products {
		// Reddit: complaint-flavored search inside the vertical's own
		// communities plus the Australia-wide community.
		for _, sub := range append(v.subreddits, "australia") {
			posts, err := p.reddit.FetchSubredditListing(ctx, sub, "new", "", 25)
			if err != nil {
				fetchErrors++
				continue
			}
			for _, post := range posts {
				text := post.Title + " " + post.Body
				if !mentionsProduct(text, product) {
					continue
				}
				m := buildMention(product, v.name, post.Subreddit, text,
					post.Author, post.Permalink, post.Score)
				if m == nil {
					continue
				}
				inserted, err := p.store.InsertCompetitorMention(ctx, *m)
				if err != nil {
					return mentions, gaps, fetchErrors, fmt.Errorf("insert mention: %w", err)
				}
				if inserted {
					mentions++
					if m.FeatureGap != "" {
						gaps++
					}
				}
			}
		}

		// HN picks up the technical-audience complaints.
		for _, pattern := range complaintQueries {
			comments, err := p.hn.SearchComments(ctx, fmt.Sprintf(pattern, product), 20)
			if err != nil {
				fetchErrors++
				continue
			}
			for _, c := range comments {
				if !mentionsProduct(c.Body, product) {
					continue
				}
				url := "https://news.ycombinator.com/item?id=" + hnItemID(c.ID)
				m := buildMention(product, v.name, "hackernews", c.Body, c.Author, url, c.Score)
				if m == nil {
					continue
				}
				inserted, err := p.store.InsertCompetitorMention(ctx, *m)
				if err != nil {
					return mentions, gaps, fetchErrors, fmt.Errorf("insert hn mention: %w", err)
				}
				if inserted {
					mentions++
					if m.FeatureGap != "" {
						gaps++
					}
				}
			}
		}
	}
	return mentions, gaps, fetchErrors, nil
}

func mentionsProduct(text, product string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(product))
}

// buildMention classifies sentiment and extracts a feature-gap phrase.
// Neutral mentions with no gap carry no signal and are dropped.
func buildMention(product, verticalName, subreddit, text, author, sourceURL string, score int) *models.CompetitorMention {
	sentiment := ClassifySentiment(text)
	gap := ExtractFeatureGap(text)
	if sentiment == "neutral" && gap == "" {
		return nil
	}
	return &models.CompetitorMention{
		Product:     product,
		Vertical:    verticalName,
		Subreddit:   subreddit,
		Quote:       truncateQuote(text),
		Author:      author,
		Sentiment:   sentiment,
		FeatureGap:  gap,
		SourceURL:   sourceURL,
		SourceScore: score,
	}
}

// ClassifySentiment buckets a mention by complaint-keyword frequency.
func ClassifySentiment(text string) string {
	lower := strings.ToLower(text)
	negative, frustrated := 0, 0
	for _, w := range negativeWords {
		negative += strings.Count(lower, w)
	}
	for _, w := range frustratedWords {
		frustrated += strings.Count(lower, w)
	}
	switch {
	case negative >= 2 || (negative >= 1 && frustrated >= 2):
		return "negative"
	case negative >= 1 || frustrated >= 1:
		return "frustrated"
	default:
		return "neutral"
	}
}

// ExtractFeatureGap pulls the first wished-for-capability phrase out of a
// complaint, or "" when none matches.
func ExtractFeatureGap(text string) string {
	for _, pattern := range featureGapPatterns {
		if match := pattern.FindString(text); match != "" {
			return strings.TrimSpace(match)
		}
	}
	return ""
}
