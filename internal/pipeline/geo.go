package pipeline

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
)

const geoBatch = 500

// Region labels.
const (
	RegionAU     = "AU"
	RegionUS     = "US"
	RegionUK     = "UK"
	RegionEU     = "EU"
	RegionGlobal = "GLOBAL"
)

// geoSubreddits maps whitelisted subreddits straight to a region at
// weight 0.9; a community signal outranks any single keyword.
var geoSubreddits = map[string]string{
	"australia":         RegionAU,
	"ausfinance":        RegionAU,
	"smallbusinessaus":  RegionAU,
	"melbourne":         RegionAU,
	"sydney":            RegionAU,
	"brisbane":          RegionAU,
	"perth":             RegionAU,
	"unitedkingdom":     RegionUK,
	"ukpersonalfinance": RegionUK,
	"london":            RegionUK,
	"europe":            RegionEU,
	"eupersonalfinance": RegionEU,
}

type geoPattern struct {
	region  string
	weight  float64
	pattern *regexp.Regexp
}

var geoPatterns = []geoPattern{
	{RegionAU, 0.9, regexp.MustCompile(`(?i)\b(?:ATO|BAS statement|superannuation|centrelink|medicare levy)\b`)},
	{RegionAU, 0.8, regexp.MustCompile(`(?i)\b(?:australia|australian|sydney|melbourne|brisbane|perth|adelaide|AUD)\b`)},
	{RegionAU, 0.5, regexp.MustCompile(`(?i)\b(?:aussie|down under|GST)\b`)},
	{RegionUS, 0.9, regexp.MustCompile(`(?i)\b(?:IRS|401k|sales tax nexus|W-2|1099)\b`)},
	{RegionUS, 0.8, regexp.MustCompile(`(?i)\b(?:america|american|boston|chicago|texas|california|new york|USD)\b`)},
	{RegionUK, 0.9, regexp.MustCompile(`(?i)\b(?:HMRC|national insurance|VAT return)\b`)},
	{RegionUK, 0.8, regexp.MustCompile(`(?i)\b(?:UK|britain|british|london|manchester|GBP)\b`)},
	{RegionEU, 0.8, regexp.MustCompile(`(?i)\b(?:europe|european|germany|france|spain|netherlands|EUR)\b`)},
	{RegionEU, 0.5, regexp.MustCompile(`(?i)\b(?:GDPR|VAT)\b`)},
}

const (
	geoGlobalBase = 0.1
	geoSubWeight  = 0.9
	geoMaxSignals = 5
)

// DetectRegion scores each region from the subreddit whitelist and
// weighted keyword patterns; GLOBAL holds a floor score so no-signal
// records resolve there at low confidence. Returns the winning region,
// confidence capped at 1, and up to 5 deduped matched signals.
func DetectRegion(quote, subreddit string) (region string, confidence float64, signals []string) {
	scores := map[string]float64{RegionGlobal: geoGlobalBase}
	signalSet := make(map[string]bool)
	signals = make([]string, 0, geoMaxSignals)

	addSignal := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || signalSet[s] || len(signals) >= geoMaxSignals {
			return
		}
		signalSet[s] = true
		signals = append(signals, s)
	}

	if r, ok := geoSubreddits[strings.ToLower(subreddit)]; ok {
		scores[r] += geoSubWeight
		addSignal("r/" + strings.ToLower(subreddit))
	}

	for _, gp := range geoPatterns {
		match := gp.pattern.FindString(quote)
		if match == "" {
			continue
		}
		if gp.weight > scores[gp.region] {
			scores[gp.region] = gp.weight
		}
		if r, ok := geoSubreddits[strings.ToLower(subreddit)]; ok && r == gp.region {
			// Stack the keyword on top of the community signal.
			scores[gp.region] = geoSubWeight + gp.weight
		}
		addSignal(match)
	}

	region, confidence = RegionGlobal, scores[RegionGlobal]
	for _, r := range []string{RegionAU, RegionUS, RegionUK, RegionEU} {
		if scores[r] > confidence {
			region, confidence = r, scores[r]
		}
	}
	if confidence > 1 {
		confidence = 1
	}
	return region, confidence, signals
}

// RunGeoTagger resolves a region for every untagged record and refreshes
// the per-region aggregates.
func (p *Pipeline) RunGeoTagger(ctx context.Context) (int, error) {
	tagged := 0
	for {
		records, err := p.store.RecordsNeedingGeo(ctx, geoBatch)
		if err != nil {
			return tagged, fmt.Errorf("select records needing geo: %w", err)
		}
		if len(records) == 0 {
			break
		}

		for _, r := range records {
			region, confidence, signals := DetectRegion(r.RawQuote, r.Subreddit)
			if err := p.store.ApplyGeo(ctx, r.ID, region, confidence, signals); err != nil {
				return tagged, fmt.Errorf("apply geo to record %d: %w", r.ID, err)
			}
			tagged++
		}
	}

	if tagged > 0 {
		if err := p.store.RefreshGeoStats(ctx); err != nil {
			return tagged, fmt.Errorf("refresh geo stats: %w", err)
		}
		log.Printf("[Geo] %d records tagged", tagged)
	}
	return tagged, nil
}
