package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/painscope/opportunity-engine/pkg/models"
)

// Tagged result types for each chat call, with exactly one parse helper
// per type. The model sometimes wraps JSON in markdown fences or leading
// prose even in JSON mode, so every parser scans for the outermost object
// or array before unmarshalling.

// BinaryFilterResult is the yes/no verdict of the pain filter.
type BinaryFilterResult struct {
	IsPain bool `json:"is_pain"`
}

// ParseBinaryFilter returns the verdict plus whether the output failed to
// parse and the verdict was defaulted. The filter errs toward inclusion:
// garbage output means the comment goes through.
func ParseBinaryFilter(raw string) (result BinaryFilterResult, defaulted bool) {
	payload := extractJSON(raw)
	if payload == "" {
		return BinaryFilterResult{IsPain: true}, true
	}
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return BinaryFilterResult{IsPain: true}, true
	}
	return result, false
}

// TaggingResult carries the quality tagger's structured output.
type TaggingResult struct {
	Topics   []string `json:"topics"`
	Persona  string   `json:"persona"`
	Severity string   `json:"severity"`
}

// ParseTagging validates shape and coerces severity to a known value.
func ParseTagging(raw string) (TaggingResult, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return TaggingResult{}, fmt.Errorf("no JSON object in tagger output")
	}
	var result TaggingResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return TaggingResult{}, fmt.Errorf("parse tagger output: %w", err)
	}
	if len(result.Topics) == 0 {
		return TaggingResult{}, fmt.Errorf("tagger returned no topics")
	}
	switch result.Severity {
	case models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical:
	default:
		result.Severity = models.SeverityMedium
	}
	if result.Persona == "" {
		result.Persona = "unknown"
	}
	return result, nil
}

// ProductConcept is the synthesizer's output.
type ProductConcept struct {
	ProductName    string `json:"product_name"`
	Tagline        string `json:"tagline"`
	HowItWorks     string `json:"how_it_works"`
	TargetCustomer string `json:"target_customer"`
}

func ParseProductConcept(raw string) (ProductConcept, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return ProductConcept{}, fmt.Errorf("no JSON object in synthesis output")
	}
	var result ProductConcept
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return ProductConcept{}, fmt.Errorf("parse synthesis output: %w", err)
	}
	if result.ProductName == "" || result.Tagline == "" {
		return ProductConcept{}, fmt.Errorf("synthesis output missing name or tagline")
	}
	return result, nil
}

// TopicMergePlan is the LLM topic-merge pass output: a list of from→to
// directives.
type TopicMergePlan struct {
	Merges []TopicMerge `json:"merges"`
}

type TopicMerge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ParseTopicMergePlan drops self-merges; directive cycle handling is the
// caller's concern since it needs the full plan.
func ParseTopicMergePlan(raw string) (TopicMergePlan, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return TopicMergePlan{}, fmt.Errorf("no JSON in merge-plan output")
	}
	var result TopicMergePlan
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		// Some models return the bare array.
		var merges []TopicMerge
		if err2 := json.Unmarshal([]byte(payload), &merges); err2 != nil {
			return TopicMergePlan{}, fmt.Errorf("parse merge-plan output: %w", err)
		}
		result.Merges = merges
	}
	kept := result.Merges[:0]
	for _, m := range result.Merges {
		if m.From != "" && m.To != "" && m.From != m.To {
			kept = append(kept, m)
		}
	}
	result.Merges = kept
	return result, nil
}

// MarketSizing is the market estimator's output.
type MarketSizing struct {
	TAMUSD       int64    `json:"tam_usd"`
	SAMUSD       int64    `json:"sam_usd"`
	SOMUSD       int64    `json:"som_usd"`
	Method       string   `json:"method"`
	Confidence   string   `json:"confidence"`
	Competitors  []string `json:"competitors"`
	PricingModel string   `json:"pricing_model"`
	Reasoning    string   `json:"reasoning"`
}

func ParseMarketSizing(raw string) (MarketSizing, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return MarketSizing{}, fmt.Errorf("no JSON object in market output")
	}
	var result MarketSizing
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return MarketSizing{}, fmt.Errorf("parse market output: %w", err)
	}
	if result.TAMUSD < 0 || result.SAMUSD < 0 || result.SOMUSD < 0 {
		return MarketSizing{}, fmt.Errorf("market output has negative sizing")
	}
	switch result.Confidence {
	case "low", "medium", "high":
	default:
		result.Confidence = "low"
	}
	return result, nil
}

// FeaturePlan is the feature extractor's output.
type FeaturePlan struct {
	Features []PlannedFeature `json:"features"`
}

type PlannedFeature struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	FeatureType string `json:"feature_type"`
	Priority    int    `json:"priority"`
	Effort      string `json:"effort"`
}

func ParseFeaturePlan(raw string) (FeaturePlan, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return FeaturePlan{}, fmt.Errorf("no JSON in feature output")
	}
	var result FeaturePlan
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		var features []PlannedFeature
		if err2 := json.Unmarshal([]byte(payload), &features); err2 != nil {
			return FeaturePlan{}, fmt.Errorf("parse feature output: %w", err)
		}
		result.Features = features
	}
	kept := result.Features[:0]
	for _, f := range result.Features {
		if f.Name == "" {
			continue
		}
		switch f.FeatureType {
		case "core", "differentiator", "delighter":
		default:
			f.FeatureType = "core"
		}
		switch f.Effort {
		case "small", "medium", "large":
		default:
			f.Effort = "medium"
		}
		if f.Priority < 1 || f.Priority > 5 {
			f.Priority = 3
		}
		kept = append(kept, f)
	}
	result.Features = kept
	return result, nil
}

// LandingCopy is the landing-page generator's output.
type LandingCopy struct {
	Headline    string   `json:"headline"`
	Subheadline string   `json:"subheadline"`
	PainBullets []string `json:"pain_bullets"`
	CTAText     string   `json:"cta_text"`
}

func ParseLandingCopy(raw string) (LandingCopy, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return LandingCopy{}, fmt.Errorf("no JSON object in landing output")
	}
	var result LandingCopy
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return LandingCopy{}, fmt.Errorf("parse landing output: %w", err)
	}
	if result.Headline == "" {
		return LandingCopy{}, fmt.Errorf("landing output missing headline")
	}
	return result, nil
}

// extractJSON returns the outermost JSON object or array embedded in s, or
// "" when neither bracket pair is present.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	objStart := strings.IndexByte(s, '{')
	arrStart := strings.IndexByte(s, '[')
	start := objStart
	end := strings.LastIndexByte(s, '}')
	if objStart == -1 || (arrStart != -1 && arrStart < objStart) {
		start = arrStart
		end = strings.LastIndexByte(s, ']')
	}
	if start == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}
