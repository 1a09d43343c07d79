package llm

import (
	"fmt"
	"strings"
)

// Prompt builders. Each returns the full prompt for one chat call; the
// response contract is stated inline so the parse helpers in types.go can
// stay strict.

// BinaryFilterPrompt asks for a plain yes/no pain verdict on one comment.
func BinaryFilterPrompt(body string) string {
	return fmt.Sprintf(`Is this a PERSONAL problem, frustration, or unmet need the author is experiencing or has experienced? News, opinions about others, jokes, and general discussion do not count.

Comment:
"""
%s
"""

Respond ONLY: {"is_pain": true|false}`, body)
}

// TaggingPrompt asks for topics, persona, and severity for one pain record.
func TaggingPrompt(quote string) string {
	return fmt.Sprintf(`Analyze this complaint and return structured tags.

Complaint:
"""
%s
"""

Return ONLY a JSON object:
{
  "topics": ["3-5 fine-grained topic phrases, 2-4 words each, lowercase"],
  "persona": "who is complaining, e.g. freelance designer, small business owner",
  "severity": "low|medium|high|critical"
}

Severity guide: critical = losing money or customers right now, high = blocking daily work, medium = recurring annoyance, low = minor inconvenience.`, quote)
}

// SynthesisPrompt asks for a product concept for a qualifying cluster.
// prevName/prevTagline are empty on first synthesis; when set, the model
// refines the existing concept instead of inventing a new one.
func SynthesisPrompt(topic string, quotes []string, personas []string, severityHistogram map[string]int, subreddits []string, prevName, prevTagline string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "People keep complaining about: %s\n\n", topic)

	b.WriteString("Representative complaints:\n")
	for i, q := range quotes {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}

	fmt.Fprintf(&b, "\nPersonas affected: %s\n", strings.Join(personas, ", "))
	fmt.Fprintf(&b, "Severity mix: ")
	for _, sev := range []string{"critical", "high", "medium", "low"} {
		if n := severityHistogram[sev]; n > 0 {
			fmt.Fprintf(&b, "%s=%d ", sev, n)
		}
	}
	fmt.Fprintf(&b, "\nCommunities: %s\n", strings.Join(subreddits, ", "))

	if prevName != "" {
		fmt.Fprintf(&b, "\nAn earlier pass named this product %q (%s). The cluster has grown since; refine the concept rather than starting over, keeping the name unless the new complaints clearly outgrow it.\n", prevName, prevTagline)
	}

	b.WriteString(`
Design one focused product that solves this specific pain. Return ONLY a JSON object:
{
  "product_name": "short memorable name",
  "tagline": "one sentence value proposition",
  "how_it_works": "2-3 sentences on the mechanism",
  "target_customer": "the narrowest customer who would pay on day one"
}`)
	return b.String()
}

// TopicMergePrompt asks which canonical topics are duplicates.
func TopicMergePrompt(topics []string) string {
	var b strings.Builder
	b.WriteString("These topic labels came from clustering user complaints. Some describe the same underlying problem with different words.\n\nTopics:\n")
	for _, t := range topics {
		fmt.Fprintf(&b, "- %s\n", t)
	}
	b.WriteString(`
Identify pairs where one topic should be folded into another. Only merge topics that describe the SAME problem, not merely related ones. Prefer the more general label as the target.

Return ONLY a JSON object:
{"merges": [{"from": "topic to remove", "to": "topic to keep"}]}

Return {"merges": []} if nothing should merge.`)
	return b.String()
}

// MarketSizingPrompt asks for a TAM/SAM/SOM estimate for a synthesized
// product concept.
func MarketSizingPrompt(productName, tagline, targetCustomer, topic string, memberCount int) string {
	return fmt.Sprintf(`Estimate the market size for this product idea.

Product: %s
Tagline: %s
Target customer: %s
Underlying pain topic: %s
Evidence: %d distinct complaints mined from Reddit and Hacker News.

Use a bottom-up method where possible (count of target customers x plausible annual price). Be conservative; these are early signals, not validated demand.

Return ONLY a JSON object:
{
  "tam_usd": total addressable market in whole USD,
  "sam_usd": serviceable addressable market in whole USD,
  "som_usd": realistic 3-year obtainable market in whole USD,
  "method": "1-2 sentences on how you computed these",
  "confidence": "low|medium|high",
  "competitors": ["up to 5 existing products in this space"],
  "pricing_model": "e.g. $29/mo subscription",
  "reasoning": "2-3 sentences on the demand evidence"
}`, productName, tagline, targetCustomer, topic, memberCount)
}

// FeaturePrompt asks for a prioritized MVP feature list.
func FeaturePrompt(productName, tagline, howItWorks string, quotes []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s\nTagline: %s\nHow it works: %s\n\nComplaints it must address:\n", productName, tagline, howItWorks)
	for i, q := range quotes {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	b.WriteString(`
List 5-8 features. Classify each as "core" (must ship first), "differentiator" (wins against incumbents), or "delighter" (retention). Priority 1 is highest.

Return ONLY a JSON object:
{"features": [{"name": "...", "description": "...", "feature_type": "core|differentiator|delighter", "priority": 1-5, "effort": "small|medium|large"}]}`)
	return b.String()
}

// LandingPrompt asks for landing-page copy grounded in real complaint
// language.
func LandingPrompt(productName, tagline, targetCustomer string, quotes []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s\nTagline: %s\nTarget customer: %s\n\nReal complaints from potential customers:\n", productName, tagline, targetCustomer)
	for i, q := range quotes {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	b.WriteString(`
Write landing page copy that mirrors the customers' own words. Return ONLY a JSON object:
{
  "headline": "benefit-led headline under 10 words",
  "subheadline": "one sentence expanding the headline",
  "pain_bullets": ["3-4 bullets naming the pains, in the customers' language"],
  "cta_text": "2-4 word call to action"
}`)
	return b.String()
}
