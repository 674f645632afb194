package orchestrator

import (
	"strings"

	"github.com/plan-assist-core/server/internal/agent/model"
)

var (
	greetingSet = map[string]struct{}{
		"hi": {}, "hello": {}, "hey": {}, "namaste": {}, "good morning": {}, "good evening": {},
	}
	acknowledgementSet = map[string]struct{}{
		"thanks": {}, "thank you": {}, "bye": {}, "goodbye": {}, "ok": {}, "okay": {},
	}

	// forceToolKeywords keep a query out of the simple tier so it is answered
	// from tools and retrieval.
	forceToolKeywords = []string{
		// prices
		"199", "299", "399", "599", "999", "1499",
		// plan
		"plan", "price", "cost", "rupee", "₹", "recharge",
		"prepaid", "postpaid", "mobile", "fiber", "broadband",
		// service
		"5g", "data", "validity", "gb", "mbps", "speed",
		"unlimited", "calls", "sms", "ott", "apps",
		// action
		"details", "show", "tell", "what", "which", "how",
		"give", "provide", "explain", "list",
		// comparison
		"compare", "versus", "vs", "better", "best", "good",
		"difference", "choose", "recommend", "suggest",
		// user type
		"student", "family", "professional", "business",
		"work", "home", "office",
		// question
		"jio", "available", "offer", "benefit", "feature",
	}

	aggregationTerms = []string{
		"compare", "versus", "vs", "calculate", "design",
		"bundle", "complete solution", "multiple", "all",
	}

	whWords = map[string]struct{}{
		"what": {}, "which": {}, "how": {}, "when": {}, "where": {}, "why": {},
	}
)

// normalize is the form every pattern rule runs against.
func normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// ClassifyComplexity sorts a query into simple, medium or complex.
// Only exact greetings and acknowledgements are simple; anything else defaults
// to medium so it goes through tools instead of a canned reply.
func ClassifyComplexity(query string) model.Complexity {
	q := normalize(query)

	if _, ok := greetingSet[q]; ok && len(strings.Fields(query)) <= 2 {
		return model.ComplexitySimple
	}
	if _, ok := acknowledgementSet[q]; ok {
		return model.ComplexitySimple
	}

	if containsAny(q, forceToolKeywords) {
		if containsAny(q, aggregationTerms) {
			return model.ComplexityComplex
		}
		return model.ComplexityMedium
	}

	if strings.Contains(query, "?") {
		return model.ComplexityMedium
	}
	for _, w := range strings.Fields(q) {
		if _, ok := whWords[w]; ok {
			return model.ComplexityMedium
		}
	}

	return model.ComplexityMedium
}
