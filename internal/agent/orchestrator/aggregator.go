package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/plan-assist-core/server/internal/agent/model"
	errx "github.com/plan-assist-core/server/internal/core/error"
	logx "github.com/plan-assist-core/server/pkg/logger"
)

// PlanTools is the deterministic plan-catalog surface the aggregator draws on.
// Every call returns rendered text; a lookup that finds nothing returns an
// error wrapping errx.ErrNotFound.
type PlanTools interface {
	SearchPlans(ctx context.Context, query, planType string) (string, error)
	GetPlanDetails(ctx context.Context, planName string) (string, error)
	ComparePlans(ctx context.Context, plan1, plan2 string) (string, error)
	RecommendPlan(ctx context.Context, userType, usage string, budget *float64) (string, error)
	Check5GAvailability(ctx context.Context, location string) (string, error)
}

// Tool bundle labels.
const (
	LabelPlanSearch     = "plan_search"
	LabelComparison     = "comparison"
	Label5GAvailability = "5g_availability"
	LabelRecommendation = "recommendation"
	LabelFeatureSearch  = "feature_search"
	labelPlanPrefix     = "plan_"
)

// PlanLabel is the bundle label for a plan detail lookup.
func PlanLabel(planID string) string {
	return labelPlanPrefix + planID
}

const (
	minPlanPrice   = 100
	maxPlanPrice   = 5000
	defaultCity    = "Mumbai"
	searchAllPlans = "all"
)

var (
	planKeywords           = []string{"plan", "mobile", "recharge", "prepaid", "postpaid", "fiber", "broadband", "jio", "data", "validity"}
	comparisonKeywords     = []string{"compare", "vs", "versus", "better", "difference", "which"}
	fiveGKeywords          = []string{"5g", "five g"}
	recommendationKeywords = []string{"recommend", "suggest", "best", "good", "suitable", "ideal"}
	featureKeywords        = []string{"unlimited", "ott", "netflix"}
	highUsageKeywords      = []string{"heavy", "lot", "high"}
	lowUsageKeywords       = []string{"light", "basic", "low"}

	// popularAlternatives pairs a single mentioned plan with the plan it is
	// usually compared against.
	popularAlternatives = map[string]string{"199": "299", "299": "399", "399": "599"}

	fiveGCities = []string{
		"mumbai", "delhi", "bangalore", "chennai", "kolkata",
		"hyderabad", "pune", "ahmedabad", "jaipur", "lucknow",
		"kanpur", "nagpur", "visakhapatnam", "bhopal", "patna",
	}

	userTypeIndicators = []struct {
		userType string
		keywords []string
	}{
		{"student", []string{"student", "college", "university", "study", "campus"}},
		{"family", []string{"family", "home", "parents", "kids", "household"}},
		{"professional", []string{"professional", "work", "office", "business", "job", "meeting"}},
		{"business", []string{"business", "company", "enterprise", "corporate", "startup"}},
	}

	planIDPattern  = regexp.MustCompile(`\d{3,4}`)
	budgetPatterns = []*regexp.Regexp{
		regexp.MustCompile(`under\s*₹?\s*(\d{3,4})`),
		regexp.MustCompile(`budget\s*₹?\s*(\d{3,4})`),
		regexp.MustCompile(`less\s*than\s*₹?\s*(\d{3,4})`),
		regexp.MustCompile(`max\s*₹?\s*(\d{3,4})`),
		regexp.MustCompile(`below\s*₹?\s*(\d{3,4})`),
	}
)

// extractPlanIDs is the plan-identifier pass: every 3-4 digit number in the
// query that falls inside the catalog price range, in order of appearance.
func extractPlanIDs(query string) []string {
	var ids []string
	for _, m := range planIDPattern.FindAllString(query, -1) {
		n, err := strconv.Atoi(m)
		if err != nil || n < minPlanPrice || n > maxPlanPrice {
			continue
		}
		ids = append(ids, m)
	}
	return ids
}

// extractBudget is the budget pass: an amount introduced by under, budget,
// less than, max or below. Returns nil when no budget is stated.
func extractBudget(lower string) *float64 {
	for _, p := range budgetPatterns {
		if m := p.FindStringSubmatch(lower); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				return &v
			}
		}
	}
	return nil
}

func detectUserType(lower string) string {
	for _, ind := range userTypeIndicators {
		if containsAny(lower, ind.keywords) {
			return ind.userType
		}
	}
	return ""
}

func detectUsage(lower string) string {
	switch {
	case containsAny(lower, highUsageKeywords):
		return "high"
	case containsAny(lower, lowUsageKeywords):
		return "low"
	}
	return "medium"
}

func detectCity(lower string) string {
	for _, c := range fiveGCities {
		if strings.Contains(lower, c) {
			return strings.ToUpper(c[:1]) + c[1:]
		}
	}
	return defaultCity
}

// ToolAggregator decides which catalog tools a query needs and collects their
// results. It holds no state between queries.
type ToolAggregator struct {
	tools PlanTools
}

func NewToolAggregator(tools PlanTools) *ToolAggregator {
	return &ToolAggregator{tools: tools}
}

// Gather runs every check in fixed order and returns the labeled results.
// A failing tool call only drops its own entry.
func (a *ToolAggregator) Gather(ctx context.Context, query string) model.ToolBundle {
	var bundle model.ToolBundle
	if a == nil || a.tools == nil {
		return bundle
	}
	lower := strings.ToLower(query)

	// 1. plan search
	if containsAny(lower, planKeywords) {
		a.collect(&bundle, LabelPlanSearch, func() (string, error) {
			return a.tools.SearchPlans(ctx, query, searchAllPlans)
		})
	}

	// 2. plan details for each price mentioned
	planIDs := extractPlanIDs(query)
	for _, id := range planIDs {
		a.collect(&bundle, PlanLabel(id), func() (string, error) {
			return a.tools.GetPlanDetails(ctx, id)
		})
	}

	// 3. comparison
	if containsAny(lower, comparisonKeywords) {
		switch {
		case len(planIDs) >= 2:
			a.collect(&bundle, LabelComparison, func() (string, error) {
				return a.tools.ComparePlans(ctx, planIDs[0], planIDs[1])
			})
		case len(planIDs) == 1:
			if alt, ok := popularAlternatives[planIDs[0]]; ok {
				a.collect(&bundle, LabelComparison, func() (string, error) {
					return a.tools.ComparePlans(ctx, planIDs[0], alt)
				})
			}
		}
	}

	// 4. 5G coverage
	if containsAny(lower, fiveGKeywords) {
		city := detectCity(lower)
		a.collect(&bundle, Label5GAvailability, func() (string, error) {
			return a.tools.Check5GAvailability(ctx, city)
		})
	}

	// 5. recommendation
	userType := detectUserType(lower)
	if userType != "" || containsAny(lower, recommendationKeywords) {
		if userType == "" {
			userType = "general"
		}
		usage := detectUsage(lower)
		budget := extractBudget(lower)
		a.collect(&bundle, LabelRecommendation, func() (string, error) {
			return a.tools.RecommendPlan(ctx, userType, usage, budget)
		})
	}

	// 6. feature search
	if containsAny(lower, featureKeywords) {
		a.collect(&bundle, LabelFeatureSearch, func() (string, error) {
			return a.tools.SearchPlans(ctx, query, searchAllPlans)
		})
	}

	logx.Debug().Strs("labels", bundle.Labels()).Msg("Tool context gathered")
	return bundle
}

// collect runs one tool call and records its result under label. Errors,
// panics and empty results leave the bundle untouched.
func (a *ToolAggregator) collect(bundle *model.ToolBundle, label string, call func() (string, error)) {
	out, err := func() (out string, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("tool panic: %v", r)
			}
		}()
		return call()
	}()
	if errors.Is(err, errx.ErrNotFound) {
		logx.Debug().Str("label", label).Msg("Tool lookup found nothing")
		return
	}
	if err != nil {
		logx.Warn().Err(err).Str("label", label).Msg("Tool call failed; entry omitted")
		return
	}
	if strings.TrimSpace(out) == "" {
		return
	}
	bundle.Set(label, out)
}
