package orchestrator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/plan-assist-core/server/internal/agent/model"
	logx "github.com/plan-assist-core/server/pkg/logger"
)

// QuestionPicker chooses one clarifying question from a category's pool.
type QuestionPicker interface {
	Pick(pool []string) string
}

// PickerFunc adapts a function to QuestionPicker.
type PickerFunc func(pool []string) string

func (f PickerFunc) Pick(pool []string) string { return f(pool) }

// RandomPicker picks uniformly at random.
var RandomPicker = PickerFunc(func(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[rand.IntN(len(pool))]
})

// FirstPicker always picks the first question.
var FirstPicker = PickerFunc(func(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[0]
})

type followUpRule struct {
	category    string
	patterns    []*regexp.Regexp
	questions   []string
	contextType model.ContextType
}

func patterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

const categoryVaguePlan = "vague_plan"

// followUpRules is matched in order against the normalized query; the first
// matching category wins.
var followUpRules = []followUpRule{
	{
		category: categoryVaguePlan,
		patterns: patterns(`^plan$`, `^best plan$`, `^good plan$`, `^plans$`, `^recharge$`, `^mobile plan$`, `^jio plan$`),
		questions: []string{
			"I'd be happy to help you find the perfect plan! Could you tell me:\n• What's your budget range? (e.g., under ₹300, ₹300-500)\n• How much data do you typically use? (light: <1GB, medium: 1-2GB, heavy: 3GB+)\n• Are you a student, professional, or looking for family plans?",
			"To recommend the best plan, could you share your requirements?\n• Budget: ₹___ \n• Primary use: Work/Study/Entertainment?\n• Current data usage per day?",
		},
		contextType: model.ContextPlanRecommendation,
	},
	{
		category: "incomplete_comparison",
		patterns: patterns(`^compare$`, `^comparison$`, `^which is better$`, `^compare plans$`, `^vs$`),
		questions: []string{
			"I can help you compare plans! Which specific plans would you like to compare?\n• For example: 'Compare 299 vs 399'\n• Or tell me your budget and I'll compare suitable options",
			"Which plans should I compare for you?\n• Popular comparisons: ₹299 vs ₹399, ₹199 vs ₹299\n• Or specify any two plan prices",
		},
		contextType: model.ContextComparison,
	},
	{
		category: "missing_location",
		patterns: patterns(`^5g$`, `^5g availability$`, `^is 5g available$`, `^check 5g$`, `^5g coverage$`),
		questions: []string{
			"I'll check 5G availability for you! Which city are you asking about?\n• Major cities with 5G: Mumbai, Delhi, Bangalore, Chennai, Kolkata\n• Just tell me your city name",
			"To check 5G coverage, please specify your location:\n• City: ___\n• Or share your area/region",
		},
		contextType: model.Context5GCheck,
	},
	{
		category: "unclear_budget",
		patterns: patterns(`cheap`, `cheapest`, `affordable`, `budget plan`, `economical`, `low cost`),
		questions: []string{
			"I'll find you the most affordable option! What's your maximum budget?\n• Under ₹200?\n• ₹200-300?\n• ₹300-500?",
			"To find the best budget plan, could you specify:\n• Maximum amount: ₹___\n• Minimum data needed: ___GB/day",
		},
		contextType: model.ContextBudgetPlan,
	},
	{
		category: "missing_user_type",
		patterns: patterns(`^recommend`, `^suggest`, `^what should i`, `^which plan for me`, `^best for me`),
		questions: []string{
			"I'll recommend the perfect plan for you! Please tell me:\n• Are you a: Student/Professional/Family user?\n• Daily data usage: Light (<1GB), Medium (1-2GB), Heavy (3GB+)?\n• Budget preference?",
			"To personalize my recommendation:\n• Your usage type: Work/Study/Entertainment/General?\n• How many connections do you need?\n• Any specific features needed (5G, OTT apps)?",
		},
		contextType: model.ContextRecommendation,
	},
	{
		category: "vague_problem",
		patterns: patterns(`^help$`, `^i need help$`, `^assist`, `^support$`, `^issue$`, `^problem$`),
		questions: []string{
			"I'm here to help! What would you like assistance with?\n• Finding a new plan?\n• Comparing existing plans?\n• Understanding plan benefits?\n• 5G availability?\n• JioFiber broadband?",
			"How can I assist you today?\n• 📱 Mobile plans and recharges\n• 🏠 JioFiber broadband\n• 📊 Plan comparisons\n• 💡 Recommendations\nPlease tell me more!",
		},
		contextType: model.ContextGeneralHelp,
	},
}

// Detection is a positive follow-up match.
type Detection struct {
	Category    string
	Question    string
	ContextType model.ContextType
}

type FollowUpOption func(*FollowUpManager)

// WithQuestionPicker replaces the random question choice.
func WithQuestionPicker(p QuestionPicker) FollowUpOption {
	return func(m *FollowUpManager) { m.picker = p }
}

// WithFollowUpClock replaces time.Now for created_at stamps and expiry.
func WithFollowUpClock(now func() time.Time) FollowUpOption {
	return func(m *FollowUpManager) { m.now = now }
}

// FollowUpManager owns the per-session clarification state. A session is
// either clear or waiting on exactly one answer; the next message always
// resolves it.
type FollowUpManager struct {
	repo   model.FollowUpRepository
	rules  []followUpRule
	picker QuestionPicker
	now    func() time.Time
}

func NewFollowUpManager(repo model.FollowUpRepository, opts ...FollowUpOption) *FollowUpManager {
	m := &FollowUpManager{
		repo:   repo,
		rules:  followUpRules,
		picker: RandomPicker,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Detect reports whether query is too vague to answer without a clarifying
// question.
func (m *FollowUpManager) Detect(query string) (Detection, bool) {
	q := normalize(query)

	for _, rule := range m.rules {
		for _, p := range rule.patterns {
			if p.MatchString(q) {
				return Detection{
					Category:    rule.category,
					Question:    m.picker.Pick(rule.questions),
					ContextType: rule.contextType,
				}, true
			}
		}
	}

	// short plan queries without any number are treated as vague plan requests
	if len(strings.Fields(query)) <= 2 && !strings.ContainsFunc(query, unicode.IsDigit) {
		if strings.Contains(q, "plan") || strings.Contains(q, "recharge") {
			for _, rule := range m.rules {
				if rule.category == categoryVaguePlan {
					return Detection{
						Category:    rule.category,
						Question:    rule.questions[0],
						ContextType: rule.contextType,
					}, true
				}
			}
		}
	}

	return Detection{}, false
}

// Store records that sessionID is waiting on an answer to originalQuery.
func (m *FollowUpManager) Store(ctx context.Context, sessionID, originalQuery string, contextType model.ContextType) error {
	return m.repo.Save(ctx, sessionID, model.PendingFollowUp{
		OriginalQuery: originalQuery,
		ContextType:   contextType,
		CreatedAt:     m.now(),
	})
}

// Pending returns the session's pending follow-up, or nil.
func (m *FollowUpManager) Pending(ctx context.Context, sessionID string) (*model.PendingFollowUp, error) {
	return m.repo.Get(ctx, sessionID)
}

// Clear drops the session's pending follow-up.
func (m *FollowUpManager) Clear(ctx context.Context, sessionID string) error {
	return m.repo.Delete(ctx, sessionID)
}

// Resolve consumes the session's pending follow-up and merges answer into an
// enhanced query. When nothing is pending it returns a nil pending record and
// the answer unchanged.
func (m *FollowUpManager) Resolve(ctx context.Context, sessionID, answer string) (string, *model.PendingFollowUp, error) {
	pending, err := m.repo.Take(ctx, sessionID)
	if err != nil {
		return answer, nil, fmt.Errorf("take pending follow-up: %w", err)
	}
	if pending == nil {
		return answer, nil, nil
	}
	merged := MergeAnswer(*pending, answer)
	logx.Debug().
		Str("session_id", sessionID).
		Str("context_type", string(pending.ContextType)).
		Str("original_query", pending.OriginalQuery).
		Str("enhanced_query", merged).
		Msg("Resolved follow-up")
	return merged, pending, nil
}

// CleanupExpired removes follow-ups older than maxAge.
func (m *FollowUpManager) CleanupExpired(ctx context.Context, maxAge time.Duration) (int, error) {
	return m.repo.DeleteCreatedBefore(ctx, m.now().Add(-maxAge))
}

// PendingCount returns how many sessions are waiting on an answer.
func (m *FollowUpManager) PendingCount(ctx context.Context) (int, error) {
	return m.repo.Count(ctx)
}

// ====================== Merge rules ======================

// currencyAmount matches an optional rupee sign followed by a 3-4 digit amount.
var currencyAmount = regexp.MustCompile(`₹?(\d{3,4})`)

type usageLabel struct {
	marker string
	label  string
}

// usageLabels is checked in order; the first marker found sets the label.
var usageLabels = []usageLabel{
	{"light", "1GB"}, {"medium", "2GB"}, {"heavy", "3GB"},
	{"<1", "1GB"}, {"1-2", "2GB"}, {"3+", "3GB"},
	{"2gb", "2GB"}, {"3gb", "3GB"},
}

const (
	defaultMergeBudget = "500"
	defaultMergeUsage  = "2GB"
)

// answerAmounts is the amount-extraction pass used on follow-up answers.
func answerAmounts(answer string) []string {
	matches := currencyAmount.FindAllStringSubmatch(answer, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

func answerUserType(lower string) string {
	switch {
	case strings.Contains(lower, "student"):
		return "student"
	case strings.Contains(lower, "professional"), strings.Contains(lower, "work"):
		return "professional"
	case strings.Contains(lower, "family"):
		return "family"
	}
	return "general"
}

// MergeAnswer folds a follow-up answer into an enhanced query according to the
// pending context type. Missing tokens fall back to defaults; it never fails.
func MergeAnswer(pending model.PendingFollowUp, answer string) string {
	lower := strings.ToLower(answer)
	amounts := answerAmounts(answer)

	switch pending.ContextType {
	case model.ContextPlanRecommendation:
		budget := defaultMergeBudget
		if len(amounts) > 0 {
			budget = amounts[0]
		}
		usage := defaultMergeUsage
		for _, u := range usageLabels {
			if strings.Contains(lower, u.marker) {
				usage = u.label
				break
			}
		}
		return fmt.Sprintf("Recommend best %s plan under ₹%s with %s daily data", answerUserType(lower), budget, usage)

	case model.ContextComparison:
		if len(amounts) >= 2 {
			return fmt.Sprintf("Compare ₹%s vs ₹%s plans", amounts[0], amounts[1])
		}
		return fmt.Sprintf("Compare plans: %s", answer)

	case model.Context5GCheck:
		return fmt.Sprintf("Check 5G availability in %s", answer)

	case model.ContextBudgetPlan:
		if len(amounts) > 0 {
			return fmt.Sprintf("Best plans under ₹%s", amounts[0])
		}
		return fmt.Sprintf("Cheapest plans %s", answer)
	}

	return fmt.Sprintf("%s - %s", pending.OriginalQuery, answer)
}
