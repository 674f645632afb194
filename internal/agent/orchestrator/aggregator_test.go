package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	errx "github.com/plan-assist-core/server/internal/core/error"
)

// MockPlanTools is a mock implementation of PlanTools.
type MockPlanTools struct {
	mock.Mock
}

func (m *MockPlanTools) SearchPlans(ctx context.Context, query, planType string) (string, error) {
	args := m.Called(ctx, query, planType)
	return args.String(0), args.Error(1)
}

func (m *MockPlanTools) GetPlanDetails(ctx context.Context, planName string) (string, error) {
	args := m.Called(ctx, planName)
	return args.String(0), args.Error(1)
}

func (m *MockPlanTools) ComparePlans(ctx context.Context, plan1, plan2 string) (string, error) {
	args := m.Called(ctx, plan1, plan2)
	return args.String(0), args.Error(1)
}

func (m *MockPlanTools) RecommendPlan(ctx context.Context, userType, usage string, budget *float64) (string, error) {
	args := m.Called(ctx, userType, usage, budget)
	return args.String(0), args.Error(1)
}

func (m *MockPlanTools) Check5GAvailability(ctx context.Context, location string) (string, error) {
	args := m.Called(ctx, location)
	return args.String(0), args.Error(1)
}

func TestToolAggregator_PlanDetailsForBarePrice(t *testing.T) {
	tools := new(MockPlanTools)
	tools.On("GetPlanDetails", mock.Anything, "299").Return("Plan: ₹299", nil).Once()

	bundle := NewToolAggregator(tools).Gather(context.Background(), "299")

	assert.Equal(t, []string{"plan_299"}, bundle.Labels())
	v, ok := bundle.Get("plan_299")
	require.True(t, ok)
	assert.Equal(t, "Plan: ₹299", v)
	tools.AssertExpectations(t)
}

func TestToolAggregator_ComparisonUsesFirstTwoNumbers(t *testing.T) {
	tools := new(MockPlanTools)
	tools.On("GetPlanDetails", mock.Anything, mock.Anything).Return("details", nil)
	tools.On("ComparePlans", mock.Anything, "599", "199").Return("Comparison: 599 vs 199", nil).Once()

	bundle := NewToolAggregator(tools).Gather(context.Background(), "compare 599 with 199 and 399")

	assert.Equal(t, []string{"plan_599", "plan_199", "plan_399", "comparison"}, bundle.Labels())
	tools.AssertNumberOfCalls(t, "GetPlanDetails", 3)
	tools.AssertExpectations(t)
}

func TestToolAggregator_ComparisonWithPopularAlternative(t *testing.T) {
	tests := []struct {
		query   string
		plan    string
		alt     string
		compare bool
	}{
		{"is 199 better", "199", "299", true},
		{"is 299 better", "299", "399", true},
		{"is 399 better", "399", "599", true},
		{"is 1499 better", "1499", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			tools := new(MockPlanTools)
			tools.On("GetPlanDetails", mock.Anything, tt.plan).Return("details", nil)
			if tt.compare {
				tools.On("ComparePlans", mock.Anything, tt.plan, tt.alt).Return("comparison", nil).Once()
			}

			bundle := NewToolAggregator(tools).Gather(context.Background(), tt.query)

			_, ok := bundle.Get(LabelComparison)
			assert.Equal(t, tt.compare, ok)
			tools.AssertExpectations(t)
			if !tt.compare {
				tools.AssertNotCalled(t, "ComparePlans", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestToolAggregator_NumbersOutsideRangeAreIgnored(t *testing.T) {
	tools := new(MockPlanTools)
	tools.On("GetPlanDetails", mock.Anything, "5000").Return("details", nil).Once()

	bundle := NewToolAggregator(tools).Gather(context.Background(), "099 5000 9999")

	assert.Equal(t, []string{"plan_5000"}, bundle.Labels())
	tools.AssertExpectations(t)
}

func TestToolAggregator_FiveGCity(t *testing.T) {
	tests := []struct {
		query string
		city  string
	}{
		{"is 5g live in pune", "Pune"},
		{"five g near me", "Mumbai"},
		{"5G in DELHI?", "Delhi"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			tools := new(MockPlanTools)
			tools.On("Check5GAvailability", mock.Anything, tt.city).Return("5G Status", nil).Once()

			bundle := NewToolAggregator(tools).Gather(context.Background(), tt.query)

			assert.Equal(t, []string{Label5GAvailability}, bundle.Labels())
			tools.AssertExpectations(t)
		})
	}
}

func TestToolAggregator_Recommendation(t *testing.T) {
	budget := func(v float64) *float64 { return &v }

	tests := []struct {
		name     string
		query    string
		userType string
		usage    string
		budget   *float64
	}{
		{"student heavy budget", "for a college student, heavy usage, under ₹300", "student", "high", budget(300)},
		{"general intent only", "suggest something nice", "general", "medium", nil},
		{"family light", "household with light use below 700", "family", "low", budget(700)},
		{"professional max budget", "office job, max 999", "professional", "medium", budget(999)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tools := new(MockPlanTools)
			tools.On("GetPlanDetails", mock.Anything, mock.Anything).Return("", errx.WrapTool("get_plan_details", errx.ErrNotFound)).Maybe()
			tools.On("RecommendPlan", mock.Anything, tt.userType, tt.usage, tt.budget).Return("Based on your profile", nil).Once()

			bundle := NewToolAggregator(tools).Gather(context.Background(), tt.query)

			assert.Equal(t, []string{LabelRecommendation}, bundle.Labels())
			tools.AssertExpectations(t)
		})
	}
}

func TestToolAggregator_AllChecksInOrder(t *testing.T) {
	tools := new(MockPlanTools)
	q := "jio student plan with unlimited 5g in chennai, compare 299 vs 399"
	tools.On("SearchPlans", mock.Anything, q, "all").Return("Found plans", nil).Twice()
	tools.On("GetPlanDetails", mock.Anything, "299").Return("plan 299", nil).Once()
	tools.On("GetPlanDetails", mock.Anything, "399").Return("plan 399", nil).Once()
	tools.On("ComparePlans", mock.Anything, "299", "399").Return("comparison", nil).Once()
	tools.On("Check5GAvailability", mock.Anything, "Chennai").Return("5G Status", nil).Once()
	tools.On("RecommendPlan", mock.Anything, "student", "medium", (*float64)(nil)).Return("recs", nil).Once()

	bundle := NewToolAggregator(tools).Gather(context.Background(), q)

	assert.Equal(t, []string{
		LabelPlanSearch, "plan_299", "plan_399", LabelComparison,
		Label5GAvailability, LabelRecommendation, LabelFeatureSearch,
	}, bundle.Labels())
	tools.AssertExpectations(t)
}

func TestToolAggregator_FailuresOmitOnlyTheirEntry(t *testing.T) {
	tools := new(MockPlanTools)
	q := "best jio plan 299"
	tools.On("SearchPlans", mock.Anything, q, "all").Return("", errors.New("index offline")).Once()
	tools.On("GetPlanDetails", mock.Anything, "299").Return("plan 299", nil).Once()
	tools.On("RecommendPlan", mock.Anything, "general", "medium", (*float64)(nil)).Return("", errx.WrapTool("recommend_plan", errx.ErrNotFound)).Once()

	bundle := NewToolAggregator(tools).Gather(context.Background(), q)

	assert.Equal(t, []string{"plan_299"}, bundle.Labels())
	tools.AssertExpectations(t)
}

type panickyTools struct {
	MockPlanTools
}

func (p *panickyTools) GetPlanDetails(context.Context, string) (string, error) {
	panic("boom")
}

func TestToolAggregator_PanicIsContained(t *testing.T) {
	tools := &panickyTools{}
	tools.On("Check5GAvailability", mock.Anything, "Mumbai").Return("5G Status", nil).Once()

	var labels []string
	require.NotPanics(t, func() {
		bundle := NewToolAggregator(tools).Gather(context.Background(), "299 5g")
		labels = bundle.Labels()
	})
	assert.Equal(t, []string{Label5GAvailability}, labels)
}

func TestToolAggregator_EmptyResultIsOmitted(t *testing.T) {
	tools := new(MockPlanTools)
	tools.On("GetPlanDetails", mock.Anything, "799").Return("   ", nil).Once()

	bundle := NewToolAggregator(tools).Gather(context.Background(), "799")

	assert.Equal(t, 0, bundle.Len())
}

func TestToolAggregator_NilTools(t *testing.T) {
	bundle := NewToolAggregator(nil).Gather(context.Background(), "compare 299 vs 399")
	assert.Equal(t, 0, bundle.Len())
}
