package tools

import (
	"context"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

type RecommendPlanInput struct {
	UserType  string   `json:"user_type"`
	DataUsage string   `json:"data_usage"`
	Budget    *float64 `json:"budget,omitempty"`
}

type UserProfile struct {
	Type   string   `json:"type"`
	Usage  string   `json:"usage"`
	Budget *float64 `json:"budget"`
}

type RecommendPlanOutput struct {
	Status          string      `json:"status"`
	Recommendations []string    `json:"recommendations"`
	UserProfile     UserProfile `json:"user_profile"`
}

func createRecommendPlanTool() tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolRecommendPlan,
			Desc: "Get personalized plan recommendations for a user profile, optionally capped by a monthly budget.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"user_type": {
					Type:     schema.String,
					Enum:     []string{"student", "professional", "family", "business"},
					Required: true,
				},
				"data_usage": {
					Type:     schema.String,
					Enum:     []string{"low", "medium", "high"},
					Required: true,
				},
				"budget": {
					Type: schema.Number,
					Desc: "Maximum budget per month in rupees",
				},
			}),
		},
		func(ctx context.Context, in *RecommendPlanInput) (*RecommendPlanOutput, error) {
			return recommendPlan(in.UserType, in.DataUsage, in.Budget), nil
		},
	)
}

// recommendPlan looks the profile up in the fixed table. A positive budget
// keeps only suggestions priced within it; if none survive the cheapest plan
// is suggested instead.
func recommendPlan(userType, usage string, budget *float64) *RecommendPlanOutput {
	userType = strings.ToLower(strings.TrimSpace(userType))
	usage = strings.ToLower(strings.TrimSpace(usage))

	plans, ok := recommendations[profileKey{userType, usage}]
	if !ok {
		plans = defaultRecommendations
	}

	if budget != nil && *budget > 0 {
		filtered := make([]string, 0, len(plans))
		for _, p := range plans {
			if price, ok := suggestionPrice(p); ok && price <= *budget {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) == 0 {
			filtered = withinBudgetFallback
		}
		plans = filtered
	}

	return &RecommendPlanOutput{
		Status:          StatusSuccess,
		Recommendations: append([]string(nil), plans...),
		UserProfile:     UserProfile{Type: userType, Usage: usage, Budget: budget},
	}
}

func suggestionPrice(suggestion string) (float64, bool) {
	n := firstNumber.FindString(suggestion)
	if n == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(n, 64)
	return v, err == nil
}
