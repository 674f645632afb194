package tools

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/plan-assist-core/server/internal/agent/model"
)

type GetPlanDetailsInput struct {
	PlanName string `json:"plan_name"`
}

type GetPlanDetailsOutput struct {
	Status  string      `json:"status"`
	Plan    *model.Plan `json:"plan,omitempty"`
	Message string      `json:"message,omitempty"`
}

var firstNumber = regexp.MustCompile(`\d+`)

func createGetPlanDetailsTool(searcher PlanSearcher) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolGetPlanDetails,
			Desc: "Get detailed information about a specific plan: data, validity, speed, voice, SMS, OTT apps and benefits.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"plan_name": {
					Type:     schema.String,
					Desc:     "Name or price of the plan, e.g. '299' or 'JioFiber 999'",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *GetPlanDetailsInput) (*GetPlanDetailsOutput, error) {
			if strings.TrimSpace(in.PlanName) == "" {
				return nil, fmt.Errorf("plan_name is required")
			}
			return getPlanDetails(ctx, searcher, in.PlanName)
		},
	)
}

// getPlanDetails looks the plan up by the first number in its name, then
// falls back to the best knowledge-base hit.
func getPlanDetails(ctx context.Context, searcher PlanSearcher, planName string) (*GetPlanDetailsOutput, error) {
	key := planName
	if n := firstNumber.FindString(planName); n != "" {
		key = n
	}
	if plan, ok := PlanCatalog[key]; ok {
		return &GetPlanDetailsOutput{Status: StatusSuccess, Plan: &plan}, nil
	}

	hits, err := searchPlans(ctx, searcher, planName, PlanTypeAll)
	if err != nil {
		return nil, err
	}
	if len(hits) > 0 {
		return &GetPlanDetailsOutput{
			Status: StatusSuccess,
			Plan:   &model.Plan{Name: planName, Details: hits[0].Content},
		}, nil
	}
	return &GetPlanDetailsOutput{
		Status:  StatusNotFound,
		Message: fmt.Sprintf("Plan %s not found", planName),
	}, nil
}
