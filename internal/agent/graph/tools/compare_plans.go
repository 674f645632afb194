package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/plan-assist-core/server/internal/agent/model"
)

// NotFoundDetails marks the side of a comparison that could not be resolved.
const NotFoundDetails = "Not found"

type ComparePlansInput struct {
	Plan1 string `json:"plan1"`
	Plan2 string `json:"plan2"`
}

type ComparePlansOutput struct {
	Status         string     `json:"status"`
	Plan1          model.Plan `json:"plan1"`
	Plan2          model.Plan `json:"plan2"`
	Recommendation string     `json:"recommendation"`
}

func createComparePlansTool(searcher PlanSearcher) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolComparePlans,
			Desc: "Compare two Jio plans side by side.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"plan1": {Type: schema.String, Desc: "First plan name or price", Required: true},
				"plan2": {Type: schema.String, Desc: "Second plan name or price", Required: true},
			}),
		},
		func(ctx context.Context, in *ComparePlansInput) (*ComparePlansOutput, error) {
			if strings.TrimSpace(in.Plan1) == "" || strings.TrimSpace(in.Plan2) == "" {
				return nil, fmt.Errorf("plan1 and plan2 are required")
			}
			p1, err := comparedPlan(ctx, searcher, in.Plan1)
			if err != nil {
				return nil, err
			}
			p2, err := comparedPlan(ctx, searcher, in.Plan2)
			if err != nil {
				return nil, err
			}
			return &ComparePlansOutput{
				Status:         StatusSuccess,
				Plan1:          p1,
				Plan2:          p2,
				Recommendation: comparisonAdvice,
			}, nil
		},
	)
}

func comparedPlan(ctx context.Context, searcher PlanSearcher, name string) (model.Plan, error) {
	details, err := getPlanDetails(ctx, searcher, name)
	if err != nil {
		return model.Plan{}, err
	}
	if details.Plan == nil {
		return model.Plan{Name: name, Details: NotFoundDetails}, nil
	}
	return *details.Plan, nil
}
