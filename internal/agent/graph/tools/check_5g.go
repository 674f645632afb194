package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

type Check5GInput struct {
	Location string `json:"location"`
}

type Check5GOutput struct {
	Status          string   `json:"status"`
	Location        string   `json:"location"`
	Available       bool     `json:"5g_available"`
	Message         string   `json:"message"`
	CompatiblePlans []string `json:"compatible_plans"`
}

func createCheck5GTool() tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolCheck5GAvailability,
			Desc: "Check 5G availability in a city and list compatible plans.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"location": {Type: schema.String, Desc: "City or area name", Required: true},
			}),
		},
		func(ctx context.Context, in *Check5GInput) (*Check5GOutput, error) {
			if strings.TrimSpace(in.Location) == "" {
				return nil, fmt.Errorf("location is required")
			}
			return check5G(in.Location), nil
		},
	)
}

func check5G(location string) *Check5GOutput {
	lower := strings.ToLower(location)
	available := false
	for _, c := range citiesWith5G {
		if strings.Contains(lower, c) {
			available = true
			break
		}
	}

	out := &Check5GOutput{Status: StatusSuccess, Location: location, Available: available}
	if available {
		out.Message = fmt.Sprintf("5G is available in %s", location)
		out.CompatiblePlans = []string{"All plans ₹239 and above include unlimited 5G"}
	} else {
		out.Message = fmt.Sprintf("5G is coming soon in %s", location)
		out.CompatiblePlans = []string{"5G will be available once launched in your area"}
	}
	return out
}
