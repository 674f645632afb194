package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	errx "github.com/plan-assist-core/server/internal/core/error"
	logx "github.com/plan-assist-core/server/pkg/logger"
)

const (
	ToolSearchPlans         = "search_plans"
	ToolGetPlanDetails      = "get_plan_details"
	ToolRecommendPlan       = "recommend_plan"
	ToolComparePlans        = "compare_plans"
	ToolCheck5GAvailability = "check_5g_availability"
)

// ErrUnknownTool is returned when a call names a tool the registry lacks.
var ErrUnknownTool = errors.New("unknown tool")

// GetPlanTools builds the five plan-catalog tools in registration order.
func GetPlanTools(searcher PlanSearcher) []tool.InvokableTool {
	return []tool.InvokableTool{
		createSearchPlansTool(searcher),
		createGetPlanDetailsTool(searcher),
		createRecommendPlanTool(),
		createComparePlansTool(searcher),
		createCheck5GTool(),
	}
}

// GetToolInfos collects the schema of every tool.
func GetToolInfos(ctx context.Context, ts []tool.InvokableTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(ts))
	for _, t := range ts {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Registry dispatches JSON tool calls by name. Each call runs inside eino
// tool callbacks so the observers see it like any graph tool node.
type Registry struct {
	tools    []tool.InvokableTool
	byName   map[string]tool.InvokableTool
	handlers []einocb.Handler
}

func NewRegistry(ctx context.Context, searcher PlanSearcher, handlers ...einocb.Handler) (*Registry, error) {
	ts := GetPlanTools(searcher)
	r := &Registry{
		tools:    ts,
		byName:   make(map[string]tool.InvokableTool, len(ts)),
		handlers: handlers,
	}
	for _, t := range ts {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		r.byName[info.Name] = t
	}
	return r, nil
}

func (r *Registry) Infos(ctx context.Context) ([]*schema.ToolInfo, error) {
	return GetToolInfos(ctx, r.tools)
}

// Invoke runs the named tool with JSON arguments and returns its JSON output.
func (r *Registry) Invoke(ctx context.Context, name, argumentsInJSON string) (string, error) {
	t, ok := r.byName[name]
	if !ok {
		logx.Warn().Str("tool_name", name).Msg("Unknown tool call")
		return "", errx.WrapTool(name, ErrUnknownTool)
	}

	args := SanitizeArguments(name, argumentsInJSON)
	ctx = einocb.InitCallbacks(ctx, &einocb.RunInfo{
		Name:      name,
		Type:      "PlanTool",
		Component: components.ComponentOfTool,
	}, r.handlers...)
	ctx = einocb.OnStart(ctx, &tool.CallbackInput{ArgumentsInJSON: args})

	out, err := t.InvokableRun(ctx, args)
	if err != nil {
		einocb.OnError(ctx, err)
		return "", errx.WrapTool(name, err)
	}
	einocb.OnEnd(ctx, &tool.CallbackOutput{Response: out})
	return out, nil
}

// SanitizeArguments trims string arguments and coerces budget to a number.
// It never fails; unparseable input is passed through unchanged.
func SanitizeArguments(name, arguments string) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(arguments), &m); err != nil {
		return arguments
	}

	for k, v := range m {
		if s, ok := v.(string); ok {
			m[k] = strings.TrimSpace(s)
		}
	}

	if name == ToolRecommendPlan {
		if v, ok := m["budget"]; ok {
			switch vv := v.(type) {
			case float64:
				if vv <= 0 {
					delete(m, "budget")
				}
			case string:
				s := strings.TrimPrefix(strings.TrimSpace(vv), "₹")
				if n, err := strconv.ParseFloat(s, 64); err == nil && n > 0 {
					m["budget"] = n
				} else {
					delete(m, "budget")
				}
			default:
				delete(m, "budget")
			}
		}
	}

	b, err := json.Marshal(m)
	if err != nil {
		return arguments
	}
	return string(b)
}
