package tools

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/plan-assist-core/server/internal/agent/model"
)

// PlanSearcher is the knowledge-base search backing search_plans and the
// get_plan_details fallback.
type PlanSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]model.PlanHit, error)
}

// ===================================
// Search Plans Tool
// ===================================

const (
	searchResultLimit  = 5
	searchContentLimit = 200
)

type SearchPlansInput struct {
	Query    string `json:"query"`
	PlanType string `json:"plan_type,omitempty"`
}

type SearchPlansOutput struct {
	Status string          `json:"status"`
	Plans  []model.PlanHit `json:"plans"`
	Count  int             `json:"count"`
}

func createSearchPlansTool(searcher PlanSearcher) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolSearchPlans,
			Desc: "Search for Jio plans based on requirements. Returns up to 5 matching knowledge-base excerpts with their source page.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     schema.String,
					Desc:     "Search query, e.g. 'unlimited 5G plan with netflix'",
					Required: true,
				},
				"plan_type": {
					Type: schema.String,
					Desc: "Optional plan family filter",
					Enum: []string{PlanTypeMobile, PlanTypeFiber, PlanTypePostpaid, PlanTypeBusiness, PlanTypeAll},
				},
			}),
		},
		func(ctx context.Context, in *SearchPlansInput) (*SearchPlansOutput, error) {
			if strings.TrimSpace(in.Query) == "" {
				return nil, fmt.Errorf("query is required")
			}
			hits, err := searchPlans(ctx, searcher, in.Query, in.PlanType)
			if err != nil {
				return nil, err
			}
			status := StatusSuccess
			if len(hits) == 0 {
				status = StatusNotFound
			}
			return &SearchPlansOutput{Status: status, Plans: hits, Count: len(hits)}, nil
		},
	)
}

// searchPlans runs the knowledge search, narrowing by plan type when one is
// given. Hit content is truncated for readability.
func searchPlans(ctx context.Context, searcher PlanSearcher, query, planType string) ([]model.PlanHit, error) {
	if searcher == nil {
		return nil, nil
	}
	planType = strings.ToLower(strings.TrimSpace(planType))
	if planType == "" {
		planType = PlanTypeAll
	}
	searchQuery := query
	if planType != PlanTypeAll {
		searchQuery = query + " " + planType
	}

	hits, err := searcher.Search(ctx, searchQuery, searchResultLimit)
	if err != nil {
		return nil, fmt.Errorf("search knowledge base: %w", err)
	}

	out := make([]model.PlanHit, 0, len(hits))
	for _, h := range hits {
		if planType != PlanTypeAll && !strings.Contains(strings.ToLower(h.Source), planType) {
			continue
		}
		h.Content = truncateRunes(h.Content, searchContentLimit)
		out = append(out, h)
	}
	return out, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
