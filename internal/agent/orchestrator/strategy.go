package orchestrator

import (
	"github.com/plan-assist-core/server/internal/agent/model"
)

type strategyRule struct {
	strategy model.Strategy
	terms    []string
}

// strategyRules is evaluated top to bottom and the first match wins.
// Reordering changes which strategy a mixed query gets.
var strategyRules = []strategyRule{
	{model.StrategyParallel, []string{"urgent", "asap", "immediately", "now", "quick"}},
	{model.StrategyConsensus, []string{"compare", "versus", "vs", "which is better", "difference"}},
	{model.StrategyHierarchical, []string{"complete solution", "bundle", "family plan", "design", "multiple", "everything"}},
}

// SelectStrategy picks the generation strategy for a classified query.
// It never returns follow_up; that branch is decided before classification.
func SelectStrategy(query string, complexity model.Complexity) model.Strategy {
	if complexity == model.ComplexitySimple {
		return model.StrategyDirect
	}
	q := normalize(query)
	for _, rule := range strategyRules {
		if containsAny(q, rule.terms) {
			return rule.strategy
		}
	}
	return model.StrategySequential
}
