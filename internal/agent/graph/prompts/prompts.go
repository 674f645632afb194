package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/plan-assist-core/server/internal/agent/model"
)

//go:embed template/research_role.txt
var researchRole string

//go:embed template/architect_role.txt
var architectRole string

//go:embed template/sequential_task.txt
var sequentialTask string

//go:embed template/parallel_task.txt
var parallelTask string

//go:embed template/consensus_task.txt
var consensusTask string

//go:embed template/hierarchical_task.txt
var hierarchicalTask string

// Role names the persona that answers a strategy.
type Role string

const (
	RoleResearch  Role = "research"
	RoleArchitect Role = "architect"
)

type taskTemplate struct {
	role     Role
	system   string
	template string
}

var taskTemplates = map[model.Strategy]taskTemplate{
	model.StrategySequential:   {role: RoleResearch, system: researchRole, template: sequentialTask},
	model.StrategyParallel:     {role: RoleArchitect, system: architectRole, template: parallelTask},
	model.StrategyConsensus:    {role: RoleArchitect, system: architectRole, template: consensusTask},
	model.StrategyHierarchical: {role: RoleArchitect, system: architectRole, template: hierarchicalTask},
}

// RoleFor returns the persona used by a strategy.
func RoleFor(strategy model.Strategy) (Role, bool) {
	t, ok := taskTemplates[strategy]
	return t.role, ok
}

// TaskVars are the per-request values rendered into a task.
type TaskVars struct {
	Query   string
	Context string
}

// RenderTask renders the role system prompt, any prior history and the task
// for a strategy through the Eino prompt component so prompt callbacks fire.
func RenderTask(
	ctx context.Context,
	cfg model.PromptConfig,
	strategy model.Strategy,
	vars TaskVars,
	history []*schema.Message,
) ([]*schema.Message, error) {
	t, ok := taskTemplates[strategy]
	if !ok {
		return nil, fmt.Errorf("no task template for strategy %q", strategy)
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(t.system),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage(t.template),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"BrandName":      cfg.BrandName,
		"CurrencySymbol": cfg.CurrencySymbol,
		"Query":          vars.Query,
		"Context":        vars.Context,
		"history":        history,
	})
	if err != nil {
		return nil, fmt.Errorf("%s task prompt render: %w", strategy, err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("%s task prompt render: empty result", strategy)
	}
	return msgs, nil
}
