package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/plan-assist-core/server/internal/agent/graph/prompts"
	"github.com/plan-assist-core/server/internal/agent/model"
	logx "github.com/plan-assist-core/server/pkg/logger"
)

const (
	NodeSequentialTask     = "SequentialTask"
	NodeParallelTask       = "ParallelTask"
	NodeConsensusTask      = "ConsensusTask"
	NodeHierarchicalTask   = "HierarchicalTask"
	NodeResearchChatModel  = "ResearchChatModel"
	NodeArchitectChatModel = "ArchitectChatModel"
)

// TaskNodes maps each dispatchable strategy to its task assembler node.
var TaskNodes = map[model.Strategy]string{
	model.StrategySequential:   NodeSequentialTask,
	model.StrategyParallel:     NodeParallelTask,
	model.StrategyConsensus:    NodeConsensusTask,
	model.StrategyHierarchical: NodeHierarchicalTask,
}

// roleModels maps each persona to the chat model node that voices it.
var roleModels = map[prompts.Role]string{
	prompts.RoleResearch:  NodeResearchChatModel,
	prompts.RoleArchitect: NodeArchitectChatModel,
}

// ModelNodeFor returns the chat model node answering a strategy.
func ModelNodeFor(strategy model.Strategy) (string, error) {
	role, ok := prompts.RoleFor(strategy)
	if !ok {
		return "", fmt.Errorf("no role for strategy %q", strategy)
	}
	node, ok := roleModels[role]
	if !ok {
		return "", fmt.Errorf("no chat model for role %q", role)
	}
	return node, nil
}

// ContextBuilder shapes retrieval and tool results into the task context.
type ContextBuilder func(rag string, entries []model.ToolEntry) string

var contextBuilders = map[model.Strategy]ContextBuilder{
	model.StrategySequential:   SequentialContext,
	model.StrategyParallel:     ParallelContext,
	model.StrategyConsensus:    ConsensusContext,
	model.StrategyHierarchical: HierarchicalContext,
}

// HistoryProvider returns earlier messages of a session, oldest first.
type HistoryProvider interface {
	History(ctx context.Context, sessionID string, limit int) ([]*schema.Message, error)
}

// NewStrategyCondition routes a generation request to its task assembler.
func NewStrategyCondition() func(context.Context, model.GenerationInput) (string, error) {
	return func(ctx context.Context, in model.GenerationInput) (string, error) {
		node, ok := TaskNodes[in.Strategy]
		if !ok {
			return "", fmt.Errorf("no generation pipeline for strategy %q", in.Strategy)
		}
		logx.Debug().Str("session_id", in.SessionID).Str("strategy", string(in.Strategy)).Str("node", node).
			Msg("Routing generation request")
		return node, nil
	}
}

// NewTaskPreHandler resets the per-request state.
func NewTaskPreHandler() func(context.Context, model.GenerationInput, *model.GenerationState) (model.GenerationInput, error) {
	return func(ctx context.Context, in model.GenerationInput, s *model.GenerationState) (model.GenerationInput, error) {
		s.SessionID = in.SessionID
		s.Strategy = in.Strategy
		s.TotalCostUSD = 0
		return in, nil
	}
}

// NewTaskAssemblerNode builds the prompt messages for one strategy: role
// system prompt, recent history when available, then the task with context.
func NewTaskAssemblerNode(
	strategy model.Strategy,
	promptConfig *model.PromptConfig,
	history HistoryProvider,
	historyTurns int,
) *compose.Lambda {
	build := contextBuilders[strategy]
	return compose.InvokableLambda(func(ctx context.Context, in model.GenerationInput) ([]*schema.Message, error) {
		if build == nil {
			return nil, fmt.Errorf("no context builder for strategy %q", strategy)
		}

		var past []*schema.Message
		if history != nil && in.SessionID != "" {
			msgs, err := history.History(ctx, in.SessionID, historyTurns)
			if err != nil {
				logx.Warn().Err(err).Str("session_id", in.SessionID).Msg("Could not load history; continuing without it")
			} else {
				past = msgs
			}
		}

		taskContext := build(in.RAGContext, in.Tools)
		logx.Debug().
			Str("session_id", in.SessionID).
			Str("strategy", string(strategy)).
			Int("context_chars", len(taskContext)).
			Int("history_messages", len(past)).
			Msg("Task assembled")

		return prompts.RenderTask(ctx, *promptConfig, strategy, prompts.TaskVars{
			Query:   in.Query,
			Context: taskContext,
		}, past)
	})
}

// NewChatModelPostHandler computes and logs usage cost for a chat model node.
func NewChatModelPostHandler(node, modelName string) func(context.Context, *schema.Message, *model.GenerationState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.GenerationState) (*schema.Message, error) {
		state.Model = modelName
		if out == nil || out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
			return out, nil
		}

		usage := out.ResponseMeta.Usage
		inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(modelName))
		if out.Extra == nil {
			out.Extra = map[string]any{}
		}
		out.Extra["usage_cost"] = map[string]any{
			"currency":          "USD",
			"model":             modelName,
			"prompt_tokens":     usage.PromptTokens,
			"completion_tokens": usage.CompletionTokens,
			"total_tokens":      usage.TotalTokens,
			"input_cost":        inC,
			"output_cost":       outC,
			"total_cost":        totalC,
		}
		logx.Debug().
			Str("session_id", state.SessionID).
			Str("node", node).
			Str("model", modelName).
			Int("prompt_tokens", usage.PromptTokens).
			Int("completion_tokens", usage.CompletionTokens).
			Int("total_tokens", usage.TotalTokens).
			Float64("input_cost_usd", inC).
			Float64("output_cost_usd", outC).
			Float64("total_cost_usd", totalC).
			Msg("LLM usage")

		state.TotalCostUSD += totalC
		out.Extra["usage_cost_total_usd"] = state.TotalCostUSD
		return out, nil
	}
}
