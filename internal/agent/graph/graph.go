package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/plan-assist-core/server/internal/agent/graph/nodes"
	"github.com/plan-assist-core/server/internal/agent/graph/observers"
	"github.com/plan-assist-core/server/internal/agent/model"
	logx "github.com/plan-assist-core/server/pkg/logger"
)

// ErrEmptyResponse is returned when the chat model produced no text.
var ErrEmptyResponse = errors.New("generation returned an empty response")

// Config holds everything needed to compose the generation graph end-to-end.
// This is a convenience layer over GraphConfig that also constructs ChatModels.
type Config struct {
	APIKey       string
	BaseURL      string
	Research     model.ResearchModelConfig
	Architect    model.ArchitectModelConfig
	Prompt       model.PromptConfig
	History      nodes.HistoryProvider
	HistoryTurns int
}

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	ChatModels   *nodes.ChatModels
	Prompt       *model.PromptConfig
	History      nodes.HistoryProvider
	HistoryTurns int
}

// GraphBuilder handles the construction of the generation graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.GenerationInput, *schema.Message]
}

// Runner executes the compiled graph. It satisfies the orchestrator's
// Generator dependency.
type Runner struct {
	runnable compose.Runnable[model.GenerationInput, *schema.Message]
}

func NewRunner(runnable compose.Runnable[model.GenerationInput, *schema.Message]) *Runner {
	return &Runner{runnable: runnable}
}

func (r *Runner) Generate(ctx context.Context, in model.GenerationInput) (string, error) {
	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		return "", fmt.Errorf("invoke generation graph: %w", err)
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", ErrEmptyResponse
	}
	if cost, ok := out.Extra["usage_cost_total_usd"].(float64); ok {
		logx.Debug().Str("session_id", in.SessionID).Float64("total_cost_usd", cost).Msg("Generation cost")
	}
	return out.Content, nil
}

// BuildGenerationGraph composes ChatModels, builds the graph, and returns a Runner.
func BuildGenerationGraph(ctx context.Context, cfg Config) (*Runner, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}

	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Research:  &cfg.Research,
		Architect: &cfg.Architect,
	})
	if err != nil {
		return nil, err
	}

	runnable, err := BuildGraph(ctx, &GraphConfig{
		ChatModels:   cms,
		Prompt:       &cfg.Prompt,
		History:      cfg.History,
		HistoryTurns: cfg.HistoryTurns,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Generation graph built successfully")
	return NewRunner(runnable), nil
}

// BuildGraph constructs and returns the compiled generation graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.GenerationInput, *schema.Message], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModels == nil || config.ChatModels.Research == nil || config.ChatModels.Architect == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	if config.Prompt == nil {
		return nil, fmt.Errorf("prompt config is nil")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.GenerationInput, *schema.Message](
			compose.WithGenLocalState(func(ctx context.Context) *model.GenerationState {
				return &model.GenerationState{}
			}),
		),
	}

	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// addNodes adds one task assembler per strategy and the two role chat models
func (b *GraphBuilder) addNodes() error {
	for strategy, node := range nodes.TaskNodes {
		err := b.graph.AddLambdaNode(node,
			nodes.NewTaskAssemblerNode(strategy, b.config.Prompt, b.config.History, b.config.HistoryTurns),
			compose.WithStatePreHandler(nodes.NewTaskPreHandler()),
		)
		if err != nil {
			return fmt.Errorf("error adding %s node: %w", node, err)
		}
	}

	cms := b.config.ChatModels
	if err := b.graph.AddChatModelNode(nodes.NodeResearchChatModel, cms.Research,
		compose.WithStatePostHandler(nodes.NewChatModelPostHandler(nodes.NodeResearchChatModel, cms.ResearchModelName)),
	); err != nil {
		return fmt.Errorf("error adding research model node: %w", err)
	}
	if err := b.graph.AddChatModelNode(nodes.NodeArchitectChatModel, cms.Architect,
		compose.WithStatePostHandler(nodes.NewChatModelPostHandler(nodes.NodeArchitectChatModel, cms.ArchitectModelName)),
	); err != nil {
		return fmt.Errorf("error adding architect model node: %w", err)
	}
	return nil
}

// addEdges connects each task assembler to its role model
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{nodes.NodeResearchChatModel, compose.END},
		{nodes.NodeArchitectChatModel, compose.END},
	}
	for strategy, task := range nodes.TaskNodes {
		modelNode, err := nodes.ModelNodeFor(strategy)
		if err != nil {
			return err
		}
		edges = append(edges, [2]string{task, modelNode})
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches routes START to the task assembler of the requested strategy
func (b *GraphBuilder) addBranches() error {
	ends := make(map[string]bool, len(nodes.TaskNodes))
	for _, node := range nodes.TaskNodes {
		ends[node] = true
	}
	strategyBranch := compose.NewGraphBranch(nodes.NewStrategyCondition(), ends)
	if err := b.graph.AddBranch(compose.START, strategyBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding strategy branch")
		return fmt.Errorf("error adding strategy branch: %w", err)
	}
	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.GenerationInput, *schema.Message], error) {
	runnable, err := b.graph.Compile(ctx,
		compose.WithGraphName("PlanAssistGeneration"),
		compose.WithMaxRunSteps(10),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
