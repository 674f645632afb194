package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/plan-assist-core/server/internal/agent/model"
	logx "github.com/plan-assist-core/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey    string
	BaseURL   string
	Research  *model.ResearchModelConfig
	Architect *model.ArchitectModelConfig
}

// ChatModels holds the research and architect chat models
type ChatModels struct {
	Research           einomodel.BaseChatModel
	Architect          einomodel.BaseChatModel
	ResearchModelName  string
	ArchitectModelName string
}

// NewChatModels creates both Gemini chat models over one shared client.
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	if config.Research == nil || config.Architect == nil {
		return nil, fmt.Errorf("chat model config is incomplete")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	research, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Research.Model,
		Temperature: &config.Research.Temperature,
		MaxTokens:   &config.Research.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating research model")
		return nil, fmt.Errorf("error creating research model: %w", err)
	}

	architect, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Architect.Model,
		Temperature: &config.Architect.Temperature,
		MaxTokens:   &config.Architect.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(int32(1024)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating architect model")
		return nil, fmt.Errorf("error creating architect model: %w", err)
	}

	return &ChatModels{
		Research:           research,
		Architect:          architect,
		ResearchModelName:  config.Research.Model,
		ArchitectModelName: config.Architect.Model,
	}, nil
}
