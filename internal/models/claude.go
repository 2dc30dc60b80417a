package models

import (
	"context"

	einoclaude "github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino/components/model"

	"github.com/mentorkit/mentor/internal/config"
)

const defaultClaudeMaxTokens = 4096

// NewClaude creates an Anthropic ChatModel.
func NewClaude(ctx context.Context, cfg config.ProviderConfig) (model.ToolCallingChatModel, error) {
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultClaudeMaxTokens
	}

	modelConfig := &einoclaude.Config{
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		MaxTokens: maxTokens,
	}

	if cfg.BaseURL != "" {
		baseURL := cfg.BaseURL
		modelConfig.BaseURL = &baseURL
	}

	if cfg.Temperature != nil {
		t := float32(*cfg.Temperature)
		modelConfig.Temperature = &t
	}

	return einoclaude.NewChatModel(ctx, modelConfig)
}
