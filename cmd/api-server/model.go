package main

import (
	"context"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/hackgods/clinic-scheduling-assistant/internal/apperr"
	"github.com/hackgods/clinic-scheduling-assistant/internal/config"
	"github.com/hackgods/clinic-scheduling-assistant/internal/llm"
	"github.com/hackgods/clinic-scheduling-assistant/internal/llm/anthropic"
	"github.com/hackgods/clinic-scheduling-assistant/internal/llm/bedrock"
	"github.com/hackgods/clinic-scheduling-assistant/internal/llm/openai"
)

func newModelClient(ctx context.Context, cfg config.LLMConfig) (llm.Client, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openai.NewClient(func(o *openai.Options) {
			o.Model = cfg.Model
			o.MaxCompletionTokens = cfg.MaxTokens
			o.APIKey = cfg.OpenAIAPIKey
		}), nil
	case config.ProviderAnthropic:
		return anthropic.NewClient(func(o *anthropic.Options) {
			o.Model = anthropicsdk.Model(cfg.Model)
			o.MaxTokens = cfg.MaxTokens
			o.APIKey = cfg.AnthropicAPIKey
		}), nil
	case config.ProviderBedrock:
		awsCfg, err := bedrock.LoadAWSConfig(ctx, cfg.AWSRegion, cfg.AWSAccessKeyID, cfg.AWSSecretKey)
		if err != nil {
			return nil, apperr.E(apperr.ErrConfiguration, "bedrock", fmt.Errorf("load aws config: %w", err))
		}
		return bedrock.NewClient(bedrockruntime.NewFromConfig(awsCfg), cfg.Model, int32(cfg.MaxTokens)), nil
	default:
		return nil, apperr.E(apperr.ErrConfiguration, "llm", fmt.Errorf("unknown provider %q", cfg.Provider))
	}
}
