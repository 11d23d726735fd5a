package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/leadflow/internal/config"
	"github.com/wolfman30/leadflow/internal/llm"
	"github.com/wolfman30/leadflow/pkg/logging"
)

const (
	ProviderNone    = "none"
	ProviderBedrock = "bedrock"
	ProviderGemini  = "gemini"
	ProviderOpenAI  = "openai"
)

// BuildLLMClient wires the primary provider and, when configured, a fallback
// provider behind a failover client. A nil client means the rules tier
// answers every turn.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (llm.Client, string, []func() error, error) {
	if cfg == nil {
		return nil, "", nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	var closers []func() error
	primary, model, closer, err := buildProvider(ctx, cfg.LLMProvider, cfg, awsCfg)
	if err != nil {
		return nil, "", nil, err
	}
	if closer != nil {
		closers = append(closers, closer)
	}
	if primary == nil {
		logger.Warn("no language model configured; using rules tier only", "provider", cfg.LLMProvider)
		return nil, "", closers, nil
	}

	fallbackName := strings.TrimSpace(cfg.LLMFallbackProvider)
	if fallbackName == "" || fallbackName == cfg.LLMProvider || fallbackName == ProviderNone {
		logger.Info("language model configured", "provider", cfg.LLMProvider, "model", model)
		return primary, model, closers, nil
	}

	secondary, _, closer, err := buildProvider(ctx, fallbackName, cfg, awsCfg)
	if err != nil {
		logger.Warn("fallback language model unavailable", "provider", fallbackName, "error", err)
		return primary, model, closers, nil
	}
	if closer != nil {
		closers = append(closers, closer)
	}
	if secondary == nil {
		return primary, model, closers, nil
	}
	logger.Info("language model configured with failover",
		"provider", cfg.LLMProvider,
		"fallback", fallbackName,
		"model", model,
	)
	return llm.NewFailoverClient(primary, secondary, logger), model, closers, nil
}

func buildProvider(ctx context.Context, name string, cfg *appconfig.Config, awsCfg aws.Config) (llm.Client, string, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ProviderNone:
		return nil, "", nil, nil
	case ProviderBedrock:
		if cfg.BedrockModelID == "" {
			return nil, "", nil, nil
		}
		return llm.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID), cfg.BedrockModelID, nil, nil
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, "", nil, nil
		}
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, "", nil, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		return client, cfg.GeminiModelID, client.Close, nil
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, "", nil, nil
		}
		client, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			return nil, "", nil, fmt.Errorf("bootstrap: openai client: %w", err)
		}
		return client, cfg.OpenAIModel, nil, nil
	default:
		return nil, "", nil, fmt.Errorf("bootstrap: unknown LLM provider %q", name)
	}
}
