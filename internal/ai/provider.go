// Package ai holds the embedding and language model backends. Every call
// goes through a guard that applies a timeout, retries, a rate limit and a
// circuit breaker, and reports failures as *models.UpstreamError.
package ai

import (
	"context"
	"fmt"
	"io"

	"docchat-service/internal/config"
	"docchat-service/internal/telemetry"
	"docchat-service/models"
)

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// LanguageModel answers input given a system prompt and prior turns.
type LanguageModel interface {
	Generate(ctx context.Context, systemPrompt string, history []models.Turn, input string) (string, error)
}

// EmbedderCloser is an Embedder holding a client connection.
type EmbedderCloser interface {
	Embedder
	io.Closer
}

// LanguageModelCloser is a LanguageModel holding a client connection.
type LanguageModelCloser interface {
	LanguageModel
	io.Closer
}

func guardConfig(cfg *config.Config, name string) GuardConfig {
	return GuardConfig{
		Name:              name,
		Timeout:           cfg.UpstreamTimeout,
		MaxRetries:        cfg.UpstreamMaxRetries,
		RequestsPerMinute: cfg.UpstreamRPM,
	}
}

// NewEmbedder builds the embedder selected by EMBEDDINGS_PROVIDER.
func NewEmbedder(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics) (EmbedderCloser, error) {
	switch cfg.EmbeddingsProvider {
	case "google", "":
		return NewGeminiClient(ctx, GeminiConfig{
			APIKey:         cfg.GeminiAPIKey,
			ChatModel:      cfg.GeminiChatModel,
			EmbeddingModel: cfg.GoogleEmbeddingsModel,
			Temperature:    float32(cfg.Temperature),
			Guard:          guardConfig(cfg, "gemini-embed"),
		}, metrics)
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:         cfg.OpenAIAPIKey,
			BaseURL:        cfg.OpenAIBaseURL,
			ChatModel:      cfg.OpenAIChatModel,
			EmbeddingModel: cfg.OpenAIEmbeddingsModel,
			Temperature:    float32(cfg.Temperature),
			Guard:          guardConfig(cfg, "openai-embed"),
		}, metrics)
	default:
		return nil, fmt.Errorf("unknown embeddings provider: %s", cfg.EmbeddingsProvider)
	}
}

// NewLanguageModel builds the model selected by LLM_PROVIDER.
func NewLanguageModel(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics) (LanguageModelCloser, error) {
	switch cfg.LLMProvider {
	case "google", "":
		return NewGeminiClient(ctx, GeminiConfig{
			APIKey:         cfg.GeminiAPIKey,
			ChatModel:      cfg.GeminiChatModel,
			EmbeddingModel: cfg.GoogleEmbeddingsModel,
			Temperature:    float32(cfg.Temperature),
			Guard:          guardConfig(cfg, "gemini-chat"),
		}, metrics)
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:         cfg.OpenAIAPIKey,
			BaseURL:        cfg.OpenAIBaseURL,
			ChatModel:      cfg.OpenAIChatModel,
			EmbeddingModel: cfg.OpenAIEmbeddingsModel,
			Temperature:    float32(cfg.Temperature),
			Guard:          guardConfig(cfg, "openai-chat"),
		}, metrics)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.LLMProvider)
	}
}
