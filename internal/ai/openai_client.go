package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"docchat-service/internal/telemetry"
	"docchat-service/models"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIConfig struct {
	APIKey         string
	BaseURL        string // empty uses api.openai.com; set for Azure or compatible servers
	ChatModel      string
	EmbeddingModel string
	Temperature    float32
	Guard          GuardConfig
}

// OpenAIClient serves embeddings and chat completions over the OpenAI API.
type OpenAIClient struct {
	client         *openai.Client
	chatModel      string
	embeddingModel string
	temperature    float32
	guard          *guard
}

func NewOpenAIClient(cfg OpenAIConfig, metrics *telemetry.Metrics) (*OpenAIClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o-mini"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.Guard.Name == "" {
		cfg.Guard.Name = "openai"
	}
	if cfg.Guard.Retryable == nil {
		cfg.Guard.Retryable = retryableOpenAIError
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &OpenAIClient{
		client:         openai.NewClientWithConfig(clientConfig),
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		temperature:    cfg.Temperature,
		guard:          newGuard(cfg.Guard, metrics),
	}, nil
}

func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := c.guard.call(ctx, "embed", func(ctx context.Context) error {
		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(c.embeddingModel),
		})
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			return fmt.Errorf("no embedding returned")
		}
		vector = resp.Data[0].Embedding
		return nil
	})
	return vector, err
}

func (c *OpenAIClient) Generate(ctx context.Context, systemPrompt string, history []models.Turn, input string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)*2+2)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	for _, turn := range history {
		messages = append(messages,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: turn.Message},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: turn.Answer},
		)
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: input})

	var answer string
	err := c.guard.call(ctx, "generate", func(ctx context.Context) error {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.chatModel,
			Messages:    messages,
			Temperature: c.temperature,
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errEmptyResponse
		}
		text := strings.TrimSpace(resp.Choices[0].Message.Content)
		if text == "" {
			return errEmptyResponse
		}
		answer = text
		return nil
	})
	return answer, err
}

// Close is a no-op; the HTTP client needs no teardown.
func (c *OpenAIClient) Close() error { return nil }

// retryableOpenAIError skips retries for client errors other than rate limiting.
func retryableOpenAIError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return true
}
