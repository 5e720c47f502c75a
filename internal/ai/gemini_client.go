package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docchat-service/internal/telemetry"
	"docchat-service/models"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

var errEmptyResponse = errors.New("model returned no text")

type GeminiConfig struct {
	APIKey         string
	ChatModel      string // e.g. "gemini-2.0-flash"
	EmbeddingModel string // e.g. "text-embedding-004"
	Temperature    float32
	Guard          GuardConfig
	// ClientOptions are appended after the API key, e.g. an endpoint override.
	ClientOptions []option.ClientOption
}

// GeminiClient serves both embeddings and chat generation from one genai client.
type GeminiClient struct {
	client         *genai.Client
	chatModel      string
	embeddingModel string
	temperature    float32
	guard          *guard
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig, metrics *telemetry.Metrics) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gemini-2.0-flash"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-004"
	}
	if cfg.Guard.Name == "" {
		cfg.Guard.Name = "gemini"
	}

	opts := append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, cfg.ClientOptions...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client:         client,
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		temperature:    cfg.Temperature,
		guard:          newGuard(cfg.Guard, metrics),
	}, nil
}

func (gc *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := gc.guard.call(ctx, "embed", func(ctx context.Context) error {
		resp, err := gc.client.EmbeddingModel(gc.embeddingModel).EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return err
		}
		if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
			return fmt.Errorf("no embedding returned")
		}
		vector = resp.Embedding.Values
		return nil
	})
	return vector, err
}

func (gc *GeminiClient) Generate(ctx context.Context, systemPrompt string, history []models.Turn, input string) (string, error) {
	var answer string
	err := gc.guard.call(ctx, "generate", func(ctx context.Context) error {
		model := gc.client.GenerativeModel(gc.chatModel)
		model.SetTemperature(gc.temperature)
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}

		cs := model.StartChat()
		cs.History = geminiHistory(history)

		resp, err := cs.SendMessage(ctx, genai.Text(input))
		if err != nil {
			return err
		}
		text := responseText(resp)
		if text == "" {
			return errEmptyResponse
		}
		answer = text
		return nil
	})
	return answer, err
}

// Close the client
func (gc *GeminiClient) Close() error {
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}

// geminiHistory maps turns onto alternating user/model contents.
func geminiHistory(history []models.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)*2)
	for _, turn := range history {
		contents = append(contents,
			&genai.Content{Role: "user", Parts: []genai.Part{genai.Text(turn.Message)}},
			&genai.Content{Role: "model", Parts: []genai.Part{genai.Text(turn.Answer)}},
		)
	}
	return contents
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String())
}
