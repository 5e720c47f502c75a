package ai

import (
	"context"
	"os"
	"testing"

	"docchat-service/models"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiHistoryAlternatesRoles(t *testing.T) {
	contents := geminiHistory([]models.Turn{
		{Message: "q1", Answer: "a1"},
		{Message: "q2", Answer: "a2"},
	})

	require.Len(t, contents, 4)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, genai.Text("a2"), contents[3].Parts[0])
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("The sky "), genai.Text("is blue. ")}},
		}},
	}
	assert.Equal(t, "The sky is blue.", responseText(resp))
	assert.Empty(t, responseText(&genai.GenerateContentResponse{}))
	assert.Empty(t, responseText(nil))
}

func TestGeminiEmbed(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("GEMINI_API_KEY not set")
	}

	client, err := NewGeminiClient(context.Background(), GeminiConfig{APIKey: apiKey}, nil)
	require.NoError(t, err)
	defer client.Close()

	vec, err := client.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.NotEmpty(t, vec)
}
