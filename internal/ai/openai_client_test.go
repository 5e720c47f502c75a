package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"docchat-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOpenAI struct {
	embedFailures int32
	chatStatus    int
	embedCalls    atomic.Int32

	mu           sync.Mutex
	lastMessages []map[string]any
}

func (f *fakeOpenAI) messages() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastMessages
}

func (f *fakeOpenAI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		call := f.embedCalls.Add(1)
		if call <= f.embedFailures {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}]}`))
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []map[string]any `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		f.lastMessages = body.Messages
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if f.chatStatus != 0 {
			w.WriteHeader(f.chatStatus)
			_, _ = w.Write([]byte(`{"error":{"message":"invalid model","type":"invalid_request_error"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":" The sky is blue. "},"finish_reason":"stop"}]}`))
	})
	return mux
}

func newTestOpenAIClient(t *testing.T, fake *fakeOpenAI) *OpenAIClient {
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	client, err := NewOpenAIClient(OpenAIConfig{
		APIKey:  "sk-test",
		BaseURL: srv.URL + "/v1/",
		Guard:   GuardConfig{MaxRetries: 2, Backoff: time.Millisecond, Timeout: 5 * time.Second},
	}, nil)
	require.NoError(t, err)
	return client
}

func TestOpenAIEmbedRetriesServerErrors(t *testing.T) {
	fake := &fakeOpenAI{embedFailures: 1}
	client := newTestOpenAIClient(t, fake)

	vec, err := client.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.EqualValues(t, 2, fake.embedCalls.Load())
}

func TestOpenAIGenerateSendsHistoryInOrder(t *testing.T) {
	fake := &fakeOpenAI{}
	client := newTestOpenAIClient(t, fake)

	history := []models.Turn{{Message: "What is the sky?", Answer: "It is above us."}}
	answer, err := client.Generate(context.Background(), "system prompt", history, "What color is it?")
	require.NoError(t, err)
	assert.Equal(t, "The sky is blue.", answer)

	sent := fake.messages()
	require.Len(t, sent, 4)
	roles := []string{"system", "user", "assistant", "user"}
	for i, role := range roles {
		assert.Equal(t, role, sent[i]["role"])
	}
	assert.Equal(t, "What color is it?", sent[3]["content"])
}

func TestOpenAIGenerateClientErrorNotRetried(t *testing.T) {
	fake := &fakeOpenAI{chatStatus: http.StatusBadRequest}
	client := newTestOpenAIClient(t, fake)

	_, err := client.Generate(context.Background(), "system", nil, "hi")
	assert.True(t, models.IsUpstream(err))
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIConfig{APIKey: "  "}, nil)
	assert.Error(t, err)
}
