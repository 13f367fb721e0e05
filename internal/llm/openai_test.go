package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChatServer(t *testing.T, status int, content string, seen *openai.ChatCompletionRequest) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func testBackend(serverURL string) *OpenAIBackend {
	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = serverURL + "/v1"
	return NewOpenAICompatibleBackend("openai", cfg, "test-model")
}

func TestOpenAIBackend_Complete(t *testing.T) {
	var seen openai.ChatCompletionRequest
	server := newChatServer(t, http.StatusOK, `[{"title":"A","description":"a"}]`, &seen)

	subtasks, err := NewGateway(testBackend(server.URL)).Decompose(context.Background(), "split it")

	require.NoError(t, err)
	assert.Equal(t, []Subtask{{Title: "A", Description: "a"}}, subtasks)
	assert.Equal(t, "test-model", seen.Model)
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, seen.Messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, seen.Messages[1].Role)
	assert.Equal(t, "split it", seen.Messages[1].Content)
}

func TestOpenAIBackend_ServerErrorIsUpstream(t *testing.T) {
	server := newChatServer(t, http.StatusInternalServerError, "", nil)

	_, err := NewGateway(testBackend(server.URL)).Decompose(context.Background(), "split it")

	var upstream *UpstreamError
	assert.ErrorAs(t, err, &upstream)
}

func TestNewMistralBackend_Defaults(t *testing.T) {
	backend := NewMistralBackend("key", "")

	assert.Equal(t, "mistral", backend.Name())
	assert.Equal(t, DefaultMistralModel, backend.model)
}

func TestNewOpenAIBackend_DefaultModel(t *testing.T) {
	backend := NewOpenAIBackend("key", "")

	assert.Equal(t, "openai", backend.Name())
	assert.Equal(t, openai.GPT4o, backend.model)
}
