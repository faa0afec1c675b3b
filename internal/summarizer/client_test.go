package summarizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"audiobaked/internal/apperr"
	"audiobaked/internal/config"
)

func completionServer(t *testing.T, status int, response any, captured *chatCompletionRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if captured != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.WriteHeader(status)
		assert.NoError(t, json.NewEncoder(w).Encode(response))
	}))
	t.Cleanup(server.Close)
	return server
}

func contentResponse(content string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"content": content}},
		},
	}
}

func TestClient_Summarize(t *testing.T) {
	t.Run("should send system prompt and capped transcript", func(t *testing.T) {
		// Arrange
		var captured chatCompletionRequest
		server := completionServer(t, http.StatusOK, contentResponse("## Summary\nTwo speakers."), &captured)
		client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL}, zaptest.NewLogger(t))
		transcript := strings.Repeat("é", MaxTranscriptChars+500)

		// Act
		analysis, err := client.Summarize(context.Background(), "Be brief.", transcript)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "## Summary\nTwo speakers.", analysis)
		assert.Equal(t, "gpt-4", captured.Model)
		require.Len(t, captured.Messages, 2)
		assert.Equal(t, chatMessage{Role: "system", Content: "Be brief."}, captured.Messages[0])
		assert.Equal(t, "user", captured.Messages[1].Role)
		prefix := "Analyze this transcript:\n\n"
		require.True(t, strings.HasPrefix(captured.Messages[1].Content, prefix))
		assert.Equal(t, MaxTranscriptChars, len([]rune(strings.TrimPrefix(captured.Messages[1].Content, prefix))))
	})

	t.Run("should fall back to the default system prompt", func(t *testing.T) {
		var captured chatCompletionRequest
		server := completionServer(t, http.StatusOK, contentResponse("ok"), &captured)
		client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL, Model: "gpt-4o-mini"}, zaptest.NewLogger(t))

		_, err := client.Summarize(context.Background(), "  ", "hello")

		require.NoError(t, err)
		assert.Equal(t, config.DefaultSystemPrompt, captured.Messages[0].Content)
		assert.Equal(t, "gpt-4o-mini", captured.Model)
	})

	t.Run("should return an external service error on http failure", func(t *testing.T) {
		server := completionServer(t, http.StatusServiceUnavailable, map[string]string{"error": "overloaded"}, nil)
		client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL}, zaptest.NewLogger(t))

		_, err := client.Summarize(context.Background(), "", "hello")

		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.CodeExternalService))
		assert.Contains(t, err.Error(), "http 503")
	})

	t.Run("should return an external service error on empty choices", func(t *testing.T) {
		server := completionServer(t, http.StatusOK, map[string]any{"choices": []any{}}, nil)
		client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL}, zaptest.NewLogger(t))

		_, err := client.Summarize(context.Background(), "", "hello")

		assert.True(t, apperr.IsCode(err, apperr.CodeExternalService))
		assert.Contains(t, err.Error(), "empty choices")
	})

	t.Run("should refuse to call without a key", func(t *testing.T) {
		client := NewClient(Config{BaseURL: "http://127.0.0.1:1"}, zaptest.NewLogger(t))

		_, err := client.Summarize(context.Background(), "", "hello")

		assert.False(t, client.Configured())
		assert.True(t, apperr.IsCode(err, apperr.CodeConfiguration))
	})
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Analyze this transcript:\n\nshort", UserMessage("short"))
	assert.Equal(t, MaxTranscriptChars+len("Analyze this transcript:\n\n"),
		len(UserMessage(strings.Repeat("a", MaxTranscriptChars*2))))
}

func TestConfigFromConfiguration(t *testing.T) {
	cfg := config.NewConfiguration()
	cfg.Set("openai.api_key", " sk-test ")

	c := ConfigFromConfiguration(cfg)

	assert.Equal(t, "sk-test", c.APIKey)
	assert.Equal(t, "gpt-4", c.Model)
	assert.Equal(t, 120, c.TimeoutSeconds)
}
