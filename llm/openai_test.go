package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MegaGrindStone/go-topic-tree/llm"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIMissingKey(t *testing.T) {
	_, err := llm.NewOpenAI("  ", "", "gpt-4.1-mini", llm.Parameters{}, 0, discardLogger())
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)

	_, err = llm.New(llm.Config{Provider: llm.ProviderOpenAI}, "gpt-4.1-mini", discardLogger())
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := llm.New(llm.Config{Provider: "anthropic"}, "m", discardLogger())
	assert.ErrorIs(t, err, llm.ErrUnknownProvider)
}

func TestOpenAIChat(t *testing.T) {
	var got goopenai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(goopenai.ChatCompletionResponse{
			Choices: []goopenai.ChatCompletionChoice{{
				Message: goopenai.ChatCompletionMessage{
					Role:    goopenai.ChatMessageRoleAssistant,
					Content: "<think>hmm</think>\n[{\"title\": \"Mechanik\"}]",
				},
			}},
		})
	}))
	defer srv.Close()

	client, err := llm.New(llm.Config{
		Provider: llm.ProviderOpenAI,
		APIKey:   "secret",
		BaseURL:  srv.URL + "/",
	}, "gpt-4.1-mini", discardLogger())
	require.NoError(t, err)

	reply, err := client.Chat(context.Background(), "system prompt", []string{"user prompt", "assistant", "again"})
	require.NoError(t, err)
	assert.Equal(t, `[{"title": "Mechanik"}]`, reply)

	assert.Equal(t, "gpt-4.1-mini", got.Model)
	assert.InDelta(t, 0.7, got.Temperature, 0.0001)
	assert.Equal(t, 2000, got.MaxTokens)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, goopenai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Equal(t, "system prompt", got.Messages[0].Content)
	assert.Equal(t, goopenai.ChatMessageRoleUser, got.Messages[1].Role)
	assert.Equal(t, goopenai.ChatMessageRoleAssistant, got.Messages[2].Role)
	assert.Equal(t, goopenai.ChatMessageRoleUser, got.Messages[3].Role)
}

func TestOpenAIChatErrors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantTransient bool
	}{
		{
			name:          "rate limited",
			status:        http.StatusTooManyRequests,
			body:          `{"error": {"message": "slow down", "type": "rate_limit_exceeded"}}`,
			wantTransient: true,
		},
		{
			name:          "invalid key",
			status:        http.StatusUnauthorized,
			body:          `{"error": {"message": "bad key", "type": "invalid_request_error"}}`,
			wantTransient: false,
		},
		{
			name:          "server error",
			status:        http.StatusInternalServerError,
			body:          `{"error": {"message": "oops", "type": "server_error"}}`,
			wantTransient: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client, err := llm.NewOpenAI("secret", srv.URL, "m", llm.Parameters{}, 0, discardLogger())
			require.NoError(t, err)

			_, err = client.Chat(context.Background(), "", []string{"p"})
			require.Error(t, err)
			assert.Equal(t, tt.wantTransient, llm.IsTransient(err))
		})
	}
}

func TestOpenAIChatNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	client, err := llm.NewOpenAI("secret", srv.URL, "m", llm.Parameters{}, 0, discardLogger())
	require.NoError(t, err)

	_, err = client.Chat(context.Background(), "", []string{"p"})
	assert.ErrorIs(t, err, llm.ErrNoChoices)
}
