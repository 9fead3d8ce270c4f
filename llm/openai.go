package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
)

// OpenAI provides an implementation of the LLM interface for interacting with OpenAI's language models.
// Any OpenAI compatible endpoint can be used by setting the base URL.
type OpenAI struct {
	model   string
	params  Parameters
	timeout time.Duration

	client *goopenai.Client
	logger *slog.Logger
}

// NewOpenAI creates a new OpenAI instance. An empty baseURL uses the official API. A zero timeout
// leaves the call bounded only by the caller's context. It returns ErrMissingAPIKey when apiKey
// is empty.
func NewOpenAI(apiKey, baseURL, model string, params Parameters, timeout time.Duration, logger *slog.Logger) (OpenAI, error) {
	if strings.TrimSpace(apiKey) == "" {
		return OpenAI{}, ErrMissingAPIKey
	}

	config := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimSuffix(baseURL, "/")
	}

	return OpenAI{
		model:   model,
		params:  params,
		timeout: timeout,
		client:  goopenai.NewClientWithConfig(config),
		logger:  logger.With(slog.String("module", "openai"), slog.String("model", model)),
	}, nil
}

// Chat sends a chat message to the OpenAI API.
func (o OpenAI) Chat(ctx context.Context, system string, messages []string) (string, error) {
	msgs := make([]goopenai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		msgs = append(msgs, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for i, msg := range messages {
		msgs = append(msgs, goopenai.ChatCompletionMessage{
			Role:    chatRole(i),
			Content: msg,
		})
	}

	req := o.chatRequest(msgs)

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	o.logger.Debug("Chat completion done",
		"promptTokens", resp.Usage.PromptTokens, "completionTokens", resp.Usage.CompletionTokens)

	return strings.TrimSpace(RemoveThinkTags(resp.Choices[0].Message.Content)), nil
}

func (o OpenAI) chatRequest(messages []goopenai.ChatCompletionMessage) goopenai.ChatCompletionRequest {
	req := goopenai.ChatCompletionRequest{
		Model:    o.model,
		Messages: messages,
	}

	if o.params.Temperature != nil {
		req.Temperature = *o.params.Temperature
	}
	if o.params.MaxTokens != nil {
		req.MaxTokens = *o.params.MaxTokens
	}
	if o.params.TopP != nil {
		req.TopP = *o.params.TopP
	}
	if o.params.Stop != nil {
		req.Stop = o.params.Stop
	}
	if o.params.PresencePenalty != nil {
		req.PresencePenalty = *o.params.PresencePenalty
	}
	if o.params.Seed != nil {
		req.Seed = o.params.Seed
	}
	if o.params.FrequencyPenalty != nil {
		req.FrequencyPenalty = *o.params.FrequencyPenalty
	}

	return req
}
