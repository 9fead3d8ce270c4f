package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// Ollama provides an implementation of the LLM interface for interacting with Ollama's language models.
// It manages connections to an Ollama server instance and handles streaming chat completions.
type Ollama struct {
	host    string
	model   string
	timeout time.Duration

	params Parameters

	client *api.Client

	logger *slog.Logger
}

// NewOllama creates a new Ollama instance with the specified host URL and model name. The host
// parameter should be a valid URL pointing to an Ollama server.
func NewOllama(host, model string, params Parameters, timeout time.Duration, logger *slog.Logger) (Ollama, error) {
	u, err := url.Parse(host)
	if err != nil {
		return Ollama{}, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}

	return Ollama{
		host:    host,
		model:   model,
		timeout: timeout,
		params:  params,
		client:  api.NewClient(u, &http.Client{Transport: statusTransport{}}),
		logger:  logger.With(slog.String("module", "ollama"), slog.String("model", model)),
	}, nil
}

// statusTransport turns retryable HTTP statuses into api.StatusError before the Ollama client
// reads the body. The client reports an {"error": ...} body as a plain error and drops the status.
type statusTransport struct {
	base http.RoundTripper
}

func (t statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if !isTransientStatus(resp.StatusCode) {
		return resp, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := strings.TrimSpace(string(body))
	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		msg = errResp.Error
	}

	return nil, api.StatusError{
		StatusCode:   resp.StatusCode,
		Status:       resp.Status,
		ErrorMessage: msg,
	}
}

// Chat sends a chat message to the Ollama API.
func (o Ollama) Chat(ctx context.Context, system string, messages []string) (string, error) {
	msgs := make([]api.Message, 0, len(messages)+1)
	if system != "" {
		msgs = append(msgs, api.Message{
			Role:    "system",
			Content: system,
		})
	}
	for i, msg := range messages {
		msgs = append(msgs, api.Message{
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

	var result strings.Builder

	if err := o.client.Chat(ctx, &req, func(res api.ChatResponse) error {
		result.WriteString(res.Message.Content)
		return nil
	}); err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}

	return strings.TrimSpace(RemoveThinkTags(result.String())), nil
}

func (o Ollama) chatRequest(messages []api.Message) api.ChatRequest {
	req := api.ChatRequest{
		Model:    o.model,
		Messages: messages,
	}

	opts := make(map[string]any)

	if o.params.Temperature != nil {
		opts["temperature"] = *o.params.Temperature
	}
	if o.params.MaxTokens != nil {
		opts["num_predict"] = *o.params.MaxTokens
	}
	if o.params.Seed != nil {
		opts["seed"] = *o.params.Seed
	}
	if o.params.Stop != nil {
		opts["stop"] = o.params.Stop
	}
	if o.params.TopK != nil {
		opts["top_k"] = *o.params.TopK
	}
	if o.params.TopP != nil {
		opts["top_p"] = *o.params.TopP
	}
	if o.params.MinP != nil {
		opts["min_p"] = *o.params.MinP
	}
	if o.params.IncludeReasoning != nil {
		req.Think = o.params.IncludeReasoning
	}

	req.Options = opts

	return req
}
