package llm

import (
	"fmt"
	"log/slog"
	"time"
)

const (
	// ProviderOpenAI talks to the OpenAI API or any OpenAI compatible endpoint.
	ProviderOpenAI = "openai"
	// ProviderOllama talks to an Ollama server.
	ProviderOllama = "ollama"
)

// Config selects and configures the LLM provider.
type Config struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	// Host is the Ollama server URL.
	Host string `yaml:"host"`
	// DefaultModel is used for requests that do not name a model.
	DefaultModel   string        `yaml:"default_model"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Parameters     Parameters    `yaml:"parameters"`
}

// New creates the client for model as configured by cfg.
func New(cfg Config, model string, logger *slog.Logger) (Chatter, error) {
	params := cfg.Parameters.WithDefaults()

	switch cfg.Provider {
	case ProviderOpenAI, "":
		client, err := NewOpenAI(cfg.APIKey, cfg.BaseURL, model, params, cfg.RequestTimeout, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	case ProviderOllama:
		client, err := NewOllama(cfg.Host, model, params, cfg.RequestTimeout, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
