package server

import (
	"log/slog"

	topictree "github.com/MegaGrindStone/go-topic-tree"
	"github.com/MegaGrindStone/go-topic-tree/llm"
	"github.com/sony/gobreaker"
)

// NewLLMFactory returns an LLMFactory that builds the provider client for a model and wraps it
// with retries, the shared circuit breaker and the response cache. cb and cache may be nil. Only
// replies that parse into topics with parse are cached.
func NewLLMFactory(
	cfg llm.Config,
	retry llm.RetryPolicy,
	cb *gobreaker.CircuitBreaker,
	cache topictree.ResponseCache,
	parse topictree.ParseOptions,
	logger *slog.Logger,
) LLMFactory {
	return func(model string) (topictree.LLM, error) {
		client, err := llm.New(cfg, model, logger)
		if err != nil {
			return nil, err
		}

		var chatter llm.Chatter = llm.NewRetrying(client, retry, logger)
		if cb != nil {
			chatter = llm.NewBreaker(chatter, cb)
		}
		if cache == nil {
			return chatter, nil
		}
		cached := topictree.NewCachedLLM(chatter, cache, model, logger).
			WithValidator(topictree.ReplyValidator(parse))
		return cached, nil
	}
}
