package topictree

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/cespare/xxhash"
)

// CachedLLM wraps an LLM with a ResponseCache. Only successful non-empty replies that pass the
// validator are stored, and cache failures never fail the call.
type CachedLLM struct {
	llm      LLM
	cache    ResponseCache
	model    string
	validate func(reply string) error

	logger *slog.Logger
}

// NewCachedLLM creates a CachedLLM. The model name is part of every cache key.
func NewCachedLLM(llm LLM, cache ResponseCache, model string, logger *slog.Logger) CachedLLM {
	return CachedLLM{
		llm:    llm,
		cache:  cache,
		model:  model,
		logger: logger.With(slog.String("module", "cache")),
	}
}

// WithValidator returns a copy of c that only stores replies for which validate returns nil.
func (c CachedLLM) WithValidator(validate func(reply string) error) CachedLLM {
	c.validate = validate
	return c
}

// ReplyValidator accepts replies that ParseNodes turns into at least one node with opts.
func ReplyValidator(opts ParseOptions) func(reply string) error {
	return func(reply string) error {
		nodes, err := ParseNodes(reply, opts)
		if err != nil {
			return err
		}
		if len(nodes) == 0 {
			return errNoTopics
		}
		return nil
	}
}

// Chat returns the cached reply for the same model, system instructions and messages, or calls
// the wrapped LLM and stores its reply.
func (c CachedLLM) Chat(ctx context.Context, system string, messages []string) (string, error) {
	key := CacheKey(c.model, system, messages)

	cached, ok, err := c.cache.CachedResponse(ctx, key)
	if err != nil {
		c.logger.Warn("Failed to read cached response", "key", key, "error", err)
	}
	if ok {
		c.logger.Debug("Cache hit", "key", key)
		return cached, nil
	}

	reply, err := c.llm.Chat(ctx, system, messages)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply) == "" {
		return reply, nil
	}
	if c.validate != nil {
		if err := c.validate(reply); err != nil {
			c.logger.Debug("Not caching unusable reply", "key", key, "error", err)
			return reply, nil
		}
	}

	if err := c.cache.CacheResponse(ctx, key, reply); err != nil {
		c.logger.Warn("Failed to cache response", "key", key, "error", err)
	}

	return reply, nil
}

// CacheKey hashes the model, system instructions and messages into a cache key.
func CacheKey(model, system string, messages []string) string {
	parts := make([]string, 0, len(messages)+2)
	parts = append(parts, model, system)
	parts = append(parts, messages...)
	return strconv.FormatUint(xxhash.Sum64String(strings.Join(parts, "\x00")), 16)
}
