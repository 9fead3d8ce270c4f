package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ollama/ollama/api"
	goopenai "github.com/sashabaranov/go-openai"
)

// RetryPolicy configures how transient LLM failures are retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of calls, including the first one.
	MaxAttempts         int           `yaml:"max_attempts"`
	InitialInterval     time.Duration `yaml:"initial_interval"`
	MaxInterval         time.Duration `yaml:"max_interval"`
	Multiplier          float64       `yaml:"multiplier"`
	RandomizationFactor float64       `yaml:"randomization_factor"`
}

// DefaultRetryPolicy returns five attempts with exponential backoff starting at one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:         5,
		InitialInterval:     time.Second,
		MaxInterval:         30 * time.Second,
		Multiplier:          2,
		RandomizationFactor: 0.5,
	}
}

// Retrying wraps a Chatter and retries calls that fail with a transient error.
type Retrying struct {
	next   Chatter
	policy RetryPolicy

	logger *slog.Logger
}

// NewRetrying creates a Retrying client.
func NewRetrying(next Chatter, policy RetryPolicy, logger *slog.Logger) Retrying {
	return Retrying{
		next:   next,
		policy: policy,
		logger: logger.With(slog.String("module", "retry")),
	}
}

// Chat calls the wrapped client until it succeeds, fails with a non transient error, the attempts
// are exhausted or ctx is done.
func (r Retrying) Chat(ctx context.Context, system string, messages []string) (string, error) {
	var reply string
	attempt := 0

	op := func() error {
		attempt++
		res, err := r.next.Chat(ctx, system, messages)
		if err != nil {
			if !IsTransient(err) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		reply = res
		return nil
	}

	notify := func(err error, wait time.Duration) {
		r.logger.Warn("Retry LLM call", "attempt", attempt, "maxAttempts", r.policy.MaxAttempts,
			"wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(op, r.backOff(ctx), notify); err != nil {
		return "", fmt.Errorf("LLM call failed after %d attempt(s): %w", attempt, err)
	}

	return reply, nil
}

func (r Retrying) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if r.policy.InitialInterval > 0 {
		eb.InitialInterval = r.policy.InitialInterval
	}
	if r.policy.MaxInterval > 0 {
		eb.MaxInterval = r.policy.MaxInterval
	}
	if r.policy.Multiplier > 0 {
		eb.Multiplier = r.policy.Multiplier
	}
	if r.policy.RandomizationFactor >= 0 {
		eb.RandomizationFactor = r.policy.RandomizationFactor
	}
	// The attempt budget bounds the retries, not the elapsed time.
	eb.MaxElapsedTime = 0
	eb.Reset()

	retries := r.policy.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}

	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
}

// IsTransient reports whether err is worth retrying: rate limits, server errors, timeouts and
// connection failures. Client errors such as a rejected API key are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return isTransientStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return isTransientStatus(reqErr.HTTPStatusCode)
	}
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return isTransientStatus(statusErr.StatusCode)
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func isTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= http.StatusInternalServerError
}
