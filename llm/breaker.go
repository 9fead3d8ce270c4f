package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerSettings configures the circuit breaker shared by all LLM calls of a provider.
type BreakerSettings struct {
	Enabled bool `yaml:"enabled"`
	// ConsecutiveFailures trips the breaker once that many calls in a row failed transiently.
	ConsecutiveFailures uint32 `yaml:"consecutive_failures"`
	// OpenTimeout is how long the breaker stays open before letting probe calls through.
	OpenTimeout time.Duration `yaml:"open_timeout"`
	// HalfOpenRequests is the number of probe calls allowed while half open.
	HalfOpenRequests uint32 `yaml:"half_open_requests"`
}

// ErrBreakerOpen is returned when a call is rejected by an open circuit breaker.
var ErrBreakerOpen = errors.New("LLM circuit breaker is open")

// DefaultBreakerSettings returns an enabled breaker that trips after five consecutive failures.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Enabled:             true,
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		HalfOpenRequests:    1,
	}
}

// NewCircuitBreaker creates a circuit breaker from settings. Only transient errors count as
// failures, a rejected request or a canceled context does not.
func NewCircuitBreaker(name string, settings BreakerSettings, logger *slog.Logger) *gobreaker.CircuitBreaker {
	logger = logger.With(slog.String("module", "breaker"), slog.String("breaker", name))

	threshold := settings.ConsecutiveFailures
	if threshold == 0 {
		threshold = DefaultBreakerSettings().ConsecutiveFailures
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.HalfOpenRequests,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsTransient(err)
		},
	})
}

// Breaker wraps a Chatter with a circuit breaker.
type Breaker struct {
	next Chatter
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker creates a Breaker. The same circuit breaker may be shared by many Breakers.
func NewBreaker(next Chatter, cb *gobreaker.CircuitBreaker) Breaker {
	return Breaker{
		next: next,
		cb:   cb,
	}
}

// Chat calls the wrapped client unless the breaker is open.
func (b Breaker) Chat(ctx context.Context, system string, messages []string) (string, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.next.Chat(ctx, system, messages)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %w", ErrBreakerOpen, err)
	}
	if err != nil {
		return "", err
	}

	reply, _ := res.(string)
	return reply, nil
}
