package llm

import (
	"context"
	"errors"
	"regexp"
)

// Chatter is implemented by every client in this package.
type Chatter interface {
	// Chat sends the system instructions and messages to the LLM and returns the reply.
	// A message with an even index is sent by the user, an odd index by the assistant.
	Chat(ctx context.Context, system string, messages []string) (string, error)
}

var (
	// ErrMissingAPIKey is returned when a provider that needs an API key is configured without one.
	ErrMissingAPIKey = errors.New("missing API key")
	// ErrNoChoices is returned when the provider replies without any choice.
	ErrNoChoices = errors.New("no choices found")
	// ErrUnknownProvider is returned by New for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown LLM provider")
)

var thinkTags = regexp.MustCompile(`(?s)<think>.*?</think>`)

// RemoveThinkTags removes <think> tags and everything in between them from a string.
func RemoveThinkTags(input string) string {
	return thinkTags.ReplaceAllString(input, "")
}

func chatRole(i int) string {
	if i%2 == 1 {
		return "assistant"
	}
	return "user"
}
