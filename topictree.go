package topictree

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// LLM defines the interface for language model operations used to generate a topic tree.
type LLM interface {
	// Chat sends the system instructions and messages to the LLM and returns the raw reply.
	// A message with an even index is guaranteed to be sent by the user, while the odd index is
	// sent by the assistant.
	Chat(ctx context.Context, system string, messages []string) (string, error)
}

// ResponseCache defines the interface for storing LLM replies keyed by a hash of the request.
type ResponseCache interface {
	// CachedResponse returns the cached reply for key. The boolean is false on a cache miss.
	CachedResponse(ctx context.Context, key string) (string, bool, error)
	CacheResponse(ctx context.Context, key, response string) error
}

// Node is one topic of the tree. Main topics, subtopics and curriculum topics share this shape.
type Node struct {
	Title          string     `json:"title"`
	ShortTitle     string     `json:"shorttitle"`
	Properties     Properties `json:"properties"`
	Subcollections []Node     `json:"subcollections"`

	// GenerationError is set when generating the children of this node failed. The node is kept
	// in the tree without children.
	GenerationError string `json:"generation_error,omitempty"`
}

// Metadata describes a generated topic tree.
type Metadata struct {
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	TargetAudience string    `json:"target_audience"`
	CreatedAt      time.Time `json:"created_at"`
	Version        string    `json:"version"`
	Author         string    `json:"author"`
}

// TopicTree is the result of Generate.
type TopicTree struct {
	Metadata   Metadata `json:"metadata"`
	Collection []Node   `json:"collection"`
}

const (
	metadataTargetAudience = "Lehrkräfte"
	metadataVersion        = "1.0"
	metadataAuthor         = "Themenbaum Generator"
)

var (
	// ErrEmptyResponse is returned when the LLM reply is empty after cleaning.
	ErrEmptyResponse = errors.New("empty response from LLM")
	// ErrInvalidJSON is returned when the LLM reply cannot be decoded as JSON, even after repair.
	ErrInvalidJSON = errors.New("invalid JSON in LLM response")
	// ErrInvalidNode is returned when an element of the LLM reply is not a valid topic object.
	ErrInvalidNode = errors.New("invalid topic in LLM response")
	// ErrNoMainTopics is returned when the LLM returns no main topics at all.
	ErrNoMainTopics = errors.New("no main topics generated")
	// ErrInvalidRequest is returned when a Request fails validation.
	ErrInvalidRequest = errors.New("invalid request")
)

func newMetadata(theme string, now time.Time) Metadata {
	return Metadata{
		Title:          theme,
		Description:    fmt.Sprintf("Themenbaum für %s", theme),
		TargetAudience: metadataTargetAudience,
		CreatedAt:      now,
		Version:        metadataVersion,
		Author:         metadataAuthor,
	}
}

func cleanContent(content string) string {
	// Removes spaces and null characters.
	str := strings.TrimSpace(content)
	return strings.ReplaceAll(str, "\x00", "")
}

func promptTemplate(name, templ string, data any) (string, error) {
	buf := strings.Builder{}
	tmpl := template.New(name).Funcs(template.FuncMap{
		"quote": func(s string) string {
			return `"` + s + `"`
		},
	})
	tmpl = template.Must(tmpl.Parse(templ))
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
