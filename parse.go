package topictree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ParseOptions tunes ParseNodes.
type ParseOptions struct {
	// Repair runs malformed replies through a JSON repair pass before giving up.
	Repair bool
}

type rawNode struct {
	Title       string      `json:"title" validate:"required"`
	ShortTitle  string      `json:"shorttitle"`
	Description string      `json:"description"`
	Keywords    keywordList `json:"keywords"`
}

// keywordList accepts either a JSON array of strings or a single comma separated string.
type keywordList []string

var thinkTags = regexp.MustCompile(`(?s)<think>.*?</think>`)

// ParseNodes turns a raw LLM reply into a list of nodes without children. The reply may be wrapped
// in Markdown code fences or surrounded by prose. A single JSON object is treated as a one-element
// list and an empty object as an empty list. The short title and keywords default to the lowercased
// title, the description to "Beschreibung für {title}".
func ParseNodes(raw string, opts ParseOptions) ([]Node, error) {
	content := cleanContent(thinkTags.ReplaceAllString(raw, ""))
	if content == "" {
		return nil, ErrEmptyResponse
	}

	content = trimToJSON(stripFences(content))
	if content == "" {
		return nil, ErrEmptyResponse
	}

	var payload json.RawMessage
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		if !opts.Repair {
			return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
		}
		repaired, rErr := jsonrepair.RepairJSON(content)
		if rErr != nil {
			return nil, fmt.Errorf("%w: repair failed: %w", ErrInvalidJSON, rErr)
		}
		if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
		}
	}

	elements, err := splitElements(payload)
	if err != nil {
		return nil, err
	}

	nodes := make([]Node, 0, len(elements))
	for i, element := range elements {
		node, err := parseNode(element)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %w", ErrInvalidNode, i, err)
		}
		nodes = append(nodes, node)
	}

	return nodes, nil
}

func splitElements(payload json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, ErrEmptyResponse
	}

	switch trimmed[0] {
	case '[':
		var elements []json.RawMessage
		if err := json.Unmarshal(trimmed, &elements); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
		}
		return elements, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
		}
		if len(obj) == 0 {
			return nil, nil
		}
		return []json.RawMessage{trimmed}, nil
	default:
		return nil, fmt.Errorf("%w: top level value is neither an object nor an array", ErrInvalidNode)
	}
}

func parseNode(element json.RawMessage) (Node, error) {
	trimmed := bytes.TrimSpace(element)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Node{}, fmt.Errorf("expected an object, got %s", string(trimmed))
	}

	var raw rawNode
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return Node{}, err
	}
	raw.Title = strings.TrimSpace(raw.Title)
	raw.ShortTitle = strings.TrimSpace(raw.ShortTitle)
	if err := validate.Struct(raw); err != nil {
		return Node{}, fmt.Errorf("%s", formatValidationError(err))
	}

	shortTitle := raw.ShortTitle
	if shortTitle == "" {
		shortTitle = strings.ToLower(raw.Title)
	}
	description := strings.TrimSpace(raw.Description)
	if description == "" {
		description = "Beschreibung für " + raw.Title
	}
	keywords := []string(raw.Keywords)
	if len(keywords) == 0 {
		keywords = []string{strings.ToLower(raw.Title)}
	}

	return Node{
		Title:          raw.Title,
		ShortTitle:     shortTitle,
		Properties:     NewProperties(raw.Title, shortTitle, description, keywords),
		Subcollections: []Node{},
	}, nil
}

func (k *keywordList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*k = nil
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*k = splitKeywords(s)
		return nil
	}

	var list []any
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return fmt.Errorf("keywords must be a list of strings: %w", err)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		switch v := item.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				out = append(out, s)
			}
		case nil:
		default:
			out = append(out, fmt.Sprint(v))
		}
	}
	*k = out
	return nil
}

func splitKeywords(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// stripFences removes Markdown code fences around the JSON payload. A fenced block found by the
// Markdown parser wins, otherwise every line starting with a fence is dropped.
func stripFences(content string) string {
	if !strings.Contains(content, "```") {
		return content
	}

	if block, ok := fencedBlock(content); ok && strings.TrimSpace(block) != "" {
		return trimFenceMarkers(block)
	}

	if stripped := strings.TrimSpace(removeMarkdownBackticks(content)); stripped != "" {
		return trimFenceMarkers(stripped)
	}

	// The whole reply sits on a single fenced line.
	return trimFenceMarkers(content)
}

func fencedBlock(content string) (string, bool) {
	source := []byte(content)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var buf strings.Builder
	found := false
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			segment := lines.At(i)
			buf.Write(segment.Value(source))
		}
		found = true
		return ast.WalkStop, nil
	})

	return buf.String(), found
}

func removeMarkdownBackticks(input string) string {
	lines := strings.Split(input, "\n")

	// Filter out lines that start with triple backticks
	var filteredLines []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "```") {
			filteredLines = append(filteredLines, line)
		}
	}

	return strings.Join(filteredLines, "\n")
}

func trimFenceMarkers(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// trimToJSON drops prose before the first and after the last JSON delimiter.
func trimToJSON(s string) string {
	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return s
	}
	end := strings.LastIndexAny(s, "]}")
	if end < start {
		return s[start:]
	}
	return s[start : end+1]
}
