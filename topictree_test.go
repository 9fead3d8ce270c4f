package topictree_test

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	topictree "github.com/MegaGrindStone/go-topic-tree"
)

type MockLLM struct {
	// respond returns the reply for the given conversation. The first message is the prompt.
	respond func(messages []string) (string, error)
	delay   time.Duration

	mu          sync.Mutex
	calls       []mockCall
	inFlight    int
	maxInFlight int
}

type mockCall struct {
	system   string
	messages []string
}

type MockHandler struct {
	system       string
	concurrency  int
	repair       bool
	parseRetries int
}

type MockCache struct {
	mu      sync.Mutex
	entries map[string]string
	getErr  error
	setErr  error
	sets    int
}

var quotedName = regexp.MustCompile(`"([^"]+)"`)

func (m *MockLLM) Chat(ctx context.Context, system string, messages []string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, mockCall{system: system, messages: messages})
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return m.respond(messages)
}

func (m *MockLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m MockHandler) SystemInstructions() string {
	return m.system
}

func (m MockHandler) ConcurrencyCount() int {
	return m.concurrency
}

func (m MockHandler) RepairJSON() bool {
	return m.repair
}

func (m MockHandler) ParseRetries() int {
	return m.parseRetries
}

func (m *MockCache) CachedResponse(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *MockCache) CacheResponse(_ context.Context, key, response string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	if m.entries == nil {
		m.entries = make(map[string]string)
	}
	m.entries[key] = response
	m.sets++
	return nil
}

// topicsReply renders a JSON array of topics with the given titles, the way a model would reply.
func topicsReply(titles ...string) string {
	type topic struct {
		Title       string   `json:"title"`
		ShortTitle  string   `json:"shorttitle"`
		Description string   `json:"description"`
		Keywords    []string `json:"keywords"`
	}
	topics := make([]topic, len(titles))
	for i, title := range titles {
		topics[i] = topic{
			Title:       title,
			ShortTitle:  "kurz " + title,
			Description: "Beschreibung von " + title,
			Keywords:    []string{title, "Schlagwort"},
		}
	}
	b, err := json.Marshal(topics)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// treeResponder answers main topic prompts with mains, and every subtopic or curriculum prompt
// with count children named after the parent.
func treeResponder(mains []string, count int) func(messages []string) (string, error) {
	return func(messages []string) (string, error) {
		prompt := messages[0]
		switch {
		case strings.Contains(prompt, "Hauptthemen"):
			return topicsReply(mains...), nil
		case strings.Contains(prompt, "Unterthemen"), strings.Contains(prompt, "Lehrplanthemen"):
			parent := quotedName.FindStringSubmatch(prompt)[1]
			titles := make([]string, count)
			for i := range titles {
				titles[i] = fmt.Sprintf("%s.%d", parent, i+1)
			}
			return topicsReply(titles...), nil
		}
		return "", fmt.Errorf("unexpected prompt: %s", prompt)
	}
}

func defaultRequest(theme string) topictree.Request {
	req := topictree.DefaultRequest()
	req.Theme = theme
	return req
}
