package topictree_test

import (
	"context"
	"errors"
	"testing"

	topictree "github.com/MegaGrindStone/go-topic-tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedLLM(t *testing.T) {
	llm := &MockLLM{respond: func([]string) (string, error) {
		return topicsReply("A"), nil
	}}
	cache := &MockCache{}
	cached := topictree.NewCachedLLM(llm, cache, "gpt-4.1-mini", discardLogger())

	first, err := cached.Chat(context.Background(), "system", []string{"prompt"})
	require.NoError(t, err)
	second, err := cached.Chat(context.Background(), "system", []string{"prompt"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, llm.callCount())
	assert.Equal(t, 1, cache.sets)

	_, err = cached.Chat(context.Background(), "system", []string{"other prompt"})
	require.NoError(t, err)
	assert.Equal(t, 2, llm.callCount())
}

func TestCachedLLMDoesNotStoreFailures(t *testing.T) {
	callErr := errors.New("boom")
	reply, replyErr := "", callErr
	llm := &MockLLM{respond: func([]string) (string, error) {
		return reply, replyErr
	}}
	cache := &MockCache{}
	cached := topictree.NewCachedLLM(llm, cache, "m", discardLogger())

	_, err := cached.Chat(context.Background(), "s", []string{"p"})
	assert.ErrorIs(t, err, callErr)

	replyErr = nil
	_, err = cached.Chat(context.Background(), "s", []string{"p"})
	require.NoError(t, err)

	assert.Equal(t, 0, cache.sets)
	assert.Equal(t, 2, llm.callCount())
}

func TestCachedLLMIgnoresCacheErrors(t *testing.T) {
	llm := &MockLLM{respond: func([]string) (string, error) {
		return "[]", nil
	}}
	cache := &MockCache{getErr: errors.New("read failed"), setErr: errors.New("write failed")}
	cached := topictree.NewCachedLLM(llm, cache, "m", discardLogger())

	reply, err := cached.Chat(context.Background(), "s", []string{"p"})
	require.NoError(t, err)
	assert.Equal(t, "[]", reply)
	assert.Equal(t, 1, llm.callCount())
}

func TestCacheKey(t *testing.T) {
	base := topictree.CacheKey("m", "s", []string{"a", "b"})

	assert.Equal(t, base, topictree.CacheKey("m", "s", []string{"a", "b"}))
	assert.NotEqual(t, base, topictree.CacheKey("other", "s", []string{"a", "b"}))
	assert.NotEqual(t, base, topictree.CacheKey("m", "other", []string{"a", "b"}))
	assert.NotEqual(t, base, topictree.CacheKey("m", "s", []string{"ab"}))
	assert.NotEqual(t, base, topictree.CacheKey("m", "s", []string{"b", "a"}))
}

func TestCachedLLMSkipsUnusableReplies(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{name: "truncated json", reply: `[{"title": "A",`},
		{name: "prose", reply: "Das kann ich leider nicht beantworten."},
		{name: "no topics", reply: "[]"},
		{name: "missing title", reply: `[{"shorttitle": "a"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &MockLLM{respond: func([]string) (string, error) {
				return tt.reply, nil
			}}
			cache := &MockCache{}
			cached := topictree.NewCachedLLM(llm, cache, "m", discardLogger()).
				WithValidator(topictree.ReplyValidator(topictree.ParseOptions{}))

			reply, err := cached.Chat(context.Background(), "s", []string{"p"})
			require.NoError(t, err)
			assert.Equal(t, tt.reply, reply)

			_, err = cached.Chat(context.Background(), "s", []string{"p"})
			require.NoError(t, err)

			assert.Equal(t, 0, cache.sets)
			assert.Equal(t, 2, llm.callCount())
		})
	}
}

func TestGenerateDoesNotReplayMalformedCachedReply(t *testing.T) {
	healthy := false
	llm := &MockLLM{respond: func([]string) (string, error) {
		if !healthy {
			return `[{"title": "A",`, nil
		}
		return topicsReply("A"), nil
	}}
	cache := &MockCache{}
	cached := topictree.NewCachedLLM(llm, cache, "m", discardLogger()).
		WithValidator(topictree.ReplyValidator(topictree.ParseOptions{}))

	req := defaultRequest("Physik")
	req.NumMainTopics = 1
	req.NumSubtopics = 0

	_, err := topictree.Generate(context.Background(), req, MockHandler{}, cached, discardLogger())
	require.ErrorIs(t, err, topictree.ErrInvalidJSON)

	healthy = true
	tree, err := topictree.Generate(context.Background(), req, MockHandler{}, cached, discardLogger())
	require.NoError(t, err)
	require.Len(t, tree.Collection, 1)
	assert.Equal(t, "A", tree.Collection[0].Title)
	assert.Equal(t, 2, llm.callCount())
	assert.Equal(t, 1, cache.sets)

	_, err = topictree.Generate(context.Background(), req, MockHandler{}, cached, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, llm.callCount())
}
