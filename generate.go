package topictree

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MegaGrindStone/go-topic-tree/internal"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// TreeHandler provides the generation settings used by Generate.
type TreeHandler interface {
	// SystemInstructions returns the system message sent with every LLM call.
	// An empty string falls back to BaseInstructions.
	SystemInstructions() string
	// ConcurrencyCount determines the number of concurrent requests to the LLM while expanding
	// the subtopic and curriculum stages. Values below 1 are treated as 1, which expands every
	// branch one after another.
	ConcurrencyCount() int
	// RepairJSON reports whether malformed LLM replies should go through a JSON repair pass.
	RepairJSON() bool
	// ParseRetries determines how many times a reply that cannot be parsed is requested again
	// before the branch is given up.
	ParseRetries() int
}

type generator struct {
	llm          LLM
	system       string
	parse        ParseOptions
	parseRetries int
	concurrency  int

	logger *slog.Logger
}

type branch struct {
	node   *Node
	prompt string
}

const (
	stageMainTopics       = "main_topics"
	stageSubtopics        = "subtopics"
	stageCurriculumTopics = "curriculum_topics"
)

var errNoTopics = errors.New("LLM returned no topics")

const correctionPrompt = "Die Antwort war kein gültiges JSON. " +
	"Antworte ausschließlich mit dem JSON-Array in der geforderten Form."

// Generate builds a three level topic tree for req. The main topics are requested first and any
// failure there aborts the generation. Subtopics of every main topic and curriculum topics of
// every subtopic are then requested with at most handler.ConcurrencyCount() calls in flight. A
// branch whose call or parse fails keeps its parent node without children and records the
// failure in Node.GenerationError.
func Generate(ctx context.Context, req Request, handler TreeHandler, llm LLM, logger *slog.Logger) (TopicTree, error) {
	if err := req.Validate(); err != nil {
		return TopicTree{}, err
	}

	logger = logger.With(
		slog.String("package", "topictree"),
		slog.String("function", "Generate"),
		slog.String("generation", uuid.NewString()),
	)

	g := newGenerator(handler, llm, logger)

	logger.Info("Generating main topics", "theme", req.Theme, "count", req.NumMainTopics)

	prompt, err := MainTopicsPrompt(req.Theme, req.NumMainTopics, nil,
		req.IncludeGeneralTopic, req.IncludeMethodologyTopic)
	if err != nil {
		return TopicTree{}, err
	}
	mains, err := g.generate(ctx, stageMainTopics, prompt, req.NumMainTopics)
	if err != nil {
		return TopicTree{}, fmt.Errorf("failed to generate main topics: %w", err)
	}
	if len(mains) == 0 {
		return TopicTree{}, ErrNoMainTopics
	}

	if req.NumSubtopics > 0 {
		branches := make([]branch, len(mains))
		for i := range mains {
			prompt, err := SubTopicsPrompt(req.Theme, mains[i].Title, req.NumSubtopics)
			if err != nil {
				return TopicTree{}, err
			}
			branches[i] = branch{node: &mains[i], prompt: prompt}
		}

		logger.Info("Generating subtopics", "branches", len(branches), "count", req.NumSubtopics)

		if err := g.expand(ctx, stageSubtopics, branches, req.NumSubtopics); err != nil {
			return TopicTree{}, fmt.Errorf("failed to generate subtopics: %w", err)
		}

		if req.NumCurriculumTopics > 0 {
			var curriculumBranches []branch
			for i := range mains {
				subs := mains[i].Subcollections
				for j := range subs {
					prompt, err := CurriculumTopicsPrompt(req.Theme, subs[j].Title, req.NumCurriculumTopics)
					if err != nil {
						return TopicTree{}, err
					}
					curriculumBranches = append(curriculumBranches, branch{node: &subs[j], prompt: prompt})
				}
			}

			logger.Info("Generating curriculum topics",
				"branches", len(curriculumBranches), "count", req.NumCurriculumTopics)

			if err := g.expand(ctx, stageCurriculumTopics, curriculumBranches, req.NumCurriculumTopics); err != nil {
				return TopicTree{}, fmt.Errorf("failed to generate curriculum topics: %w", err)
			}
		}
	}

	collection := make([]Node, len(mains))
	for i, topic := range mains {
		collection[i] = normalizeNode(topic, req.DisciplineURI, req.EducationalContextURI)
	}

	logger.Info("Generated topic tree", "mainTopics", len(collection))

	return TopicTree{
		Metadata:   newMetadata(req.Theme, time.Now()),
		Collection: collection,
	}, nil
}

func newGenerator(handler TreeHandler, llm LLM, logger *slog.Logger) generator {
	concurrency := handler.ConcurrencyCount()
	if concurrency < 1 {
		concurrency = 1
	}
	system := handler.SystemInstructions()
	if system == "" {
		system = BaseInstructions
	}
	parseRetries := handler.ParseRetries()
	if parseRetries < 0 {
		parseRetries = 0
	}

	return generator{
		llm:          llm,
		system:       system,
		parse:        ParseOptions{Repair: handler.RepairJSON()},
		parseRetries: parseRetries,
		concurrency:  concurrency,
		logger:       logger,
	}
}

// expand fills the children of every branch node. Each goroutine only writes to its own node.
// The returned error is non-nil only when ctx is done.
func (g generator) expand(ctx context.Context, stage string, branches []branch, count int) error {
	eg := new(errgroup.Group)
	// Semaphore to limit concurrent LLM calls
	sem := make(chan struct{}, g.concurrency)

	for _, b := range branches {
		eg.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			defer func() { <-sem }()

			children, err := g.generate(ctx, stage, b.prompt, count)
			if err == nil && len(children) == 0 {
				err = errNoTopics
			}
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				g.logger.Warn("Failed to generate branch, keeping parent without children",
					"stage", stage, "parent", b.node.Title, "error", err)
				b.node.Subcollections = []Node{}
				b.node.GenerationError = err.Error()
				return nil
			}

			b.node.Subcollections = children
			return nil
		})
	}

	return eg.Wait()
}

// generate asks the LLM for at most count nodes. Extra nodes are dropped, missing ones are not
// requested again.
func (g generator) generate(ctx context.Context, stage, prompt string, count int) ([]Node, error) {
	if g.logger.Enabled(ctx, slog.LevelDebug) {
		tokens, err := internal.CountTokens(g.system + prompt)
		if err != nil {
			g.logger.Debug("Failed to count prompt tokens", "error", err)
		}
		g.logger.Debug("Call LLM", "stage", stage, "prompt", prompt, "tokens", tokens)
	}

	histories := []string{prompt}
	retry := 0
	for {
		reply, err := g.llm.Chat(ctx, g.system, histories)
		if err != nil {
			return nil, fmt.Errorf("failed to call LLM: %w", err)
		}

		nodes, err := ParseNodes(reply, g.parse)
		if err != nil {
			// LLM sometimes returns incorrect format, ask again up to parseRetries times.
			if retry >= g.parseRetries {
				return nil, fmt.Errorf("failed to parse LLM reply: %w", err)
			}
			retry++
			g.logger.Warn("Retry parse result", "stage", stage, "retry", retry, "error", err)
			histories = append(histories, reply, correctionPrompt)
			continue
		}

		if len(nodes) > count {
			g.logger.Warn("LLM returned more topics than requested, truncating",
				"stage", stage, "requested", count, "returned", len(nodes))
			nodes = nodes[:count]
		}

		return nodes, nil
	}
}
