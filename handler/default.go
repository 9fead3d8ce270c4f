package handler

import (
	"fmt"
	"os"
	"strings"

	topictree "github.com/MegaGrindStone/go-topic-tree"
	"github.com/MegaGrindStone/go-topic-tree/internal"
)

// Default implements the TreeHandler interface with values taken from a GenerationConfig.
type Default struct {
	// Instructions is the system message. Empty means topictree.BaseInstructions.
	Instructions string
	Config       GenerationConfig
}

// NewDefault creates a Default handler, loading the system instructions file when one is
// configured.
func NewDefault(cfg GenerationConfig) (Default, error) {
	d := Default{Config: cfg}
	if cfg.SystemInstructionsFile == "" {
		return d, nil
	}

	instructions, err := LoadInstructions(cfg.SystemInstructionsFile, cfg.MaxInstructionTokens)
	if err != nil {
		return Default{}, err
	}
	d.Instructions = instructions

	return d, nil
}

// LoadInstructions reads system instructions from path. A positive maxTokens rejects files
// longer than that many tokens.
func LoadInstructions(path string, maxTokens int) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read system instructions: %w", err)
	}

	instructions := strings.TrimSpace(string(b))
	if instructions == "" {
		return "", fmt.Errorf("system instructions file %s is empty", path)
	}

	if maxTokens > 0 {
		tokens, err := internal.CountTokens(instructions)
		if err != nil {
			return "", fmt.Errorf("failed to count instruction tokens: %w", err)
		}
		if tokens > maxTokens {
			return "", fmt.Errorf("system instructions have %d tokens, limit is %d", tokens, maxTokens)
		}
	}

	return instructions, nil
}

// SystemInstructions returns the configured instructions or topictree.BaseInstructions.
func (d Default) SystemInstructions() string {
	if d.Instructions == "" {
		return topictree.BaseInstructions
	}
	return d.Instructions
}

// ConcurrencyCount returns the configured concurrency, or the default when unset.
func (d Default) ConcurrencyCount() int {
	if d.Config.Concurrency <= 0 {
		return defaultConcurrency
	}
	return d.Config.Concurrency
}

// RepairJSON reports whether malformed replies go through a JSON repair pass.
func (d Default) RepairJSON() bool {
	return d.Config.RepairJSON
}

// ParseRetries returns the number of times an unparsable reply is requested again.
func (d Default) ParseRetries() int {
	return d.Config.ParseRetries
}
