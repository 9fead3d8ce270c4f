package handler

// GenerationConfig contains configuration parameters for topic tree generation, including the
// fan-out width and how malformed replies are handled.
type GenerationConfig struct {
	Concurrency  int  `yaml:"concurrency"`
	RepairJSON   bool `yaml:"repair_json"`
	ParseRetries int  `yaml:"parse_retries"`
	// SystemInstructionsFile replaces the built-in system instructions with the file content.
	SystemInstructionsFile string `yaml:"system_instructions_file"`
	// MaxInstructionTokens rejects instruction files longer than that many tokens.
	MaxInstructionTokens int `yaml:"max_instruction_tokens"`
}

const (
	defaultConcurrency          = 8
	defaultMaxInstructionTokens = 8000
)

// DefaultGenerationConfig returns the configuration used when nothing is configured.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Concurrency:          defaultConcurrency,
		RepairJSON:           true,
		ParseRetries:         0,
		MaxInstructionTokens: defaultMaxInstructionTokens,
	}
}
