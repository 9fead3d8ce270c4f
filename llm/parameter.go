package llm

// Parameters contains the optional configuration parameters for LLM services.
//
// Not all parameters are supported by all LLM providers. Unsupported parameters are ignored.
type Parameters struct {
	Temperature      *float32 `yaml:"temperature"`
	TopP             *float32 `yaml:"topP"`
	TopK             *int     `yaml:"topK"`
	FrequencyPenalty *float32 `yaml:"frequencyPenalty"`
	PresencePenalty  *float32 `yaml:"presencePenalty"`
	MinP             *float32 `yaml:"minP"`
	Seed             *int     `yaml:"seed"`
	MaxTokens        *int     `yaml:"maxTokens"`
	Stop             []string `yaml:"stop"`
	IncludeReasoning *bool    `yaml:"includeReasoning"`
}

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 2000
)

// DefaultParameters returns the sampling parameters used for topic generation.
func DefaultParameters() Parameters {
	temperature := float32(defaultTemperature)
	maxTokens := defaultMaxTokens
	return Parameters{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}
}

// WithDefaults fills every unset parameter from DefaultParameters.
func (p Parameters) WithDefaults() Parameters {
	d := DefaultParameters()
	if p.Temperature == nil {
		p.Temperature = d.Temperature
	}
	if p.MaxTokens == nil {
		p.MaxTokens = d.MaxTokens
	}
	return p
}
