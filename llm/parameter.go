package llm

// Parameters contains the optional sampling parameters forwarded to LLM
// providers. Not all parameters are supported by all providers; unsupported
// ones are ignored.
type Parameters struct {
	Temperature      *float32 `yaml:"temperature"`
	TopP             *float32 `yaml:"topP"`
	TopK             *int     `yaml:"topK"`
	MinP             *float32 `yaml:"minP"`
	Seed             *int     `yaml:"seed"`
	MaxTokens        *int     `yaml:"maxTokens"`
	Stop             []string `yaml:"stop"`
	IncludeReasoning *bool    `yaml:"includeReasoning"`
}
