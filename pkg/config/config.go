package config

import (
	"fmt"
)

// ProcessConfigPipeline runs the full configuration pipeline:
// pre-processing, defaults, then validation.
func ProcessConfigPipeline(cfg *Config) (*Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("ProcessConfigPipeline: config cannot be nil")
	}

	cfg.PreProcess()

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("ProcessConfigPipeline: validation failed: %w", err)
	}

	return cfg, nil
}

// Config is the root configuration for the ontomed service.
//
// Example:
//
//	server:
//	  port: 8080
//	templates:
//	  dir: ./templates
//	llms:
//	  default:
//	    provider: openai
//	    model: gpt-4o
//	    api_key: ${OPENAI_API_KEY}
//	graph:
//	  provider: memory
type Config struct {
	// Server configures the REST API server.
	Server ServerConfig `yaml:"server,omitempty" json:"server,omitempty" jsonschema:"title=Server,description=REST API server settings"`

	// Logger configures logging.
	Logger LoggerConfig `yaml:"logger,omitempty" json:"logger,omitempty" jsonschema:"title=Logger,description=Logging settings"`

	// Templates configures the prompt template store.
	Templates TemplatesConfig `yaml:"templates,omitempty" json:"templates,omitempty" jsonschema:"title=Templates,description=Prompt template store settings"`

	// LLMs configures named LLM providers.
	// The "default" entry is used when a component does not name one.
	LLMs map[string]*LLMConfig `yaml:"llms,omitempty" json:"llms,omitempty" jsonschema:"title=LLM Providers,description=Named LLM provider configurations"`

	// Graph configures the ontology graph store.
	Graph GraphConfig `yaml:"graph,omitempty" json:"graph,omitempty" jsonschema:"title=Graph,description=Ontology graph store settings"`

	// Vector configures the embedded vector index for concept similarity.
	// Optional; absent means disabled.
	Vector *VectorConfig `yaml:"vector,omitempty" json:"vector,omitempty" jsonschema:"title=Vector,description=Embedded vector index settings"`
}

// DefaultLLMName is the provider entry used when none is referenced explicitly.
const DefaultLLMName = "default"

// PreProcess normalizes the configuration before defaults are applied.
func (c *Config) PreProcess() {
	if c.LLMs == nil {
		c.LLMs = make(map[string]*LLMConfig)
	}

	// Zero-config: a bare config still gets a usable provider entry,
	// detected from the environment.
	if len(c.LLMs) == 0 {
		c.LLMs[DefaultLLMName] = &LLMConfig{}
	}
}

// SetDefaults applies default values to the whole tree.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.Logger.SetDefaults()
	c.Templates.SetDefaults()
	c.Graph.SetDefaults()

	if c.LLMs == nil {
		c.LLMs = make(map[string]*LLMConfig)
	}
	for _, llm := range c.LLMs {
		llm.SetDefaults()
	}

	if c.Vector != nil {
		c.Vector.SetDefaults()
	}
}

// Validate checks the whole configuration tree.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	if err := c.Templates.Validate(); err != nil {
		return fmt.Errorf("templates: %w", err)
	}
	if err := c.Graph.Validate(); err != nil {
		return fmt.Errorf("graph: %w", err)
	}

	for name, llm := range c.LLMs {
		if llm == nil {
			return fmt.Errorf("llms.%s: cannot be null", name)
		}
		if err := llm.Validate(); err != nil {
			return fmt.Errorf("llms.%s: %w", name, err)
		}
	}

	if c.Vector != nil {
		if err := c.Vector.Validate(); err != nil {
			return fmt.Errorf("vector: %w", err)
		}
		if _, ok := c.LLMs[c.Vector.LLM]; !ok {
			return fmt.Errorf("vector: llm %q is not configured", c.Vector.LLM)
		}
	}

	return nil
}

// DefaultLLM returns the default provider config, if present.
func (c *Config) DefaultLLM() (*LLMConfig, bool) {
	llm, ok := c.LLMs[DefaultLLMName]
	return llm, ok
}
