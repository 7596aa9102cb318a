package gemini

import "github.com/kbukum/phrame/provider"

// Config configures the Gemini adapter.
type Config struct {
	Key string `yaml:"key" mapstructure:"key"`
	// BaseURL overrides the Gemini API endpoint.
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Summary SummaryConfig `yaml:"summary" mapstructure:"summary"`
	Image   ImageConfig   `yaml:"image" mapstructure:"image"`
}

// SummaryConfig configures text generation.
type SummaryConfig struct {
	Model  string `yaml:"model" mapstructure:"model"`
	Prompt string `yaml:"prompt" mapstructure:"prompt"`
	Random string `yaml:"random" mapstructure:"random"`
}

// ImageConfig configures Imagen generation.
type ImageConfig struct {
	provider.ImageOptions `yaml:",inline" mapstructure:",squash"`

	Model string `yaml:"model" mapstructure:"model"`
	N     int    `yaml:"n" mapstructure:"n" validate:"gte=0,lte=4"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Summary.Model == "" {
		c.Summary.Model = "gemini-2.0-flash"
	}
	if c.Summary.Prompt == "" {
		c.Summary.Prompt = "Pull a few keywords and topics out of the following conversations and turn them into a short description of a picture, painting or artwork. Use no more than two or three sentences."
	}
	if c.Summary.Random == "" {
		c.Summary.Random = "Provide a random short description of a picture, painting or artwork in no more than two or three sentences."
	}
	if c.Image.Model == "" {
		c.Image.Model = "imagen-3.0-generate-002"
	}
	if c.Image.N == 0 {
		c.Image.N = 1
	}
}
