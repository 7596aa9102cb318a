package openai

import (
	"time"

	"github.com/kbukum/phrame/provider"
)

const (
	defaultSummaryPrompt = "You are a helpful assistant that will take a string of random conversations and pull out a few keywords and topics that were talked about. You will then turn this into a short description to describe a picture, painting, or artwork. It should be no more than two or three sentences and be something that DALL·E can use. Make sure it doesn't contain words that would be rejected by your safety system."
	defaultRandomPrompt  = "Provide a random short description to describe a picture, painting, or artwork. It should be no more than two or three sentences and be something that DALL·E can use. Make sure it doesn't contain words that would be rejected by your safety system."
)

// Config configures the OpenAI adapter.
type Config struct {
	Key string `yaml:"key" mapstructure:"key"`
	// BaseURL overrides the API endpoint, e.g. for a compatible gateway.
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Summary SummaryConfig `yaml:"summary" mapstructure:"summary"`
	Image   ImageConfig   `yaml:"image" mapstructure:"image"`
}

// SummaryConfig configures chat completions.
type SummaryConfig struct {
	Model  string `yaml:"model" mapstructure:"model"`
	Prompt string `yaml:"prompt" mapstructure:"prompt"`
	Random string `yaml:"random" mapstructure:"random"`
}

// ImageConfig configures image generation.
type ImageConfig struct {
	provider.ImageOptions `yaml:",inline" mapstructure:",squash"`

	Model string `yaml:"model" mapstructure:"model"`
	Size  string `yaml:"size" mapstructure:"size" validate:"oneof=256x256 512x512 1024x1024"`
	N     int    `yaml:"n" mapstructure:"n" validate:"gte=1,lte=10"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = time.Minute
	}
	if c.Summary.Model == "" {
		c.Summary.Model = "gpt-3.5-turbo"
	}
	if c.Summary.Prompt == "" {
		c.Summary.Prompt = defaultSummaryPrompt
	}
	if c.Summary.Random == "" {
		c.Summary.Random = defaultRandomPrompt
	}
	if c.Image.Model == "" {
		c.Image.Model = "dall-e-2"
	}
	if c.Image.Size == "" {
		c.Image.Size = "512x512"
	}
	if c.Image.N == 0 {
		c.Image.N = 1
	}
	if len(c.Image.Style) == 0 {
		c.Image.Style = []string{"cinematic"}
	}
}
