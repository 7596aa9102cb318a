package deepai

import (
	"time"

	"github.com/kbukum/phrame/provider"
)

const defaultBaseURL = "https://api.deepai.org"

// Config configures the DeepAI adapter.
type Config struct {
	Key     string      `yaml:"key" mapstructure:"key"`
	BaseURL string      `yaml:"base_url" mapstructure:"base_url"`
	Image   ImageConfig `yaml:"image" mapstructure:"image"`
}

// ImageConfig holds the generation form fields. Each style names a DeepAI
// generator endpoint such as text2img.
type ImageConfig struct {
	provider.ImageOptions `yaml:",inline" mapstructure:",squash"`

	Timeout        int    `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	GridSize       int    `yaml:"grid_size" mapstructure:"grid_size" validate:"gte=1,lte=2"`
	Width          int    `yaml:"width" mapstructure:"width" validate:"gte=128,lte=1536"`
	Height         int    `yaml:"height" mapstructure:"height" validate:"gte=128,lte=1536"`
	NegativePrompt string `yaml:"negative_prompt" mapstructure:"negative_prompt"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	im := &c.Image
	if im.Timeout <= 0 {
		im.Timeout = 30
	}
	if im.GridSize == 0 {
		im.GridSize = 1
	}
	if im.Width == 0 {
		im.Width = 512
	}
	if im.Height == 0 {
		im.Height = 512
	}
	if len(im.Style) == 0 {
		im.Style = []string{"text2img"}
	}
}

func (c *Config) timeout() time.Duration {
	return time.Duration(c.Image.Timeout) * time.Second
}
