package stabilityai

import (
	"time"

	"github.com/kbukum/phrame/provider"
)

const defaultBaseURL = "https://api.stability.ai"

// Config configures the Stability AI adapter.
type Config struct {
	Key     string      `yaml:"key" mapstructure:"key"`
	BaseURL string      `yaml:"base_url" mapstructure:"base_url"`
	Image   ImageConfig `yaml:"image" mapstructure:"image"`
}

// ImageConfig holds the text-to-image parameters.
type ImageConfig struct {
	provider.ImageOptions `yaml:",inline" mapstructure:",squash"`

	// Timeout is the request timeout in seconds.
	Timeout  int    `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	EngineID string `yaml:"engine_id" mapstructure:"engine_id"`
	Width    int    `yaml:"width" mapstructure:"width" validate:"multiple_of_64,gte=128,lte=2048"`
	Height   int    `yaml:"height" mapstructure:"height" validate:"multiple_of_64,gte=128,lte=2048"`
	CfgScale int    `yaml:"cfg_scale" mapstructure:"cfg_scale" validate:"gte=0,lte=35"`
	Samples  int    `yaml:"samples" mapstructure:"samples" validate:"gte=1,lte=10"`
	Steps    int    `yaml:"steps" mapstructure:"steps" validate:"gte=10,lte=150"`
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
	if im.EngineID == "" {
		im.EngineID = "stable-diffusion-512-v2-1"
	}
	if im.Width == 0 {
		im.Width = 512
	}
	if im.Height == 0 {
		im.Height = 512
	}
	if im.CfgScale == 0 {
		im.CfgScale = 7
	}
	if im.Samples == 0 {
		im.Samples = 1
	}
	if im.Steps == 0 {
		im.Steps = 50
	}
	if len(im.Style) == 0 {
		im.Style = []string{"cinematic"}
	}
}

func (c *Config) timeout() time.Duration {
	return time.Duration(c.Image.Timeout) * time.Second
}
