package dream

import (
	"github.com/kbukum/phrame/provider"
)

const defaultBaseURL = "https://api.luan.tools"

// Config configures the Dream adapter.
type Config struct {
	Key     string      `yaml:"key" mapstructure:"key"`
	BaseURL string      `yaml:"base_url" mapstructure:"base_url"`
	Image   ImageConfig `yaml:"image" mapstructure:"image"`
}

// ImageConfig holds task parameters. Styles are Dream style names; they
// are resolved to ids through the style catalogue.
type ImageConfig struct {
	provider.ImageOptions `yaml:",inline" mapstructure:",squash"`

	// Timeout is the number of one second status polls.
	Timeout int `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	Width   int `yaml:"width" mapstructure:"width" validate:"gte=0,lte=2048"`
	Height  int `yaml:"height" mapstructure:"height" validate:"gte=0,lte=2048"`
	// StylesFile is an optional YAML catalogue of {id, name} entries used
	// instead of the remote style list.
	StylesFile string `yaml:"styles_file" mapstructure:"styles_file"`
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
	if im.Width == 0 {
		im.Width = 512
	}
	if im.Height == 0 {
		im.Height = 512
	}
	if len(im.Style) == 0 {
		im.Style = []string{"buliojourney v2"}
	}
}
