package leonardoai

import "github.com/kbukum/phrame/provider"

const defaultBaseURL = "https://cloud.leonardo.ai"

// Config configures the Leonardo.Ai adapter.
type Config struct {
	Key     string      `yaml:"key" mapstructure:"key"`
	BaseURL string      `yaml:"base_url" mapstructure:"base_url"`
	Image   ImageConfig `yaml:"image" mapstructure:"image"`
}

// ImageConfig mirrors the generation request body.
type ImageConfig struct {
	provider.ImageOptions `yaml:",inline" mapstructure:",squash"`

	// Timeout is the number of one second status polls.
	Timeout           int     `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	NegativePrompt    string  `yaml:"negative_prompt" mapstructure:"negative_prompt"`
	ModelID           string  `yaml:"model_id" mapstructure:"model_id"`
	SDVersion         string  `yaml:"sd_version" mapstructure:"sd_version"`
	NumImages         int     `yaml:"num_images" mapstructure:"num_images" validate:"gte=1,lte=8"`
	Width             int     `yaml:"width" mapstructure:"width" validate:"gte=32,lte=1536"`
	Height            int     `yaml:"height" mapstructure:"height" validate:"gte=32,lte=1536"`
	NumInferenceSteps int     `yaml:"num_inference_steps" mapstructure:"num_inference_steps" validate:"gte=0,lte=60"`
	GuidanceScale     float64 `yaml:"guidance_scale" mapstructure:"guidance_scale" validate:"gte=0,lte=20"`
	Scheduler         string  `yaml:"scheduler" mapstructure:"scheduler"`
	PresetStyle       string  `yaml:"preset_style" mapstructure:"preset_style"`
	Tiling            bool    `yaml:"tiling" mapstructure:"tiling"`
	Public            bool    `yaml:"public" mapstructure:"public"`
	PromptMagic       bool    `yaml:"prompt_magic" mapstructure:"prompt_magic"`
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
	if im.NumImages == 0 {
		im.NumImages = 1
	}
	if im.Width == 0 {
		im.Width = 512
	}
	if im.Height == 0 {
		im.Height = 512
	}
	if im.SDVersion == "" {
		im.SDVersion = "v2"
	}
	if im.PresetStyle == "" {
		im.PresetStyle = "LEONARDO"
	}
	if len(im.Style) == 0 {
		im.Style = []string{"cinematic"}
	}
}
