package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/phrame/acquisition"
	"github.com/kbukum/phrame/coordinator"
	"github.com/kbukum/phrame/database"
	"github.com/kbukum/phrame/inbox"
	"github.com/kbukum/phrame/observability"
	"github.com/kbukum/phrame/provider"
	"github.com/kbukum/phrame/provider/deepai"
	"github.com/kbukum/phrame/provider/dream"
	"github.com/kbukum/phrame/provider/gemini"
	"github.com/kbukum/phrame/provider/leonardoai"
	"github.com/kbukum/phrame/provider/midjourney"
	"github.com/kbukum/phrame/provider/openai"
	"github.com/kbukum/phrame/provider/stabilityai"
	"github.com/kbukum/phrame/redis"
	"github.com/kbukum/phrame/resilience"
	"github.com/kbukum/phrame/server"
	"github.com/kbukum/phrame/storage"
	"github.com/kbukum/phrame/validation"
)

// Pixel count bounds of Stability AI engines.
const (
	stabilityMaxPixels   = 1024 * 1024
	stabilityMinPixels   = 512 * 512
	stability768MinPixel = 768 * 768
)

// AppConfig is the complete phrame configuration.
type AppConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Database      database.Config      `yaml:"database" mapstructure:"database"`
	Storage       storage.Config       `yaml:"storage" mapstructure:"storage"`
	Redis         redis.Config         `yaml:"redis" mapstructure:"redis"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
	Inbox         inbox.Config         `yaml:"inbox" mapstructure:"inbox"`
	Acquisition   acquisition.Config   `yaml:"acquisition" mapstructure:"acquisition"`

	// Retry bounds every provider call. Its jitter is the per-style delay
	// unit of the image fan-out as well.
	Retry resilience.AttemptConfig `yaml:"retry" mapstructure:"retry"`

	Transcript TranscriptConfig `yaml:"transcript" mapstructure:"transcript"`
	Summary    SummaryConfig    `yaml:"summary" mapstructure:"summary"`
	Image      ImageConfig      `yaml:"image" mapstructure:"image"`
	Autogen    AutogenConfig    `yaml:"autogen" mapstructure:"autogen"`

	OpenAI      openai.Config      `yaml:"openai" mapstructure:"openai"`
	StabilityAI stabilityai.Config `yaml:"stabilityai" mapstructure:"stabilityai"`
	DeepAI      deepai.Config      `yaml:"deepai" mapstructure:"deepai"`
	Dream       dream.Config       `yaml:"dream" mapstructure:"dream"`
	LeonardoAI  leonardoai.Config  `yaml:"leonardoai" mapstructure:"leonardoai"`
	Midjourney  midjourney.Config  `yaml:"midjourney" mapstructure:"midjourney"`
	Gemini      gemini.Config      `yaml:"gemini" mapstructure:"gemini"`
}

// TranscriptConfig drives the transcript trigger.
type TranscriptConfig struct {
	// Interval is how often the trigger evaluates.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
	// Minutes is how long a transcript stays eligible.
	Minutes int `yaml:"minutes" mapstructure:"minutes" validate:"gte=0"`
	// Minimum is the transcript count that starts a cycle.
	Minimum int `yaml:"minimum" mapstructure:"minimum" validate:"gte=0"`
	// Cooldown skips the trigger while the newest image is younger.
	Cooldown time.Duration `yaml:"cooldown" mapstructure:"cooldown"`
}

// SummaryConfig selects the summarizer. Prompt and RandomPrompt, when
// set, replace the prompts of every summary capable provider.
type SummaryConfig struct {
	Provider     string `yaml:"provider" mapstructure:"provider"`
	Prompt       string `yaml:"prompt" mapstructure:"prompt"`
	RandomPrompt string `yaml:"random_prompt" mapstructure:"random_prompt"`
}

// ImageConfig restricts the image fan-out.
type ImageConfig struct {
	// Providers lists the generators used per cycle. Empty means every
	// configured provider with image generation enabled.
	Providers []string `yaml:"providers" mapstructure:"providers"`
	// Order is the frame feed order, recent or random.
	Order string `yaml:"order" mapstructure:"order" validate:"omitempty,oneof=recent random"`
}

// AutogenConfig drives random summary cycles.
type AutogenConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
	Prompt   string        `yaml:"prompt" mapstructure:"prompt"`
	Keywords []string      `yaml:"keywords" mapstructure:"keywords"`
}

// Load reads, defaults and validates the configuration of serviceName.
func Load(serviceName string, opts ...LoaderOption) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = serviceName
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero values across every block.
func (c *AppConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.Redis.ApplyDefaults()
	if c.Observability.ServiceVersion == "" {
		c.Observability.ServiceVersion = c.Version
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = c.Environment
	}
	c.Observability.ApplyDefaults()
	c.Inbox.ApplyDefaults()
	c.Acquisition.ApplyDefaults()
	c.Retry.ApplyDefaults()

	if c.Transcript.Interval <= 0 {
		c.Transcript.Interval = 30 * time.Minute
	}
	if c.Transcript.Minutes <= 0 {
		c.Transcript.Minutes = 30
	}
	if c.Transcript.Minimum <= 0 {
		c.Transcript.Minimum = 5
	}
	if c.Transcript.Cooldown <= 0 {
		c.Transcript.Cooldown = 5 * time.Minute
	}
	if c.Summary.Provider == "" {
		c.Summary.Provider = string(provider.OpenAI)
	}
	if c.Image.Order == "" {
		c.Image.Order = "recent"
	}
	if c.Autogen.Interval <= 0 {
		c.Autogen.Interval = 30 * time.Minute
	}

	if p := c.Summary.Prompt; p != "" {
		c.OpenAI.Summary.Prompt = p
		c.Gemini.Summary.Prompt = p
	}
	if p := c.Summary.RandomPrompt; p != "" {
		c.OpenAI.Summary.Random = p
		c.Gemini.Summary.Random = p
	}
	c.OpenAI.ApplyDefaults()
	c.StabilityAI.ApplyDefaults()
	c.DeepAI.ApplyDefaults()
	c.Dream.ApplyDefaults()
	c.LeonardoAI.ApplyDefaults()
	c.Midjourney.ApplyDefaults()
	c.Gemini.ApplyDefaults()
}

// Validate runs the block validators, the struct tags and the rules that
// span several fields. It expects ApplyDefaults to have run.
func (c *AppConfig) Validate() error {
	for _, check := range []func() error{
		c.ServiceConfig.Validate,
		c.Server.Validate,
		c.Database.Validate,
		c.Storage.Validate,
		c.Redis.Validate,
		c.Observability.Validate,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	if err := validation.Validate(c); err != nil {
		return err
	}

	v := validation.New()
	if _, err := provider.ParseName(c.Summary.Provider); err != nil {
		v.Add("summary.provider", err.Error())
	}
	for i, name := range c.Image.Providers {
		if _, err := provider.ParseName(name); err != nil {
			v.Add(fmt.Sprintf("image.providers[%d]", i), err.Error())
		}
	}
	v.Check(c.Retry.JitterMin <= c.Retry.JitterMax, "retry.jitter_min", "must not exceed retry.jitter_max")

	im := c.StabilityAI.Image
	v.MultipleOf("stabilityai.image.width", im.Width, 64).
		MultipleOf("stabilityai.image.height", im.Height, 64)
	minPixels, engine := stabilityMinPixels, "512x512"
	if strings.Contains(im.EngineID, "768") {
		minPixels, engine = stability768MinPixel, "768x768"
	}
	pixels := im.Width * im.Height
	v.Check(pixels >= minPixels && pixels <= stabilityMaxPixels, "stabilityai.image",
		fmt.Sprintf("width x height must be between %s and 1024x1024 for engine %s", engine, im.EngineID))

	if err := c.Midjourney.Validate(); err != nil {
		v.Add("midjourney.image.upscale", err.Error())
	}

	return v.Err()
}

// ConfiguredProviders lists the providers that have credentials.
func (c *AppConfig) ConfiguredProviders() []provider.Name {
	var out []provider.Name
	for _, p := range []struct {
		name provider.Name
		cred string
	}{
		{provider.OpenAI, c.OpenAI.Key},
		{provider.StabilityAI, c.StabilityAI.Key},
		{provider.DeepAI, c.DeepAI.Key},
		{provider.Dream, c.Dream.Key},
		{provider.LeonardoAI, c.LeonardoAI.Key},
		{provider.Midjourney, c.Midjourney.Token},
		{provider.Gemini, c.Gemini.Key},
	} {
		if p.cred != "" {
			out = append(out, p.name)
		}
	}
	return out
}

// CoordinatorConfig derives the coordinator settings. Validate must have
// passed.
func (c *AppConfig) CoordinatorConfig() coordinator.Config {
	images := make([]provider.Name, 0, len(c.Image.Providers))
	for _, s := range c.Image.Providers {
		name, _ := provider.ParseName(s)
		images = append(images, name)
	}
	summary, _ := provider.ParseName(c.Summary.Provider)
	return coordinator.Config{
		SummaryProvider:  summary,
		ImageProviders:   images,
		TranscriptWindow: c.transcriptWindow(),
		ServiceName:      c.Name,
	}
}

// TriggerConfig derives the transcript trigger settings.
func (c *AppConfig) TriggerConfig() coordinator.TriggerConfig {
	return coordinator.TriggerConfig{
		Interval: c.Transcript.Interval,
		Window:   c.transcriptWindow(),
		Minimum:  c.Transcript.Minimum,
		Cooldown: c.Transcript.Cooldown,
	}
}

// AutogenConfig derives the random summary settings.
func (c *AppConfig) AutogenConfig() coordinator.AutogenConfig {
	return coordinator.AutogenConfig{
		Enabled:  c.Autogen.Enabled,
		Interval: c.Autogen.Interval,
		Prompt:   c.Autogen.Prompt,
		Keywords: c.Autogen.Keywords,
	}
}

func (c *AppConfig) transcriptWindow() time.Duration {
	return time.Duration(c.Transcript.Minutes) * time.Minute
}
