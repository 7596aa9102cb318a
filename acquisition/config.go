package acquisition

import "time"

// DefaultDownloadTimeout bounds a single image download.
const DefaultDownloadTimeout = 15 * time.Second

// DefaultTrimThreshold is used when trim_threshold is not set.
const DefaultTrimThreshold = 10

// Config configures image acquisition.
type Config struct {
	DownloadTimeout time.Duration `yaml:"download_timeout" mapstructure:"download_timeout"`
	// TrimThreshold is the per-channel distance, on a 0-255 scale, under
	// which a border pixel counts as background. 0 trims only borders of
	// exactly the corner colour.
	TrimThreshold *int `yaml:"trim_threshold" mapstructure:"trim_threshold" validate:"omitempty,gte=0,lte=255"`
	// MaxConcurrent caps the saves running at once.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"gte=0"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.DownloadTimeout <= 0 {
		c.DownloadTimeout = DefaultDownloadTimeout
	}
	if c.TrimThreshold == nil {
		c.TrimThreshold = new(int)
		*c.TrimThreshold = DefaultTrimThreshold
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 4
	}
}
