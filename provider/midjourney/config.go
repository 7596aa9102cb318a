package midjourney

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kbukum/phrame/provider"
)

const (
	defaultGatewayURL    = "wss://gateway.discord.gg/?v=9&encoding=json"
	defaultAPIURL        = "https://discord.com/api/v9"
	defaultApplicationID = "936929561302675456"
)

// Upscale modes besides a fixed count.
const (
	UpscaleNone   = "none"
	UpscaleRandom = "random"
)

// Config configures the Midjourney adapter and its Discord session.
type Config struct {
	// Token is the Discord user token the session acts as.
	Token     string `yaml:"token" mapstructure:"token"`
	ServerID  string `yaml:"server_id" mapstructure:"server_id"`
	ChannelID string `yaml:"channel_id" mapstructure:"channel_id"`

	GatewayURL    string `yaml:"gateway_url" mapstructure:"gateway_url"`
	APIURL        string `yaml:"api_url" mapstructure:"api_url"`
	ApplicationID string `yaml:"application_id" mapstructure:"application_id"`

	Image ImageConfig `yaml:"image" mapstructure:"image"`
}

// ImageConfig configures imagine and upscale.
type ImageConfig struct {
	provider.ImageOptions `yaml:",inline" mapstructure:",squash"`

	// Parameters are appended to every prompt.
	Parameters string `yaml:"parameters" mapstructure:"parameters"`
	// Upscale is none, random or a count from 1 to 4.
	Upscale string `yaml:"upscale" mapstructure:"upscale"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.GatewayURL == "" {
		c.GatewayURL = defaultGatewayURL
	}
	if c.APIURL == "" {
		c.APIURL = defaultAPIURL
	}
	if c.ApplicationID == "" {
		c.ApplicationID = defaultApplicationID
	}
	if c.Image.Parameters == "" {
		c.Image.Parameters = "--chaos 80 --no text"
	}
	if c.Image.Upscale == "" {
		c.Image.Upscale = UpscaleRandom
	}
	if len(c.Image.Style) == 0 {
		c.Image.Style = []string{"cinematic"}
	}
}

// Validate checks the upscale mode.
func (c *Config) Validate() error {
	_, err := ParseUpscale(c.Image.Upscale)
	return err
}

// ParseUpscale returns the fixed upscale count, 0 for none and -1 for
// random.
func ParseUpscale(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", UpscaleNone:
		return 0, nil
	case UpscaleRandom:
		return -1, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 4 {
		return 0, fmt.Errorf("midjourney: upscale must be none, random or 1-4, got %q", s)
	}
	return n, nil
}

// upscaleIndexes lists the grid positions to upscale. intn returns a
// number in [0, n).
func upscaleIndexes(mode string, intn func(n int) int) []int {
	n, err := ParseUpscale(mode)
	switch {
	case err != nil || n == 0:
		return nil
	case n < 0:
		return []int{intn(4) + 1}
	}
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
