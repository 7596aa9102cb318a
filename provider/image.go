package provider

import "strings"

// NoStyle is used when a provider has no styles configured.
const NoStyle = "no style"

// Source is where the bytes of a generated image come from: a SourceURL
// or a SourceInline.
type Source interface {
	isSource()
}

// SourceURL is an image the provider hosts for download.
type SourceURL struct {
	URL string
}

// Encoding says how an inline payload is written.
type Encoding int

const (
	// EncodingRaw is image bytes as they would be stored.
	EncodingRaw Encoding = iota
	// EncodingBase64 is standard base64 text, surrounding whitespace allowed.
	EncodingBase64
)

// SourceInline is an image returned in the response body.
type SourceInline struct {
	Payload  []byte
	Encoding Encoding
}

func (SourceURL) isSource()    {}
func (SourceInline) isSource() {}

// GeneratedImage describes one image returned by a provider. Metadata is
// stored with the image next to its ai and style rows.
type GeneratedImage struct {
	Provider Name
	Style    string
	Source   Source
	Metadata map[string]string
}

// WithMeta returns a copy of g carrying key=value. Empty values are
// dropped.
func (g GeneratedImage) WithMeta(key, value string) GeneratedImage {
	if value == "" {
		return g
	}
	meta := make(map[string]string, len(g.Metadata)+1)
	for k, v := range g.Metadata {
		meta[k] = v
	}
	meta[key] = value
	g.Metadata = meta
	return g
}

// URLImage builds a GeneratedImage that must be downloaded.
func URLImage(p Name, style, url string) GeneratedImage {
	return GeneratedImage{Provider: p, Style: style, Source: SourceURL{URL: url}}
}

// InlineImage builds a GeneratedImage from raw image bytes.
func InlineImage(p Name, style string, payload []byte) GeneratedImage {
	return GeneratedImage{Provider: p, Style: style, Source: SourceInline{Payload: payload}}
}

// Base64Image builds a GeneratedImage from base64 text in the response.
func Base64Image(p Name, style, text string) GeneratedImage {
	return GeneratedImage{Provider: p, Style: style, Source: SourceInline{Payload: []byte(text), Encoding: EncodingBase64}}
}

// SavedImage is a GeneratedImage that reached storage.
type SavedImage struct {
	Provider Name              `json:"ai"`
	Filename string            `json:"filename"`
	Style    string            `json:"style"`
	Metadata map[string]string `json:"meta,omitempty"`
}

// ImageOptions is the image block shared by every image capable provider.
type ImageOptions struct {
	Enable bool `yaml:"enable" mapstructure:"enable"`
	// Trim removes uniform borders from saved images.
	Trim  bool     `yaml:"trim" mapstructure:"trim"`
	Style []string `yaml:"style" mapstructure:"style"`
}

// Styles returns the styles to run in order. An empty list yields a single
// NoStyle pass and blank entries are replaced with NoStyle.
func (o ImageOptions) Styles() []string {
	if len(o.Style) == 0 {
		return []string{NoStyle}
	}
	out := make([]string, len(o.Style))
	for i, s := range o.Style {
		if s = strings.TrimSpace(s); s == "" {
			s = NoStyle
		}
		out[i] = s
	}
	return out
}

// Batch is the set of images one style produced for a summary.
type Batch struct {
	SummaryID string
	Provider  Name
	Style     string
	Trim      bool
	Images    []GeneratedImage
}
