// Package stabilityai generates images with the Stability AI REST API.
// Images come back inline as base64 artifacts.
package stabilityai

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/kbukum/phrame/errors"
	"github.com/kbukum/phrame/httpclient"
	"github.com/kbukum/phrame/provider"
)

// Adapter is the Stability AI image generator.
type Adapter struct {
	cfg  Config
	http *httpclient.Adapter
}

type textPrompt struct {
	Text string `json:"text"`
}

type generationRequest struct {
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	CfgScale    int          `json:"cfg_scale"`
	Samples     int          `json:"samples"`
	Steps       int          `json:"steps"`
	StylePreset string       `json:"style_preset,omitempty"`
	TextPrompts []textPrompt `json:"text_prompts"`
}

type generationResponse struct {
	Artifacts []struct {
		Base64       string `json:"base64"`
		FinishReason string `json:"finishReason"`
	} `json:"artifacts"`
}

// New creates the adapter.
func New(cfg Config, opts ...httpclient.Option) (*Adapter, error) {
	cfg.ApplyDefaults()
	client, err := httpclient.New(httpclient.Config{
		Name:    string(provider.StabilityAI),
		BaseURL: cfg.BaseURL,
		Timeout: cfg.timeout(),
		Auth:    httpclient.BearerAuth(cfg.Key),
		Headers: map[string]string{"Accept": "application/json"},
	}, opts...)
	if err != nil {
		return nil, err
	}
	return &Adapter{cfg: cfg, http: client}, nil
}

func (a *Adapter) Name() string { return string(provider.StabilityAI) }

func (a *Adapter) IsAvailable(context.Context) bool { return a.cfg.Key != "" }

func (a *Adapter) ImageOptions() provider.ImageOptions { return a.cfg.Image.ImageOptions }

// GenerateImages runs one text-to-image request. The style is sent as the
// style preset unless it is provider.NoStyle.
func (a *Adapter) GenerateImages(ctx context.Context, req provider.ImageRequest) ([]provider.GeneratedImage, error) {
	im := a.cfg.Image
	body := generationRequest{
		Width:       im.Width,
		Height:      im.Height,
		CfgScale:    im.CfgScale,
		Samples:     im.Samples,
		Steps:       im.Steps,
		TextPrompts: []textPrompt{{Text: req.Summary}},
	}
	if req.Style != provider.NoStyle {
		body.StylePreset = req.Style
	}

	path := fmt.Sprintf("/v1/generation/%s/text-to-image", im.EngineID)
	resp, err := httpclient.Post[generationResponse](a.http, ctx, path, body)
	if err != nil {
		return nil, err
	}
	if len(resp.Data.Artifacts) == 0 {
		return nil, errors.ProviderFailed(a.Name(), "no artifacts returned")
	}

	images := make([]provider.GeneratedImage, 0, len(resp.Data.Artifacts))
	for _, art := range resp.Data.Artifacts {
		data, err := base64.StdEncoding.DecodeString(art.Base64)
		if err != nil {
			return nil, errors.ProviderFailed(a.Name(), "invalid artifact encoding").WithCause(err)
		}
		img := provider.InlineImage(provider.StabilityAI, req.Style, data)
		images = append(images, img.WithMeta("finish_reason", art.FinishReason))
	}
	return images, nil
}

// SelfTest reads the account balance.
func (a *Adapter) SelfTest(ctx context.Context) provider.HealthStatus {
	if _, err := a.http.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/v1/user/balance"}); err != nil {
		return provider.Unavailable(provider.StabilityAI, a.DescribeError(err))
	}
	return provider.Healthy(provider.StabilityAI, "connected")
}

// DescribeError prefers the message field of the error body.
func (a *Adapter) DescribeError(err error) string {
	return httpclient.BodyMessage(err, "message")
}

// Close releases idle connections.
func (a *Adapter) Close(ctx context.Context) error { return a.http.Close(ctx) }

var (
	_ provider.ImageGenerator = (*Adapter)(nil)
	_ provider.Tester         = (*Adapter)(nil)
	_ provider.Describer      = (*Adapter)(nil)
	_ provider.Closeable      = (*Adapter)(nil)
)
