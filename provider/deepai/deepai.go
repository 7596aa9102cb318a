// Package deepai generates images with the DeepAI generator endpoints.
package deepai

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/phrame/errors"
	"github.com/kbukum/phrame/httpclient"
	"github.com/kbukum/phrame/provider"
)

const selfTestTimeout = 10 * time.Second

// Adapter is the DeepAI image generator.
type Adapter struct {
	cfg  Config
	http *httpclient.Adapter
}

type generationResponse struct {
	ID        string `json:"id"`
	OutputURL string `json:"output_url"`
}

// New creates the adapter.
func New(cfg Config, opts ...httpclient.Option) (*Adapter, error) {
	cfg.ApplyDefaults()
	client, err := httpclient.New(httpclient.Config{
		Name:    string(provider.DeepAI),
		BaseURL: cfg.BaseURL,
		Timeout: cfg.timeout(),
		Auth:    httpclient.APIKeyAuthHeader(cfg.Key, "api-key"),
	}, opts...)
	if err != nil {
		return nil, err
	}
	return &Adapter{cfg: cfg, http: client}, nil
}

func (a *Adapter) Name() string { return string(provider.DeepAI) }

func (a *Adapter) IsAvailable(context.Context) bool { return a.cfg.Key != "" }

func (a *Adapter) ImageOptions() provider.ImageOptions { return a.cfg.Image.ImageOptions }

// GenerateImages posts the summary to the generator named by the style.
func (a *Adapter) GenerateImages(ctx context.Context, req provider.ImageRequest) ([]provider.GeneratedImage, error) {
	im := a.cfg.Image
	form := &httpclient.MultipartBody{Fields: map[string]string{
		"text":      req.Summary,
		"grid_size": strconv.Itoa(im.GridSize),
		"width":     strconv.Itoa(im.Width),
		"height":    strconv.Itoa(im.Height),
	}}
	if im.NegativePrompt != "" {
		form.Fields["negative_prompt"] = im.NegativePrompt
	}

	resp, err := httpclient.Post[generationResponse](a.http, ctx, "/api/"+endpoint(req.Style), form)
	if err != nil {
		return nil, err
	}
	if resp.Data.OutputURL == "" {
		return nil, errors.ProviderFailed(a.Name(), "output_url missing")
	}
	return []provider.GeneratedImage{provider.URLImage(provider.DeepAI, req.Style, resp.Data.OutputURL)}, nil
}

func endpoint(style string) string {
	if style == provider.NoStyle {
		return "text2img"
	}
	return style
}

// SelfTest posts an unauthenticated request. DeepAI answers with a status
// asking for a valid api-key when the service is reachable.
func (a *Adapter) SelfTest(ctx context.Context) provider.HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, selfTestTimeout)
	defer cancel()

	resp, err := a.http.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/api/text2img",
		Auth:   httpclient.NoAuth(),
	})
	if resp == nil {
		return provider.Unavailable(provider.DeepAI, a.DescribeError(err))
	}

	var body struct {
		Status string `json:"status"`
	}
	_ = json.Unmarshal(resp.Body, &body)
	if strings.Contains(strings.ToLower(body.Status), "valid api-key") {
		return provider.Healthy(provider.DeepAI, "reachable")
	}
	return provider.Degraded(provider.DeepAI, "unexpected response", map[string]any{
		"status_code": resp.StatusCode,
		"body":        string(resp.Body),
	})
}

// DescribeError prefers the status or err field of the error body.
func (a *Adapter) DescribeError(err error) string {
	return httpclient.BodyMessage(err, "status", "err")
}

// Close releases idle connections.
func (a *Adapter) Close(ctx context.Context) error { return a.http.Close(ctx) }

var (
	_ provider.ImageGenerator = (*Adapter)(nil)
	_ provider.Tester         = (*Adapter)(nil)
	_ provider.Describer      = (*Adapter)(nil)
)
