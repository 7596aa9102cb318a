// Package gemini adapts the Gemini API for summaries and Imagen for
// inline images.
package gemini

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/kbukum/phrame/errors"
	"github.com/kbukum/phrame/provider"
)

// Adapter is the Gemini summarizer and image generator.
type Adapter struct {
	cfg    Config
	client *genai.Client
}

// New creates the adapter. No request is made until the first call.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	cfg.ApplyDefaults()
	cc := &genai.ClientConfig{APIKey: cfg.Key, Backend: genai.BackendGeminiAPI}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Adapter{cfg: cfg, client: client}, nil
}

func (a *Adapter) Name() string { return string(provider.Gemini) }

func (a *Adapter) IsAvailable(context.Context) bool { return a.cfg.Key != "" }

func (a *Adapter) ImageOptions() provider.ImageOptions { return a.cfg.Image.ImageOptions }

// Summarize condenses the transcripts with the configured prompt.
func (a *Adapter) Summarize(ctx context.Context, transcripts []string) (string, error) {
	return a.generate(ctx, a.cfg.Summary.Prompt, strings.Join(transcripts, " "))
}

// RandomSummary asks for a free description, optionally steered by seed.
func (a *Adapter) RandomSummary(ctx context.Context, seed provider.Seed) (string, error) {
	prompt := a.cfg.Summary.Random
	if seed.Prompt != "" {
		prompt = seed.Prompt
	}
	user := "Describe a picture."
	if seed.Context != "" {
		user = "Keywords: " + seed.Context
	}
	return a.generate(ctx, prompt, user)
}

func (a *Adapter) generate(ctx context.Context, system, user string) (string, error) {
	resp, err := a.client.Models.GenerateContent(ctx, a.cfg.Summary.Model, genai.Text(user), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	})
	if err != nil {
		return "", err
	}
	text := strings.Join(strings.Fields(resp.Text()), " ")
	if text == "" {
		return "", errors.ProviderFailed(a.Name(), "empty response")
	}
	return text, nil
}

// GenerateImages runs Imagen for "<summary>, <style>". Images are inline.
func (a *Adapter) GenerateImages(ctx context.Context, req provider.ImageRequest) ([]provider.GeneratedImage, error) {
	prompt := req.Summary
	if req.Style != provider.NoStyle {
		prompt += ", " + req.Style
	}
	resp, err := a.client.Models.GenerateImages(ctx, a.cfg.Image.Model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: int32(a.cfg.Image.N),
	})
	if err != nil {
		return nil, err
	}

	var images []provider.GeneratedImage
	for _, g := range resp.GeneratedImages {
		if g.Image == nil || len(g.Image.ImageBytes) == 0 {
			continue
		}
		images = append(images, provider.InlineImage(provider.Gemini, req.Style, g.Image.ImageBytes))
	}
	return images, nil
}

// SelfTest fetches the summary model.
func (a *Adapter) SelfTest(ctx context.Context) provider.HealthStatus {
	if _, err := a.client.Models.Get(ctx, a.cfg.Summary.Model, nil); err != nil {
		return provider.Unavailable(provider.Gemini, a.DescribeError(err))
	}
	return provider.Healthy(provider.Gemini, "connected")
}

// DescribeError returns the API error message when there is one.
func (a *Adapter) DescribeError(err error) string {
	var apiErr genai.APIError
	if stderrors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return errors.Describe(err)
}

var (
	_ provider.Summarizer     = (*Adapter)(nil)
	_ provider.ImageGenerator = (*Adapter)(nil)
	_ provider.Tester         = (*Adapter)(nil)
	_ provider.Describer      = (*Adapter)(nil)
)
