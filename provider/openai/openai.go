// Package openai adapts the OpenAI API: chat completions produce summaries
// and the images endpoint produces URL images.
package openai

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/kbukum/phrame/errors"
	"github.com/kbukum/phrame/provider"
)

var newlines = strings.NewReplacer("\r\n", "", "\n", "", "\r", "")

// Adapter is the OpenAI summarizer and image generator.
type Adapter struct {
	cfg    Config
	client openai.Client
}

// Option customizes the SDK client.
type Option = option.RequestOption

// WithHTTPClient sends requests through c.
func WithHTTPClient(c *http.Client) Option { return option.WithHTTPClient(c) }

// New creates the adapter. SDK level retries are disabled; retries belong
// to the attempt handler.
func New(cfg Config, opts ...Option) *Adapter {
	cfg.ApplyDefaults()
	base := []option.RequestOption{
		option.WithAPIKey(cfg.Key),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		base = append(base, option.WithBaseURL(cfg.BaseURL))
	}
	return &Adapter{cfg: cfg, client: openai.NewClient(append(base, opts...)...)}
}

func (a *Adapter) Name() string { return string(provider.OpenAI) }

func (a *Adapter) IsAvailable(context.Context) bool { return a.cfg.Key != "" }

func (a *Adapter) ImageOptions() provider.ImageOptions { return a.cfg.Image.ImageOptions }

// Summarize condenses the transcripts, joined by spaces, with the
// configured system prompt.
func (a *Adapter) Summarize(ctx context.Context, transcripts []string) (string, error) {
	return a.complete(ctx,
		openai.SystemMessage(a.cfg.Summary.Prompt),
		openai.UserMessage(strings.Join(transcripts, " ")),
	)
}

// RandomSummary asks for a free description. seed.Prompt replaces the
// configured random prompt and seed.Context is sent as keywords.
func (a *Adapter) RandomSummary(ctx context.Context, seed provider.Seed) (string, error) {
	prompt := a.cfg.Summary.Random
	if seed.Prompt != "" {
		prompt = seed.Prompt
	}
	msgs := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(prompt)}
	if seed.Context != "" {
		msgs = append(msgs, openai.UserMessage("Keywords: "+seed.Context))
	}
	return a.complete(ctx, msgs...)
}

func (a *Adapter) complete(ctx context.Context, msgs ...openai.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(a.cfg.Summary.Model),
		Messages: msgs,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.ProviderFailed(a.Name(), "empty choices")
	}
	return strings.TrimSpace(newlines.Replace(resp.Choices[0].Message.Content)), nil
}

// GenerateImages requests Image.N images for "<summary>, <style>".
func (a *Adapter) GenerateImages(ctx context.Context, req provider.ImageRequest) ([]provider.GeneratedImage, error) {
	prompt := req.Summary
	if req.Style != provider.NoStyle {
		prompt += ", " + req.Style
	}
	resp, err := a.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModel(a.cfg.Image.Model),
		N:              openai.Int(int64(a.cfg.Image.N)),
		Size:           openai.ImageGenerateParamsSize(a.cfg.Image.Size),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatURL,
	})
	if err != nil {
		return nil, err
	}

	var images []provider.GeneratedImage
	for _, img := range resp.Data {
		var g provider.GeneratedImage
		switch {
		case img.URL != "":
			g = provider.URLImage(provider.OpenAI, req.Style, img.URL)
		case img.B64JSON != "":
			g = provider.Base64Image(provider.OpenAI, req.Style, img.B64JSON)
		default:
			continue
		}
		images = append(images, g.WithMeta("revised_prompt", img.RevisedPrompt))
	}
	return images, nil
}

// SelfTest lists the available models.
func (a *Adapter) SelfTest(ctx context.Context) provider.HealthStatus {
	if _, err := a.client.Models.List(ctx); err != nil {
		return provider.Unavailable(provider.OpenAI, a.DescribeError(err))
	}
	return provider.Healthy(provider.OpenAI, "connected")
}

// DescribeError returns the API error message when there is one.
func (a *Adapter) DescribeError(err error) string {
	var apiErr *openai.Error
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
