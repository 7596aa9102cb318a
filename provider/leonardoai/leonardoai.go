// Package leonardoai generates images with the Leonardo.Ai REST API by
// creating a generation and polling it until its images are ready.
package leonardoai

import (
	"context"
	"net/http"
	"time"

	"github.com/kbukum/phrame/httpclient"
	"github.com/kbukum/phrame/logger"
	"github.com/kbukum/phrame/provider"
	"github.com/kbukum/phrame/resilience"
)

const selfTestTimeout = 10 * time.Second

// Adapter is the Leonardo.Ai image generator.
type Adapter struct {
	cfg       Config
	http      *httpclient.Adapter
	attempter *resilience.Attempter
	log       *logger.Logger
}

type generationRequest struct {
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt,omitempty"`
	ModelID           string  `json:"modelId,omitempty"`
	SDVersion         string  `json:"sd_version,omitempty"`
	NumImages         int     `json:"num_images"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	NumInferenceSteps int     `json:"num_inference_steps,omitempty"`
	GuidanceScale     float64 `json:"guidance_scale,omitempty"`
	Scheduler         string  `json:"scheduler,omitempty"`
	PresetStyle       string  `json:"presetStyle,omitempty"`
	Tiling            bool    `json:"tiling"`
	Public            bool    `json:"public"`
	PromptMagic       bool    `json:"promptMagic"`
}

type createResponse struct {
	SDGenerationJob struct {
		GenerationID string `json:"generationId"`
	} `json:"sdGenerationJob"`
}

type generationResponse struct {
	Generation struct {
		Status          string `json:"status"`
		GeneratedImages []struct {
			URL string `json:"url"`
		} `json:"generated_images"`
	} `json:"generations_by_pk"`
}

// New creates the adapter. The create step is retried through attempter.
func New(cfg Config, attempter *resilience.Attempter, opts ...httpclient.Option) (*Adapter, error) {
	cfg.ApplyDefaults()
	client, err := httpclient.New(httpclient.Config{
		Name:    string(provider.LeonardoAI),
		BaseURL: cfg.BaseURL,
		Auth:    httpclient.BearerAuth(cfg.Key),
	}, opts...)
	if err != nil {
		return nil, err
	}
	a := &Adapter{cfg: cfg, http: client}
	a.log = attempter.Logger().WithComponent(a.Name())
	a.attempter = attempter.For(a.log, a.DescribeError)
	return a, nil
}

func (a *Adapter) Name() string { return string(provider.LeonardoAI) }

func (a *Adapter) IsAvailable(context.Context) bool { return a.cfg.Key != "" }

func (a *Adapter) ImageOptions() provider.ImageOptions { return a.cfg.Image.ImageOptions }

// GenerateImages creates a generation and polls it. A generation without
// an id, a failed one and a timeout all yield no images and no error.
func (a *Adapter) GenerateImages(ctx context.Context, req provider.ImageRequest) ([]provider.GeneratedImage, error) {
	im := a.cfg.Image
	prompt := req.Summary
	if req.Style != provider.NoStyle {
		prompt += ", " + req.Style
	}
	body := generationRequest{
		Prompt:            prompt,
		NegativePrompt:    im.NegativePrompt,
		ModelID:           im.ModelID,
		SDVersion:         im.SDVersion,
		NumImages:         im.NumImages,
		Width:             im.Width,
		Height:            im.Height,
		NumInferenceSteps: im.NumInferenceSteps,
		GuidanceScale:     im.GuidanceScale,
		Scheduler:         im.Scheduler,
		PresetStyle:       im.PresetStyle,
		Tiling:            im.Tiling,
		Public:            im.Public,
		PromptMagic:       im.PromptMagic,
	}

	id, ok := resilience.Attempt(ctx, a.attempter, "create generation", func(ctx context.Context) (string, error) {
		resp, err := httpclient.Post[createResponse](a.http, ctx, "/api/rest/v1/generations", body)
		if err != nil {
			return "", err
		}
		return resp.Data.SDGenerationJob.GenerationID, nil
	})
	if !ok || id == "" {
		a.log.Error("generation id not found")
		return nil, nil
	}

	urls, done, err := provider.Poll(ctx, a.log, &provider.ProviderTask{ID: id}, provider.PollConfig{
		Timeout:  im.Timeout,
		Sleep:    a.attempter.Sleep,
		Describe: a.DescribeError,
	}, func(ctx context.Context) (provider.TaskStatus, []string, error) {
		resp, err := httpclient.Get[generationResponse](a.http, ctx, "/api/rest/v1/generations/"+id)
		if err != nil {
			return "", nil, err
		}
		g := resp.Data.Generation
		switch g.Status {
		case "FAILED":
			return provider.TaskFailed, nil, nil
		case "COMPLETE":
			urls := make([]string, 0, len(g.GeneratedImages))
			for _, img := range g.GeneratedImages {
				urls = append(urls, img.URL)
			}
			return provider.TaskCompleted, urls, nil
		default:
			return provider.TaskPending, nil, nil
		}
	})
	if err != nil || !done {
		return nil, err
	}

	images := make([]provider.GeneratedImage, 0, len(urls))
	for _, u := range urls {
		images = append(images, provider.URLImage(provider.LeonardoAI, req.Style, u))
	}
	return images, nil
}

// SelfTest fetches the authenticated user.
func (a *Adapter) SelfTest(ctx context.Context) provider.HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, selfTestTimeout)
	defer cancel()
	if _, err := a.http.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/api/rest/v1/me"}); err != nil {
		return provider.Unavailable(provider.LeonardoAI, a.DescribeError(err))
	}
	return provider.Healthy(provider.LeonardoAI, "connected")
}

// DescribeError prefers the error field of the error body.
func (a *Adapter) DescribeError(err error) string {
	return httpclient.BodyMessage(err, "error")
}

// Close releases idle connections.
func (a *Adapter) Close(ctx context.Context) error { return a.http.Close(ctx) }

var (
	_ provider.ImageGenerator = (*Adapter)(nil)
	_ provider.Tester         = (*Adapter)(nil)
	_ provider.Describer      = (*Adapter)(nil)
)
