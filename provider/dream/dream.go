// Package dream generates images with the Dream (luan.tools) task API.
//
// A generation creates a task, sets its input spec and polls the task once
// per second until it completes, fails or the poll budget runs out.
package dream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/phrame/httpclient"
	"github.com/kbukum/phrame/logger"
	"github.com/kbukum/phrame/provider"
	"github.com/kbukum/phrame/resilience"
)

// Adapter is the Dream image generator.
type Adapter struct {
	cfg       Config
	http      *httpclient.Adapter
	attempter *resilience.Attempter
	log       *logger.Logger
	styles    *catalogue
}

type task struct {
	ID     string `json:"id"`
	State  string `json:"state"`
	Result string `json:"result"`
}

type inputSpec struct {
	Style  *int   `json:"style,omitempty"`
	Prompt string `json:"prompt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// New creates the adapter. Nested steps are retried through attempter.
func New(cfg Config, attempter *resilience.Attempter, opts ...httpclient.Option) (*Adapter, error) {
	cfg.ApplyDefaults()
	client, err := httpclient.New(httpclient.Config{
		Name:    string(provider.Dream),
		BaseURL: cfg.BaseURL,
		Auth:    httpclient.BearerAuth(cfg.Key),
	}, opts...)
	if err != nil {
		return nil, err
	}

	var styles []Style
	if cfg.Image.StylesFile != "" {
		if styles, err = LoadStyles(cfg.Image.StylesFile); err != nil {
			return nil, err
		}
	}

	a := &Adapter{cfg: cfg, http: client}
	a.log = attempter.Logger().WithComponent(a.Name())
	a.attempter = attempter.For(a.log, a.DescribeError)
	a.styles = newCatalogue(styles, remoteStyles(client))
	return a, nil
}

func (a *Adapter) Name() string { return string(provider.Dream) }

func (a *Adapter) IsAvailable(context.Context) bool { return a.cfg.Key != "" }

func (a *Adapter) ImageOptions() provider.ImageOptions { return a.cfg.Image.ImageOptions }

// GenerateImages creates and starts a task, then polls it. A task that
// never gets an id, fails or times out yields no images and no error.
func (a *Adapter) GenerateImages(ctx context.Context, req provider.ImageRequest) ([]provider.GeneratedImage, error) {
	created, ok := resilience.Attempt(ctx, a.attempter, "create task", func(ctx context.Context) (task, error) {
		resp, err := httpclient.Post[task](a.http, ctx, "/api/tasks", map[string]bool{"use_target_image": false})
		if err != nil {
			return task{}, err
		}
		return resp.Data, nil
	})
	if !ok || created.ID == "" {
		a.log.Error("task id not found")
		return nil, nil
	}

	spec := inputSpec{Prompt: req.Summary, Width: a.cfg.Image.Width, Height: a.cfg.Image.Height}
	if id, found, err := a.styles.lookup(ctx, req.Style); err != nil {
		a.log.Warn("style catalogue unavailable: " + a.DescribeError(err))
	} else if found {
		spec.Style = &id
	}

	if !resilience.Run(ctx, a.attempter, "set task", func(ctx context.Context) error {
		_, err := a.http.Do(ctx, httpclient.Request{
			Method: http.MethodPut,
			Path:   "/api/tasks/" + created.ID,
			Body:   map[string]inputSpec{"input_spec": spec},
		})
		return err
	}) {
		return nil, nil
	}

	pt := &provider.ProviderTask{ID: created.ID}
	url, done, err := provider.Poll(ctx, a.log, pt, provider.PollConfig{
		Timeout:  a.cfg.Image.Timeout,
		Sleep:    a.attempter.Sleep,
		Describe: a.DescribeError,
	}, func(ctx context.Context) (provider.TaskStatus, string, error) {
		resp, err := httpclient.Get[task](a.http, ctx, "/api/tasks/"+created.ID)
		if err != nil {
			return "", "", err
		}
		switch resp.Data.State {
		case "failed":
			return provider.TaskFailed, "", nil
		case "completed":
			return provider.TaskCompleted, resp.Data.Result, nil
		default:
			return provider.TaskPending, "", nil
		}
	})
	if err != nil {
		return nil, err
	}
	if !done || url == "" {
		return nil, nil
	}
	return []provider.GeneratedImage{provider.URLImage(provider.Dream, req.Style, url)}, nil
}

// SelfTest looks up a random task id. An authorized client gets a
// "<id> not found" detail back.
func (a *Adapter) SelfTest(ctx context.Context) provider.HealthStatus {
	id := uuid.NewString()
	resp, err := a.http.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/api/tasks/" + id})
	if resp == nil {
		return provider.Unavailable(provider.Dream, a.DescribeError(err))
	}
	var body struct {
		Detail string `json:"detail"`
	}
	_ = json.Unmarshal(resp.Body, &body)
	detail := body.Detail
	if strings.Contains(strings.ToLower(detail), fmt.Sprintf("%s not found", id)) {
		return provider.Healthy(provider.Dream, "connected")
	}
	return provider.Degraded(provider.Dream, detail, map[string]any{"status_code": resp.StatusCode})
}

// DescribeError prefers the detail field of the error body.
func (a *Adapter) DescribeError(err error) string {
	return httpclient.BodyMessage(err, "detail")
}

// Close releases idle connections.
func (a *Adapter) Close(ctx context.Context) error { return a.http.Close(ctx) }

var (
	_ provider.ImageGenerator = (*Adapter)(nil)
	_ provider.Tester         = (*Adapter)(nil)
	_ provider.Describer      = (*Adapter)(nil)
)
