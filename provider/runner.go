package provider

import (
	"context"
	"fmt"

	"github.com/kbukum/phrame/errors"
	"github.com/kbukum/phrame/logger"
	"github.com/kbukum/phrame/resilience"
)

// Acquirer turns a batch of generated images into saved files.
type Acquirer interface {
	Acquire(ctx context.Context, batch Batch) []SavedImage
}

// Runner drives one image provider through its configured styles.
type Runner struct {
	gen       ImageGenerator
	exec      RequestResponse[ImageRequest, []GeneratedImage]
	attempter *resilience.Attempter
	acquirer  Acquirer
	log       *logger.Logger
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithMiddleware wraps the single-style generator, e.g. with WithLogging,
// WithTracing and WithMetrics.
func WithMiddleware(mw ...Middleware[ImageRequest, []GeneratedImage]) RunnerOption {
	return func(r *Runner) {
		r.exec = Chain(mw...)(r.exec)
	}
}

// NewRunner composes gen with the attempt handler and acquirer. Failures
// are logged under the provider's component name and described with its
// DescribeError when it implements Describer.
func NewRunner(gen ImageGenerator, a *resilience.Attempter, acq Acquirer, opts ...RunnerOption) *Runner {
	log := a.Logger().WithComponent(gen.Name())
	describe := errors.Describe
	if d, ok := gen.(Describer); ok {
		describe = d.DescribeError
	}
	r := &Runner{
		gen:       gen,
		exec:      AsRequestResponse(gen),
		attempter: a.For(log, describe),
		acquirer:  acq,
		log:       log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name returns the provider name.
func (r *Runner) Name() Name { return Name(r.gen.Name()) }

// Generate runs every configured style in order for summary. Each style is
// retry-wrapped independently; a style that exhausts its attempts does not
// stop the following ones. Images of each successful style are acquired
// before the next style starts.
func (r *Runner) Generate(ctx context.Context, summaryID, summary string) []SavedImage {
	opts := r.gen.ImageOptions()
	styles := opts.Styles()

	var saved []SavedImage
	for i, style := range styles {
		r.log.Info(fmt.Sprintf("processing: %d/%d style(s)", i+1, len(styles)))

		req := ImageRequest{SummaryID: summaryID, Summary: summary, Style: style}
		images, ok := resilience.Attempt(ctx, r.attempter, "image", func(ctx context.Context) ([]GeneratedImage, error) {
			return r.exec.Execute(ctx, req)
		})
		if ok && len(images) > 0 && r.acquirer != nil {
			saved = append(saved, r.acquirer.Acquire(ctx, Batch{
				SummaryID: summaryID,
				Provider:  r.Name(),
				Style:     style,
				Trim:      opts.Trim,
				Images:    images,
			})...)
		}

		if err := r.attempter.Pause(ctx); err != nil {
			r.log.Warn("image generation stopped: " + errors.Describe(err))
			break
		}
	}
	return saved
}
