// Package midjourney generates images through the Midjourney Discord bot.
//
// Every generation cycle opens its own Session: connect, read the job mode
// from /info, run /imagine and upscale the configured grid positions. The
// session is closed on every path.
package midjourney

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/kbukum/phrame/errors"
	"github.com/kbukum/phrame/logger"
	"github.com/kbukum/phrame/provider"
	"github.com/kbukum/phrame/resilience"
)

const (
	connectTimeout = 10 * time.Second
	infoTimeout    = 10 * time.Second
	fastWait       = 5 * time.Minute
	relaxedWait    = 10 * time.Minute
	statusTTL      = 5 * time.Minute
	statusKey      = "midjourney:status"
)

// Adapter is the Midjourney image generator.
type Adapter struct {
	cfg        Config
	newSession func() (Session, error)
	attempter  *resilience.Attempter
	log        *logger.Logger
	status     provider.Store[provider.HealthStatus]
	intn       func(n int) int
}

// Option customizes the adapter.
type Option func(*Adapter)

// WithSessionFactory replaces the Discord session, e.g. with a fake.
func WithSessionFactory(f func() (Session, error)) Option {
	return func(a *Adapter) { a.newSession = f }
}

// WithStatusStore caches self test results in s instead of process memory.
func WithStatusStore(s provider.Store[provider.HealthStatus]) Option {
	return func(a *Adapter) { a.status = s }
}

// WithIntn replaces the random source used by the random upscale mode.
func WithIntn(fn func(n int) int) Option {
	return func(a *Adapter) { a.intn = fn }
}

// New creates the adapter.
func New(cfg Config, attempter *resilience.Attempter, opts ...Option) (*Adapter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Validation(err.Error())
	}
	a := &Adapter{
		cfg:    cfg,
		status: provider.NewMemoryStore[provider.HealthStatus](),
		intn:   rand.IntN,
	}
	a.log = attempter.Logger().WithComponent(a.Name())
	a.attempter = attempter.For(a.log, nil)
	a.newSession = func() (Session, error) {
		s, err := NewDiscordSession(cfg, a.log)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Adapter) Name() string { return string(provider.Midjourney) }

func (a *Adapter) IsAvailable(context.Context) bool {
	return a.cfg.Token != "" && a.cfg.ChannelID != ""
}

func (a *Adapter) ImageOptions() provider.ImageOptions { return a.cfg.Image.ImageOptions }

func (a *Adapter) prompt(req provider.ImageRequest) string {
	p := req.Summary
	if req.Style != provider.NoStyle {
		p += ", " + req.Style
	}
	return strings.TrimSpace(p + " " + a.cfg.Image.Parameters)
}

// open connects a session and reads its info, each step under its own
// timeout. The session is returned even on error so it can be closed.
func (a *Adapter) open(ctx context.Context) (Session, Info, error) {
	sess, err := a.newSession()
	if err != nil {
		return nil, Info{}, err
	}

	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	err = sess.Connect(cctx)
	cancel()
	if err != nil {
		return sess, Info{}, err
	}

	ictx, cancel := context.WithTimeout(ctx, infoTimeout)
	info, err := sess.Info(ictx)
	cancel()
	return sess, info, err
}

// GenerateImages returns the imagine grid followed by the upscaled images.
// A failed upscale is logged and skipped.
func (a *Adapter) GenerateImages(ctx context.Context, req provider.ImageRequest) ([]provider.GeneratedImage, error) {
	sess, info, err := a.open(ctx)
	if sess != nil {
		defer func() { _ = sess.Close() }()
	}
	if err != nil {
		return nil, err
	}

	wait := fastWait
	if strings.EqualFold(info.JobMode, "relaxed") {
		wait = relaxedWait
	}

	ictx, cancel := context.WithTimeout(ctx, wait)
	grid, err := sess.Imagine(ictx, a.prompt(req), func(_, progress string) {
		a.log.Info("imagine: " + progress)
	})
	cancel()
	if err != nil {
		return nil, err
	}
	if grid.URI == "" {
		return nil, errors.ProviderFailed(a.Name(), "no image returned")
	}

	images := []provider.GeneratedImage{provider.URLImage(provider.Midjourney, req.Style, grid.URI)}
	if grid.ID == "" || grid.Hash == "" {
		return images, nil
	}

	for _, index := range upscaleIndexes(a.cfg.Image.Upscale, a.intn) {
		up, ok := resilience.Attempt(ctx, a.attempter, fmt.Sprintf("upscale %d/4", index), func(ctx context.Context) (Message, error) {
			if err := a.attempter.Pause(ctx); err != nil {
				return Message{}, err
			}
			uctx, cancel := context.WithTimeout(ctx, wait)
			defer cancel()
			m, err := sess.Upscale(uctx, grid, index, func(_, progress string) {
				a.log.Info("upscale progress " + progress)
			})
			if err != nil {
				return Message{}, err
			}
			if m.URI == "" {
				return Message{}, errors.ProviderFailed(a.Name(), "no image returned")
			}
			return m, nil
		})
		if ok {
			images = append(images, provider.URLImage(provider.Midjourney, req.Style, up.URI))
		}
	}
	return images, nil
}

// SelfTest connects and reads /info. A healthy result is cached for five
// minutes.
func (a *Adapter) SelfTest(ctx context.Context) provider.HealthStatus {
	cached, err := a.status.Load(ctx, statusKey)
	if err != nil {
		a.log.Warn("read cached status: " + errors.Describe(err))
	} else if cached != nil {
		return *cached
	}

	sess, info, err := a.open(ctx)
	if sess != nil {
		defer func() { _ = sess.Close() }()
	}
	if err != nil {
		a.log.Error("self test: " + errors.Describe(err))
		return provider.Unavailable(provider.Midjourney, errors.Describe(err))
	}
	a.log.Info("info", logger.Fields("job_mode", info.JobMode))

	status := provider.Healthy(provider.Midjourney, "job mode: "+info.JobMode)
	if err := a.status.Save(ctx, statusKey, &status, statusTTL); err != nil {
		a.log.Warn("cache status: " + errors.Describe(err))
	}
	return status
}

var (
	_ provider.ImageGenerator = (*Adapter)(nil)
	_ provider.Tester         = (*Adapter)(nil)
)
