package coordinator

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/kbukum/phrame/errors"
	"github.com/kbukum/phrame/logger"
	"github.com/kbukum/phrame/provider"
)

// TriggerConfig configures the transcript trigger.
type TriggerConfig struct {
	// Interval between evaluations.
	Interval time.Duration
	// Window is how long transcripts stay eligible.
	Window time.Duration
	// Minimum is the number of transcripts within Window that starts a cycle.
	Minimum int
	// Cooldown skips evaluations while the newest image is younger.
	Cooldown time.Duration
}

// ApplyDefaults fills zero values.
func (c *TriggerConfig) ApplyDefaults() {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Minute
	}
	if c.Window <= 0 {
		c.Window = 30 * time.Minute
	}
	if c.Minimum <= 0 {
		c.Minimum = 5
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 5 * time.Minute
	}
}

// Trigger starts ProcessTranscripts once enough recent transcripts exist.
type Trigger struct {
	cfg   TriggerConfig
	coord *Coordinator
	store TranscriptStore
	log   *logger.Logger
}

// NewTrigger creates a Trigger.
func NewTrigger(cfg TriggerConfig, coord *Coordinator, store TranscriptStore) *Trigger {
	cfg.ApplyDefaults()
	return &Trigger{cfg: cfg, coord: coord, store: store, log: coord.log.WithComponent("cron")}
}

// Run evaluates the trigger every Interval until ctx is done.
func (t *Trigger) Run(ctx context.Context) error {
	return every(ctx, t.cfg.Interval, func(ctx context.Context) {
		if _, err := t.Tick(ctx); err != nil {
			t.log.Error(errors.Describe(err))
		}
	})
}

// Tick evaluates the trigger once and reports whether a cycle ran.
func (t *Trigger) Tick(ctx context.Context) (bool, error) {
	st, err := t.coord.state.Get(ctx)
	if err != nil {
		return false, err
	}
	if !st.Cron {
		t.log.Debug("paused")
		return false, nil
	}

	now := t.coord.now()
	latest, ok, err := t.store.LatestImageTime(ctx)
	if err != nil {
		return false, err
	}
	if ok && now.Sub(latest) < t.cfg.Cooldown {
		t.log.Debug(fmt.Sprintf("skipped (image created within last %d minutes)", int(t.cfg.Cooldown.Minutes())))
		return false, nil
	}

	since := now.Add(-t.cfg.Window)
	if n, err := t.store.DeleteTranscriptsBefore(ctx, since); err != nil {
		return false, err
	} else if n > 0 {
		t.log.Debug(fmt.Sprintf("deleted %d expired transcript(s)", n))
	}

	count, err := t.store.CountTranscriptsSince(ctx, since)
	if err != nil {
		return false, err
	}
	if count < int64(t.cfg.Minimum) {
		t.log.Info(fmt.Sprintf("%d transcript(s) needed within last %d minutes, found %d",
			t.cfg.Minimum, int(t.cfg.Window.Minutes()), count))
		return false, nil
	}

	if _, err := t.coord.ProcessTranscripts(ctx); err != nil {
		if stderrors.Is(err, ErrBusy) {
			t.log.Debug("skipped (cycle in progress)")
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// AutogenConfig configures random summary generation.
type AutogenConfig struct {
	Enabled  bool
	Interval time.Duration
	// Prompt replaces the provider's random summary prompt when set.
	Prompt string
	// Keywords steer the summary; a couple are picked at random per run.
	Keywords []string
}

// ApplyDefaults fills zero values.
func (c *AutogenConfig) ApplyDefaults() {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Minute
	}
}

// Autogen starts a random summary cycle on every interval.
type Autogen struct {
	cfg   AutogenConfig
	coord *Coordinator
	log   *logger.Logger
	intn  func(int) int
}

// NewAutogen creates an Autogen.
func NewAutogen(cfg AutogenConfig, coord *Coordinator) *Autogen {
	cfg.ApplyDefaults()
	return &Autogen{cfg: cfg, coord: coord, log: coord.log.WithComponent("autogen"), intn: rand.IntN}
}

// Seed builds the seed of one run.
func (a *Autogen) Seed() provider.Seed {
	seed := provider.Seed{Prompt: a.cfg.Prompt}
	if len(a.cfg.Keywords) == 0 {
		return seed
	}
	picks := min(2, len(a.cfg.Keywords))
	idx := make([]int, len(a.cfg.Keywords))
	for i := range idx {
		idx[i] = i
	}
	chosen := make([]string, 0, picks)
	for i := 0; i < picks; i++ {
		j := i + a.intn(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
		chosen = append(chosen, a.cfg.Keywords[idx[i]])
	}
	seed.Context = strings.Join(chosen, ", ")
	return seed
}

// Tick runs one random cycle unless the cron switch is off.
func (a *Autogen) Tick(ctx context.Context) (bool, error) {
	st, err := a.coord.state.Get(ctx)
	if err != nil {
		return false, err
	}
	if !st.Cron {
		a.log.Debug("paused")
		return false, nil
	}
	if _, err := a.coord.RandomCycle(ctx, a.Seed()); err != nil {
		if stderrors.Is(err, ErrBusy) {
			a.log.Debug("skipped (cycle in progress)")
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Run ticks every Interval until ctx is done. It returns at once when
// autogen is disabled.
func (a *Autogen) Run(ctx context.Context) error {
	if !a.cfg.Enabled {
		return nil
	}
	return every(ctx, a.cfg.Interval, func(ctx context.Context) {
		if _, err := a.Tick(ctx); err != nil {
			a.log.Error(errors.Describe(err))
		}
	})
}

func every(ctx context.Context, interval time.Duration, fn func(context.Context)) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			fn(ctx)
		}
	}
}
