package component

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/kbukum/phrame/observability"
)

// Runner turns a blocking loop such as the transcript trigger or the inbox
// watcher into a Component. Start runs the loop in a goroutine; Stop
// cancels it and waits for it to return.
type Runner struct {
	name    string
	details string
	run     func(ctx context.Context) error

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// NewRunner creates a Runner. details is shown in the startup summary.
func NewRunner(name, details string, run func(ctx context.Context) error) *Runner {
	return &Runner{name: name, details: details, run: run}
}

func (r *Runner) Name() string { return r.name }

// Start launches the loop. The loop outlives ctx; only Stop ends it.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != nil {
		return nil
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel
	r.done = make(chan struct{})
	go func() {
		defer close(r.done)
		err := r.run(loopCtx)
		if stderrors.Is(err, context.Canceled) {
			err = nil
		}
		r.mu.Lock()
		r.err = err
		r.mu.Unlock()
	}()
	return nil
}

// Stop cancels the loop and waits until it returns or ctx is done.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()
	if done == nil {
		return nil
	}

	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// CheckHealth reports down once the loop returned with an error.
func (r *Runner) CheckHealth(context.Context) observability.Health {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := observability.Health{Name: r.name, Status: observability.HealthStatusUp}
	switch {
	case r.done == nil:
		h.Status, h.Message = observability.HealthStatusDown, "not started"
	case r.err != nil:
		h.Status, h.Message = observability.HealthStatusDown, r.err.Error()
	}
	return h
}

func (r *Runner) Describe() Description {
	return Description{Name: r.name, Type: "loop", Details: r.details}
}

// Func adapts start and stop functions to a Component. Either may be nil.
type Func struct {
	ComponentName string
	Info          Description
	OnStart       func(ctx context.Context) error
	OnStop        func(ctx context.Context) error
}

func (f *Func) Name() string { return f.ComponentName }

func (f *Func) Start(ctx context.Context) error {
	if f.OnStart == nil {
		return nil
	}
	return f.OnStart(ctx)
}

func (f *Func) Stop(ctx context.Context) error {
	if f.OnStop == nil {
		return nil
	}
	return f.OnStop(ctx)
}

func (f *Func) Describe() Description { return f.Info }
