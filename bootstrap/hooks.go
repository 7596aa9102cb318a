package bootstrap

import (
	"context"
	"errors"
	"fmt"
)

// Hook is a lifecycle callback.
type Hook func(ctx context.Context) error

// OnStart hooks run once the first batch of components is up, before the
// configure callbacks.
func (a *App) OnStart(hooks ...Hook) { a.onStart = append(a.onStart, hooks...) }

// OnReady hooks run after the ready check.
func (a *App) OnReady(hooks ...Hook) { a.onReady = append(a.onReady, hooks...) }

// OnStop hooks run before the components stop, e.g. to wait for running
// cycles.
func (a *App) OnStop(hooks ...Hook) { a.onStop = append(a.onStop, hooks...) }

// runHooks stops at the first failing hook.
func runHooks(ctx context.Context, stage string, hooks []Hook) error {
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			return fmt.Errorf("%s hook %d: %w", stage, i, err)
		}
	}
	return nil
}

// drainHooks runs every hook and joins their errors.
func drainHooks(ctx context.Context, stage string, hooks []Hook) error {
	var errs []error
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s hook %d: %w", stage, i, err))
		}
	}
	return errors.Join(errs...)
}
