package component

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/phrame/logger"
	"github.com/kbukum/phrame/observability"
)

// StopTimeout bounds the Stop call of a single component.
const StopTimeout = 10 * time.Second

type entry struct {
	component Component
	started   bool
}

// Registry manages component lifecycle with deterministic ordering.
// Components are started in registration order and stopped in reverse order.
type Registry struct {
	mu      sync.RWMutex
	entries []*entry
	lookup  map[string]*entry
	log     *logger.Logger
}

// NewRegistry creates a new component registry.
func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{
		lookup: make(map[string]*entry),
		log:    log.WithComponent("components"),
	}
}

// Register adds a component. Register dependencies first.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, exists := r.lookup[name]; exists {
		return fmt.Errorf("component %s already registered", name)
	}
	e := &entry{component: c}
	r.entries = append(r.entries, e)
	r.lookup[name] = e
	r.log.Debug("component registered", logger.Fields("component", name))
	return nil
}

// StartAll starts the components not yet started, in registration order,
// and stops at the first failure. Components started before the failure
// stay started; StopAll stops them.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.entries {
		if e.started {
			continue
		}
		name := e.component.Name()
		if err := e.component.Start(ctx); err != nil {
			r.log.Error("component start failed", logger.Fields("component", name, "error", err.Error()))
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		e.started = true
		n++
		r.log.Debug("component started", logger.Fields("component", name))
	}
	if n > 0 {
		r.log.Info(fmt.Sprintf("%d component(s) started", n))
	}
	return nil
}

// StopAll stops the started components in reverse registration order.
// Every component is given the chance to stop; the errors are joined.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if !e.started {
			continue
		}
		name := e.component.Name()

		stopCtx, cancel := context.WithTimeout(ctx, StopTimeout)
		if err := e.component.Stop(stopCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", name, err))
			r.log.Error("component stop failed", logger.Fields("component", name, "error", err.Error()))
		} else {
			r.log.Debug("component stopped", logger.Fields("component", name))
		}
		cancel()
		e.started = false
	}
	return errors.Join(errs...)
}

// Checkers returns the components that report their health, in
// registration order.
func (r *Registry) Checkers() []observability.HealthChecker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []observability.HealthChecker
	for _, e := range r.entries {
		if hc, ok := e.component.(observability.HealthChecker); ok {
			out = append(out, hc)
		}
	}
	return out
}

// Descriptions returns the summary entries of every component.
func (r *Registry) Descriptions() []Description {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Description, 0, len(r.entries))
	for _, e := range r.entries {
		d := Description{Type: "component"}
		if ds, ok := e.component.(Describable); ok {
			d = ds.Describe()
		}
		if d.Name == "" {
			d.Name = e.component.Name()
		}
		out = append(out, d)
	}
	return out
}

// Get returns a registered component by name, or nil if not found.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.lookup[name]; ok {
		return e.component
	}
	return nil
}
