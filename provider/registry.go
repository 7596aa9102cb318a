package provider

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/phrame/errors"
)

// Registry holds the configured provider adapters, keyed by Name.
type Registry struct {
	mu        sync.RWMutex
	providers map[Name]Provider
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[Name]Provider)}
}

// Register adds p under its own name. Unknown names and duplicates are
// rejected.
func (r *Registry) Register(p Provider) error {
	name := Name(p.Name())
	if !name.Valid() {
		return errors.InvalidInput("provider", fmt.Sprintf("unknown provider %q", p.Name()))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; ok {
		return errors.Conflict(fmt.Sprintf("provider %q already registered", name))
	}
	r.providers[name] = p
	return nil
}

// Get returns the provider registered under name.
func (r *Registry) Get(name Name) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the registered names in registry order.
func (r *Registry) Names() []Name {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Name, 0, len(r.providers))
	for n := range r.providers {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return order(out[i]) < order(out[j]) })
	return out
}

// Summarizer returns the summary capable provider registered under name.
func (r *Registry) Summarizer(name Name) (Summarizer, error) {
	p, ok := r.Get(name)
	if !ok {
		return nil, errors.NotConfigured(string(name))
	}
	s, ok := p.(Summarizer)
	if !ok {
		return nil, errors.InvalidInput("provider", fmt.Sprintf("%s cannot summarize", name))
	}
	return s, nil
}

// Tester returns the provider registered under name as a Tester.
func (r *Registry) Tester(name Name) (Tester, error) {
	p, ok := r.Get(name)
	if !ok {
		return nil, errors.NotConfigured(string(name))
	}
	t, ok := p.(Tester)
	if !ok {
		return nil, errors.InvalidInput("provider", fmt.Sprintf("%s has no self test", name))
	}
	return t, nil
}

// ImageGenerators returns the active image providers in registry order:
// registered generators with image generation enabled. A non-empty only
// list further restricts the result to those names.
func (r *Registry) ImageGenerators(only ...Name) []ImageGenerator {
	allowed := make(map[Name]bool, len(only))
	for _, n := range only {
		allowed[n] = true
	}

	var out []ImageGenerator
	for _, n := range r.Names() {
		if len(allowed) > 0 && !allowed[n] {
			continue
		}
		p, _ := r.Get(n)
		gen, ok := p.(ImageGenerator)
		if !ok || !gen.ImageOptions().Enable {
			continue
		}
		out = append(out, gen)
	}
	return out
}

// Close closes every Closeable provider and joins their errors.
func (r *Registry) Close(ctx context.Context) error {
	var errs []error
	for _, n := range r.Names() {
		p, _ := r.Get(n)
		if c, ok := p.(Closeable); ok {
			if err := c.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", n, err))
			}
		}
	}
	return stderrors.Join(errs...)
}
