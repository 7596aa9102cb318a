package resilience

import "context"

// Bulkhead caps the number of operations running at once. Callers over
// the cap wait for a slot or for their context to end.
type Bulkhead struct {
	name  string
	slots chan struct{}
}

// NewBulkhead creates a Bulkhead with n slots, at least one.
func NewBulkhead(name string, n int) *Bulkhead {
	return &Bulkhead{name: name, slots: make(chan struct{}, max(1, n))}
}

// Do runs fn once a slot is free. It returns ctx.Err() without running fn
// if ctx ends first.
func (b *Bulkhead) Do(ctx context.Context, fn func(context.Context) error) error {
	select {
	case b.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-b.slots }()
	return fn(ctx)
}

// InUse returns the number of occupied slots.
func (b *Bulkhead) InUse() int { return len(b.slots) }

// Size returns the number of slots.
func (b *Bulkhead) Size() int { return cap(b.slots) }

// Name returns the bulkhead name.
func (b *Bulkhead) Name() string { return b.name }
