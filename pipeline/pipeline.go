package pipeline

import "context"

// Iterator yields the values of a stream one at a time.
type Iterator[T any] interface {
	// Next returns the next value, or ok=false once the stream is done.
	Next(ctx context.Context) (val T, ok bool, err error)
	Close() error
}

// Pipeline is a lazy stream. Its iterator is only built when a terminal
// such as Collect or ForEach pulls from it.
type Pipeline[T any] struct {
	open func(ctx context.Context) Iterator[T]
}

// FromSlice streams items in order.
func FromSlice[T any](items []T) *Pipeline[T] {
	return &Pipeline[T]{open: func(context.Context) Iterator[T] {
		return &sliceIter[T]{items: items}
	}}
}

// FromChannel streams the values received on ch until it is closed.
func FromChannel[T any](ch <-chan T) *Pipeline[T] {
	return &Pipeline[T]{open: func(context.Context) Iterator[T] {
		return chanIter[T](ch)
	}}
}

// Collect pulls every value into a slice. On error the values pulled so
// far are returned with it.
func Collect[T any](ctx context.Context, p *Pipeline[T]) ([]T, error) {
	var out []T
	err := ForEach(ctx, p, func(_ context.Context, v T) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

// ForEach calls fn for every value and stops at the first error.
func ForEach[T any](ctx context.Context, p *Pipeline[T], fn func(context.Context, T) error) error {
	it := p.open(ctx)
	defer func() { _ = it.Close() }()
	for {
		v, ok, err := it.Next(ctx)
		if err != nil || !ok {
			return err
		}
		if err := fn(ctx, v); err != nil {
			return err
		}
	}
}

type sliceIter[T any] struct {
	items []T
	pos   int
}

func (it *sliceIter[T]) Next(context.Context) (T, bool, error) {
	if it.pos == len(it.items) {
		var zero T
		return zero, false, nil
	}
	it.pos++
	return it.items[it.pos-1], true, nil
}

func (it *sliceIter[T]) Close() error { return nil }

type chanIter[T any] <-chan T

func (ch chanIter[T]) Next(ctx context.Context) (T, bool, error) {
	select {
	case v, ok := <-ch:
		return v, ok, nil
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}

func (chanIter[T]) Close() error { return nil }
