package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

// Filter drops the values keep rejects.
func Filter[T any](p *Pipeline[T], keep func(T) bool) *Pipeline[T] {
	return &Pipeline[T]{open: func(ctx context.Context) Iterator[T] {
		return &filterIter[T]{src: p.open(ctx), keep: keep}
	}}
}

type filterIter[T any] struct {
	src  Iterator[T]
	keep func(T) bool
}

func (it *filterIter[T]) Next(ctx context.Context) (T, bool, error) {
	for {
		v, ok, err := it.src.Next(ctx)
		if err != nil || !ok || it.keep(v) {
			return v, ok, err
		}
	}
}

func (it *filterIter[T]) Close() error { return it.src.Close() }

// Branch is what one FanOut function produced for one input.
type Branch[O any] struct {
	// Index is the position of the function in the FanOut call.
	Index int
	Value O
	// Err is set when the function failed or panicked.
	Err error
}

// PanicError is the Err of a branch that panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("pipeline: branch panicked: %v", e.Value)
}

// FanOut runs every fn concurrently on each input and yields one slice of
// branches per input, in fn order, once all of them returned. A failing or
// panicking branch only sets its own Err.
func FanOut[I, O any](p *Pipeline[I], fns ...func(context.Context, I) (O, error)) *Pipeline[[]Branch[O]] {
	return &Pipeline[[]Branch[O]]{open: func(ctx context.Context) Iterator[[]Branch[O]] {
		return &fanOutIter[I, O]{src: p.open(ctx), fns: fns}
	}}
}

type fanOutIter[I, O any] struct {
	src Iterator[I]
	fns []func(context.Context, I) (O, error)
}

func (it *fanOutIter[I, O]) Next(ctx context.Context) ([]Branch[O], bool, error) {
	in, ok, err := it.src.Next(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	out := make([]Branch[O], len(it.fns))
	var wg sync.WaitGroup
	for i, fn := range it.fns {
		wg.Go(func() { out[i] = runBranch(ctx, i, fn, in) })
	}
	wg.Wait()
	return out, true, nil
}

func (it *fanOutIter[I, O]) Close() error { return it.src.Close() }

func runBranch[I, O any](ctx context.Context, i int, fn func(context.Context, I) (O, error), in I) (b Branch[O]) {
	b.Index = i
	defer func() {
		if r := recover(); r != nil {
			b = Branch[O]{Index: i, Err: &PanicError{Value: r, Stack: debug.Stack()}}
		}
	}()
	b.Value, b.Err = fn(ctx, in)
	if b.Err != nil {
		var zero O
		b.Value = zero
	}
	return b
}
