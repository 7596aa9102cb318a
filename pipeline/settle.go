package pipeline

import (
	"context"
	"time"
)

// Settle batches values that arrive close together. A batch is emitted
// once quiet passes without a new value; the pending batch is emitted when
// the source ends. Empty batches are never emitted.
func Settle[T any](p *Pipeline[T], quiet time.Duration) *Pipeline[[]T] {
	return &Pipeline[[]T]{open: func(ctx context.Context) Iterator[[]T] {
		ctx, cancel := context.WithCancel(ctx)
		src := p.open(ctx)
		it := &settleIter[T]{in: make(chan T), quiet: quiet, cancel: cancel, src: src}
		go it.pump(ctx)
		return it
	}}
}

type settleIter[T any] struct {
	in     chan T
	err    error
	quiet  time.Duration
	cancel context.CancelFunc
	src    Iterator[T]
	ended  bool
}

// pump moves source values onto in and closes it when the source ends. err
// is written before the close, so it is visible once in is drained.
func (it *settleIter[T]) pump(ctx context.Context) {
	defer close(it.in)
	for {
		v, ok, err := it.src.Next(ctx)
		if err != nil {
			it.err = err
			return
		}
		if !ok {
			return
		}
		select {
		case it.in <- v:
		case <-ctx.Done():
			return
		}
	}
}

func (it *settleIter[T]) Next(ctx context.Context) ([]T, bool, error) {
	if it.ended {
		return nil, false, nil
	}
	var (
		batch []T
		timer *time.Timer
		quiet <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case v, ok := <-it.in:
			if !ok {
				it.ended = true
				if it.err != nil {
					return nil, false, it.err
				}
				return batch, len(batch) > 0, nil
			}
			batch = append(batch, v)
			if timer == nil {
				timer = time.NewTimer(it.quiet)
				quiet = timer.C
			} else {
				timer.Reset(it.quiet)
			}
		case <-quiet:
			return batch, true, nil
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
}

func (it *settleIter[T]) Close() error {
	it.cancel()
	return it.src.Close()
}
