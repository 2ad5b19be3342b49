package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vk/taskgrid/internal/ctxlog"
)

// DefaultCapacity is the hand-off buffer size used when callers have no
// better figure. Producers are typically I/O bound and tolerate blocking.
const DefaultCapacity = 8

var (
	// ErrProducerPanic wraps a panic recovered from an operation.
	ErrProducerPanic = errors.New("producer panicked")
	// ErrNoEndMarker is returned by Drain when the channel closes without a marker.
	ErrNoEndMarker = errors.New("stream closed without end-of-stream marker")
)

// Op is a zero-argument asynchronous operation producing one result.
type Op[T any] func(ctx context.Context) (T, error)

// Collect starts every op immediately, each in its own goroutine, and returns
// the channel their outcomes are delivered on in completion order. Once all
// ops have returned, one EndOfStream item is sent and the channel is closed.
//
// A failing or panicking op is delivered as a Failure item; it never stops the
// other producers or the marker. A negative capacity selects DefaultCapacity.
func Collect[T any](ctx context.Context, capacity int, ops ...Op[T]) <-chan Item[T] {
	if capacity < 0 {
		capacity = DefaultCapacity
	}
	logger := ctxlog.FromContext(ctx)
	out := make(chan Item[T], capacity)

	var wg sync.WaitGroup
	wg.Add(len(ops))
	for i, op := range ops {
		go func(index int, op Op[T]) {
			defer wg.Done()
			out <- run(ctx, index, op)
		}(i, op)
	}

	go func() {
		wg.Wait()
		logger.Debug("All producers finished, sending end-of-stream.", "producers", len(ops))
		out <- EndOfStream[T]()
		close(out)
	}()

	return out
}

func run[T any](ctx context.Context, index int, op Op[T]) (item Item[T]) {
	defer func() {
		if r := recover(); r != nil {
			item = Failure[T](index, fmt.Errorf("%w: op %d: %v", ErrProducerPanic, index, r))
		}
	}()
	if op == nil {
		return Failure[T](index, fmt.Errorf("op %d is nil", index))
	}
	v, err := op(ctx)
	if err != nil {
		return Failure[T](index, err)
	}
	return Value(index, v)
}

// Drain is the single-consumer loop: it calls fn for every value and failure
// item until the end-of-stream marker arrives. If fn returns an error, Drain
// keeps receiving (so producers are never left blocked) and returns the first
// such error once the marker is seen.
func Drain[T any](items <-chan Item[T], fn func(Item[T]) error) error {
	var firstErr error
	for item := range items {
		if item.IsEnd() {
			return firstErr
		}
		if firstErr != nil {
			continue
		}
		if err := fn(item); err != nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return firstErr
	}
	return ErrNoEndMarker
}

// CollectAll runs ops through Collect and gathers every item before the
// marker, in completion order.
func CollectAll[T any](ctx context.Context, capacity int, ops ...Op[T]) ([]Item[T], error) {
	items := make([]Item[T], 0, len(ops))
	err := Drain(Collect(ctx, capacity, ops...), func(item Item[T]) error {
		items = append(items, item)
		return nil
	})
	return items, err
}
