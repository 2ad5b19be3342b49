package stream

import "fmt"

// Kind tags the variant held by an Item.
type Kind uint8

const (
	// KindValue carries a produced result.
	KindValue Kind = iota + 1
	// KindFailure carries the error of a failed producer.
	KindFailure
	// KindEnd is the end-of-stream marker.
	KindEnd
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindFailure:
		return "failure"
	case KindEnd:
		return "end"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Item is one element of a result stream: Value(T), Failure(err) or
// EndOfStream.
type Item[T any] struct {
	kind  Kind
	index int
	value T
	err   error
}

// Value wraps a produced result. index identifies the producer.
func Value[T any](index int, v T) Item[T] {
	return Item[T]{kind: KindValue, index: index, value: v}
}

// Failure wraps a producer's error. index identifies the producer.
func Failure[T any](index int, err error) Item[T] {
	return Item[T]{kind: KindFailure, index: index, err: err}
}

// EndOfStream returns the marker item.
func EndOfStream[T any]() Item[T] {
	return Item[T]{kind: KindEnd, index: -1}
}

// Kind returns the variant tag.
func (i Item[T]) Kind() Kind { return i.kind }

// IsEnd reports whether i is the end-of-stream marker.
func (i Item[T]) IsEnd() bool { return i.kind == KindEnd }

// Index returns the position of the producing operation, or -1 for the marker.
func (i Item[T]) Index() int { return i.index }

// Value returns the produced result and true for value items.
func (i Item[T]) Value() (T, bool) {
	return i.value, i.kind == KindValue
}

// Err returns the producer's error for failure items and nil otherwise.
func (i Item[T]) Err() error { return i.err }

func (i Item[T]) String() string {
	switch i.kind {
	case KindValue:
		return fmt.Sprintf("value[%d](%v)", i.index, i.value)
	case KindFailure:
		return fmt.Sprintf("failure[%d](%v)", i.index, i.err)
	case KindEnd:
		return "end-of-stream"
	}
	return "invalid item"
}
