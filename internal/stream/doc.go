// Package stream implements fan-out/fan-in result streaming.
//
// Collect launches a fixed set of operations concurrently and merges their
// outcomes onto one channel in completion order. After every operation has
// finished, exactly one end-of-stream marker is sent and the channel is
// closed. The marker is an explicit variant of Item, so a nil or zero result
// is never mistaken for the end of the stream.
//
// The channel is bounded; a producer blocks when it is full rather than
// dropping its item. The single consumer is expected to drain until the
// marker, usually through Drain.
package stream
