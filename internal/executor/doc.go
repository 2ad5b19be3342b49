// Package executor drives the tasks of a registry through their lifecycle.
//
// Every task gets one producer in a stream.Collect fan-out. A producer waits
// until all of its dependencies are terminal, then either skips the task (a
// dependency did not succeed, the task was cancelled, or the run context
// ended) or acquires a worker slot and runs it. Failures travel as explicit
// task state, never as panics across goroutines. The executor itself is the
// single consumer of the result stream and returns once the end-of-stream
// marker has been received, which happens only after every task is terminal.
package executor
