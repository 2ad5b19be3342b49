package task

import "fmt"

// Status is the lifecycle position of a task. The zero value is NotStarted.
//
// Only Success and Failed are terminal; terminal states have no outgoing
// transitions. Cancellation is tracked separately on the Task.
type Status uint8

const (
	// NotStarted is the initial status of every task.
	NotStarted Status = iota
	// WaitingForResources means the task is ready to run but is blocked
	// acquiring a worker slot.
	WaitingForResources
	// Success means the unit of work completed without error.
	Success
	// Failed means the unit of work returned an error, or one of its
	// dependencies did not succeed.
	Failed
)

var statusNames = [...]string{
	NotStarted:          "NOT_STARTED",
	WaitingForResources: "WAITING_FOR_RESOURCES",
	Success:             "SUCCESS",
	Failed:              "FAILED",
}

// String returns the canonical upper-case name of the status.
func (s Status) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
	return statusNames[s]
}

// Valid reports whether s is one of the four defined statuses.
func (s Status) Valid() bool {
	return int(s) < len(statusNames)
}

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	return s == Success || s == Failed
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid task status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// ParseStatus converts a canonical status name back into a Status.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return NotStarted, fmt.Errorf("unknown task status %q", name)
}

var allowedTransitions = map[Status]map[Status]struct{}{
	NotStarted: {
		WaitingForResources: {},
		Success:             {},
		Failed:              {},
	},
	WaitingForResources: {
		NotStarted: {},
		Success:    {},
		Failed:     {},
	},
	Success: {},
	Failed:  {},
}

// Transition validates a move from one status to another. It returns an
// error wrapping ErrInvalidTransition for any edge not in the lifecycle table.
func Transition(from, to Status) error {
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if _, ok := allowedTransitions[from][to]; !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
