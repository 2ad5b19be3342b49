package remote

import (
	"context"
	"errors"
	"strings"
)

// ErrRemoteUnavailable is returned when the job service could not be reached.
// It is never cached as a result.
var ErrRemoteUnavailable = errors.New("remote service unavailable")

// PollResult is the raw answer of the job service to a poll.
type PollResult struct {
	// Status is the service's own status string, e.g. "running" or "succeeded".
	Status string
	// Result is present only when the job succeeded.
	Result any
	// Reason describes a terminal failure, when the service supplies one.
	Reason string
}

// JobService is the external submission and status API.
type JobService interface {
	Submit(ctx context.Context, credential string, payload any) (jobID string, err error)
	Poll(ctx context.Context, credential string, jobID string) (PollResult, error)
}

// State is the three-way outcome of an observation.
type State uint8

const (
	// Pending means the job has not finished, or its status is unrecognised.
	Pending State = iota
	// Succeeded means the job finished and its result is available.
	Succeeded
	// Failed means the job finished without a result.
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "invalid"
}

// Terminal reports whether s will never change again.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed
}

// Classify maps a service status string onto a State. Unknown statuses are
// treated as Pending.
func Classify(status string) State {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "succeeded", "success", "done", "completed", "complete":
		return Succeeded
	case "failed", "failure", "error", "errored":
		return Failed
	}
	return Pending
}
