package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/taskgrid/internal/remote"
)

// JobService is an in-memory remote.JobService. Every submitted job replays
// Script, one entry per poll; the last entry repeats once the script is used
// up. An empty script answers "succeeded" with the submitted payload.
type JobService struct {
	Script []Poll

	mu       sync.Mutex
	payloads []any
	polls    map[string]int
	creds    []string
}

// Poll is one scripted answer. A non-nil Err is returned instead of Result.
type Poll struct {
	Result remote.PollResult
	Err    error
}

var _ remote.JobService = (*JobService)(nil)

// Submit records the payload and returns a sequential job id.
func (s *JobService) Submit(_ context.Context, credential string, payload any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, payload)
	s.creds = append(s.creds, credential)
	return fmt.Sprintf("job-%d", len(s.payloads)), nil
}

// Poll returns the next scripted answer for jobID.
func (s *JobService) Poll(ctx context.Context, _ string, jobID string) (remote.PollResult, error) {
	if err := ctx.Err(); err != nil {
		return remote.PollResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.polls == nil {
		s.polls = make(map[string]int)
	}
	n := s.polls[jobID]
	s.polls[jobID] = n + 1

	if len(s.Script) == 0 {
		var idx int
		if _, err := fmt.Sscanf(jobID, "job-%d", &idx); err != nil || idx < 1 || idx > len(s.payloads) {
			return remote.PollResult{}, fmt.Errorf("unknown job %q", jobID)
		}
		return remote.PollResult{Status: "succeeded", Result: s.payloads[idx-1]}, nil
	}
	if n >= len(s.Script) {
		n = len(s.Script) - 1
	}
	p := s.Script[n]
	return p.Result, p.Err
}

// Payloads returns the submitted payloads in submission order.
func (s *JobService) Payloads() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]any(nil), s.payloads...)
}

// Credentials returns the credential of every submission in order.
func (s *JobService) Credentials() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.creds...)
}

// Polls returns how many times jobID was polled.
func (s *JobService) Polls(jobID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls[jobID]
}
