package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vk/taskgrid/internal/ctxlog"
)

// ErrJobFailed is the reason attached to a terminal failure reported by the service.
var ErrJobFailed = errors.New("remote job failed")

// Observation is the outcome of a single Observe call.
type Observation struct {
	State State
	// Status is the raw service status that produced State.
	Status string
	// Result is set only when State is Succeeded.
	Result any
	// Reason is set only when State is Failed.
	Reason error
	// Cached is true when the observation was served without polling.
	Cached bool
}

// Proxy represents one job submitted to a JobService.
type Proxy struct {
	svc        JobService
	credential string
	jobID      string

	mu         sync.Mutex
	lastStatus string
	terminal   *Observation
	polls      int
}

// Submit sends payload to the service once and returns a proxy for the job.
func Submit(ctx context.Context, svc JobService, credential string, payload any) (*Proxy, error) {
	logger := ctxlog.FromContext(ctx)
	jobID, err := svc.Submit(ctx, credential, payload)
	if err != nil {
		return nil, fmt.Errorf("submitting job: %w", err)
	}
	logger.Debug("Remote job submitted.", "job_id", jobID)
	return &Proxy{svc: svc, credential: credential, jobID: jobID}, nil
}

// Attach returns a proxy for a job that was submitted elsewhere.
func Attach(svc JobService, credential, jobID string) *Proxy {
	return &Proxy{svc: svc, credential: credential, jobID: jobID}
}

// JobID returns the service's identifier for the job.
func (p *Proxy) JobID() string {
	return p.jobID
}

// Polls returns how many times the service has been polled.
func (p *Proxy) Polls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls
}

// Observe returns the job's state. A cached terminal observation is returned
// without contacting the service. Otherwise the service is polled; a terminal
// answer is cached permanently, anything else is returned uncached so the next
// call polls again. Poll errors are never cached and are returned as the
// transport classified them: only unreachable services wrap
// ErrRemoteUnavailable. The lock is not held while the service is polled.
func (p *Proxy) Observe(ctx context.Context) (Observation, error) {
	p.mu.Lock()
	if p.terminal != nil {
		obs := *p.terminal
		obs.Cached = true
		p.mu.Unlock()
		return obs, nil
	}
	p.polls++
	p.mu.Unlock()

	logger := ctxlog.FromContext(ctx).With("job_id", p.jobID)
	res, err := p.svc.Poll(ctx, p.credential, p.jobID)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminal != nil {
		// A concurrent Observe cached a terminal answer first.
		obs := *p.terminal
		obs.Cached = true
		return obs, nil
	}
	if err != nil {
		logger.Debug("Remote poll failed.", "error", err, "unavailable", errors.Is(err, ErrRemoteUnavailable))
		return Observation{State: Pending, Status: p.lastStatus}, fmt.Errorf("polling job %s: %w", p.jobID, err)
	}
	p.lastStatus = res.Status

	obs := Observation{State: Classify(res.Status), Status: res.Status}
	switch obs.State {
	case Succeeded:
		obs.Result = res.Result
	case Failed:
		reason := res.Reason
		if reason == "" {
			reason = res.Status
		}
		obs.Reason = fmt.Errorf("job %s: %w: %s", p.jobID, ErrJobFailed, reason)
	}

	if obs.State.Terminal() {
		cached := obs
		p.terminal = &cached
		logger.Debug("Remote job reached terminal state.", "state", obs.State, "status", res.Status)
	} else {
		logger.Debug("Remote job still pending.", "status", res.Status)
	}
	return obs, nil
}

// Await polls every interval until the job is terminal or ctx ends.
// Consecutive errors wrapping ErrRemoteUnavailable are tolerated up to
// maxUnavailable; one more returns the error. Any other poll error, such as
// the service rejecting the request, is returned at once.
func (p *Proxy) Await(ctx context.Context, interval time.Duration, maxUnavailable int) (Observation, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	unavailable := 0
	for {
		obs, err := p.Observe(ctx)
		switch {
		case err != nil && errors.Is(err, ErrRemoteUnavailable):
			unavailable++
			if unavailable > maxUnavailable {
				return obs, err
			}
		case err != nil:
			return obs, err
		case obs.State.Terminal():
			return obs, nil
		default:
			unavailable = 0
		}

		select {
		case <-ctx.Done():
			return obs, ctx.Err()
		case <-ticker.C:
		}
	}
}

// String describes the proxy from cached state only; it never polls.
func (p *Proxy) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.terminal != nil:
		return fmt.Sprintf("remote job %s (%s)", p.jobID, p.terminal.State)
	case p.lastStatus != "":
		return fmt.Sprintf("remote job %s (last seen %s)", p.jobID, p.lastStatus)
	}
	return fmt.Sprintf("remote job %s (not polled)", p.jobID)
}
