// Package socketjob implements remote.JobService over a Socket.IO connection.
//
// Requests and replies are separate events correlated by a request id:
//
//	emit job:submit {request_id, credential, payload}  <- job:submitted {request_id, job_id, error}
//	emit job:poll   {request_id, credential, job_id}   <- job:status    {request_id, status, result, reason, error}
package socketjob

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/remote"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

const (
	EventSubmit    = "job:submit"
	EventSubmitted = "job:submitted"
	EventPoll      = "job:poll"
	EventStatus    = "job:status"
)

// Options configures Dial.
type Options struct {
	Namespace          string
	InsecureSkipVerify bool
	// Timeout bounds the connection handshake and each request.
	Timeout time.Duration
}

// Client is a remote.JobService backed by one Socket.IO socket.
type Client struct {
	timeout    time.Duration
	emit       func(event string, data map[string]any)
	disconnect func()

	connected atomic.Bool
	mu        sync.Mutex
	pending   map[string]chan map[string]any
}

func newClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		timeout: timeout,
		pending: make(map[string]chan map[string]any),
	}
}

// Dial connects to the job service at rawURL and waits for the handshake.
func Dial(ctx context.Context, rawURL string, opts Options) (*Client, error) {
	logger := ctxlog.FromContext(ctx).With("url", rawURL, "namespace", opts.Namespace)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	c := newClient(opts.Timeout)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	sockOpts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		sockOpts.SetPath(parsedURL.Path)
	}
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sockOpts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sockOpts.SetTransports(types.NewSet(transports.WebSocket))

	namespace := opts.Namespace
	if namespace == "" {
		namespace = "/"
	}
	manager := socket.NewManager(baseURL, sockOpts)
	io := manager.Socket(namespace, sockOpts)

	c.emit = func(event string, data map[string]any) { io.Emit(event, data) }
	c.disconnect = func() { io.Disconnect() }

	ready := make(chan error, 1)
	io.On(types.EventName("connect"), func(...any) {
		c.connected.Store(true)
		logger.Info("Connected to job service", "sid", io.Id())
		select {
		case ready <- nil:
		default:
		}
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("%w: connect error", remote.ErrRemoteUnavailable)
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = fmt.Errorf("%w: %w", remote.ErrRemoteUnavailable, e)
			}
		}
		select {
		case ready <- err:
		default:
		}
	})
	io.On(types.EventName("disconnect"), func(...any) {
		logger.Warn("Disconnected from job service")
		c.connected.Store(false)
		c.failPending()
	})
	io.On(types.EventName(EventSubmitted), func(args ...any) { c.dispatch(ctx, args) })
	io.On(types.EventName(EventStatus), func(args ...any) { c.dispatch(ctx, args) })

	io.Connect()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case err := <-ready:
		if err != nil {
			c.disconnect()
			return nil, err
		}
		return c, nil
	case <-timer.C:
		c.disconnect()
		return nil, fmt.Errorf("%w: timed out while waiting for initial connection", remote.ErrRemoteUnavailable)
	case <-ctx.Done():
		c.disconnect()
		return nil, ctx.Err()
	}
}

// Submit implements remote.JobService.
func (c *Client) Submit(ctx context.Context, credential string, payload any) (string, error) {
	reply, err := c.call(ctx, EventSubmit, map[string]any{
		"credential": credential,
		"payload":    payload,
	})
	if err != nil {
		return "", err
	}
	jobID, _ := reply["job_id"].(string)
	if jobID == "" {
		return "", errors.New("job service returned an empty job id")
	}
	return jobID, nil
}

// Poll implements remote.JobService.
func (c *Client) Poll(ctx context.Context, credential, jobID string) (remote.PollResult, error) {
	reply, err := c.call(ctx, EventPoll, map[string]any{
		"credential": credential,
		"job_id":     jobID,
	})
	if err != nil {
		return remote.PollResult{}, err
	}
	status, _ := reply["status"].(string)
	reason, _ := reply["reason"].(string)
	return remote.PollResult{Status: status, Result: reply["result"], Reason: reason}, nil
}

// Close disconnects the socket.
func (c *Client) Close() error {
	if c.disconnect != nil {
		c.disconnect()
	}
	c.connected.Store(false)
	c.failPending()
	return nil
}

func (c *Client) call(ctx context.Context, event string, data map[string]any) (map[string]any, error) {
	if !c.connected.Load() {
		return nil, fmt.Errorf("%w: socket is not connected", remote.ErrRemoteUnavailable)
	}

	requestID := uuid.NewString()
	replyCh := make(chan map[string]any, 1)
	c.mu.Lock()
	c.pending[requestID] = replyCh
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, requestID)
		c.mu.Unlock()
	}()

	data["request_id"] = requestID
	ctxlog.FromContext(ctx).Debug("Emitting job service request.", "event", event, "request_id", requestID)
	c.emit(event, data)

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case reply, ok := <-replyCh:
		if !ok || reply == nil {
			return nil, fmt.Errorf("%w: connection lost while waiting for %s reply", remote.ErrRemoteUnavailable, event)
		}
		if msg, _ := reply["error"].(string); msg != "" {
			return nil, fmt.Errorf("job service rejected %s: %s", event, msg)
		}
		return reply, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: timed out waiting for %s reply", remote.ErrRemoteUnavailable, event)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// dispatch routes a reply event to the request waiting for it.
func (c *Client) dispatch(ctx context.Context, args []any) {
	reply, err := decodeReply(args)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Dropping malformed job service reply.", "error", err)
		return
	}
	requestID, _ := reply["request_id"].(string)

	c.mu.Lock()
	replyCh, ok := c.pending[requestID]
	if ok {
		delete(c.pending, requestID)
	}
	c.mu.Unlock()

	if !ok {
		ctxlog.FromContext(ctx).Debug("Dropping reply for unknown request.", "request_id", requestID)
		return
	}
	replyCh <- reply
}

func (c *Client) failPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// decodeReply normalises the first event argument into a JSON object.
func decodeReply(args []any) (map[string]any, error) {
	if len(args) == 0 {
		return nil, errors.New("empty reply")
	}
	switch v := args[0].(type) {
	case map[string]any:
		return v, nil
	case string:
		return decodeJSON([]byte(v))
	case []byte:
		return decodeJSON(v)
	}
	return nil, fmt.Errorf("unsupported reply type %T", args[0])
}

func decodeJSON(data []byte) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode reply: %w", err)
	}
	return out, nil
}
