package app

import (
	"context"
	"fmt"
	"io"

	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/remote"
	"github.com/vk/taskgrid/internal/remote/httpjob"
	"github.com/vk/taskgrid/internal/remote/socketjob"
	"github.com/vk/taskgrid/internal/runners"
)

type jobServiceCloser interface {
	remote.JobService
	io.Closer
}

// connectRemotes creates a client for every remote block. On error the
// clients created so far are closed.
func (a *App) connectRemotes(ctx context.Context, remotes map[string]*config.Remote) (map[string]runners.RemoteService, error) {
	logger := ctxlog.FromContext(ctx)
	out := make(map[string]runners.RemoteService, len(remotes))
	for name, r := range remotes {
		svc, err := dialRemote(ctx, r)
		if err != nil {
			a.closeRemotes()
			return nil, fmt.Errorf("remote %q: %w", name, err)
		}
		a.closers = append(a.closers, svc)
		out[name] = runners.RemoteService{Service: svc, Credential: r.Credential}
		logger.Debug("Remote job service connected.", "remote", name, "transport", r.Transport, "url", r.URL)
	}
	return out, nil
}

func dialRemote(ctx context.Context, r *config.Remote) (jobServiceCloser, error) {
	switch r.Transport {
	case config.TransportHTTP:
		var opts []httpjob.Option
		if r.Timeout > 0 {
			opts = append(opts, httpjob.WithTimeout(r.Timeout))
		}
		return httpjob.New(r.URL, opts...)
	case config.TransportSocketIO:
		return socketjob.Dial(ctx, r.URL, socketjob.Options{
			Namespace:          r.Namespace,
			InsecureSkipVerify: r.InsecureSkipVerify,
			Timeout:            r.Timeout,
		})
	}
	return nil, fmt.Errorf("unsupported transport %q", r.Transport)
}

func (a *App) closeRemotes() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("Closing remote job service failed", "error", err)
		}
	}
	a.closers = nil
}
