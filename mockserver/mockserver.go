/*
Package mockserver serves an engine's plans over a real listener, for clients that cannot
have their transport swapped, such as other processes.

Requests are resolved against the engine exactly as intercepted ones are. A request with no
plan gets a 404, one whose queue is exhausted gets a 410.
*/
package mockserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/circleci/httpmock/canonurl"
	"github.com/circleci/httpmock/mocker"
	"github.com/circleci/httpmock/o11y"
	"github.com/circleci/httpmock/registry"
	"github.com/circleci/httpmock/responder"
)

type Server struct {
	listener net.Listener
	server   *http.Server
}

type Config struct {
	// Name is the name of the server in o11y
	Name string
	// Addr is the address to listen on
	Addr string
	// Engine resolves the requests
	Engine *mocker.Engine

	// Optional
	// BaseURL replaces the scheme and host of incoming requests before they are matched, so
	// plans can be registered against the URLs clients think they are calling.
	// Defaults to http:// and the request's Host header.
	BaseURL string
	// Network must be "tcp", "tcp4", "tcp6", "unix", "unixpacket" or "" (which defaults to tcp).
	Network string
}

func New(ctx context.Context, cfg Config) (s *Server, err error) {
	ctx, span := o11y.StartSpan(ctx, "server: new-server "+cfg.Name)
	defer o11y.End(span, &err)
	if cfg.Network == "" {
		cfg.Network = "tcp"
	}
	if cfg.Engine == nil {
		return nil, errors.New("an engine is required")
	}
	span.AddField("server_name", cfg.Name)
	span.AddField("network", cfg.Network)
	span.AddField("base_url", cfg.BaseURL)

	ln, err := net.Listen(cfg.Network, cfg.Addr)
	if err != nil {
		return nil, err
	}
	span.AddField("address", ln.Addr().String())

	return &Server{
		listener: ln,
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           Handler(cfg.Engine, cfg.BaseURL),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       55 * time.Second,
			WriteTimeout:      55 * time.Second,
			BaseContext: func(net.Listener) context.Context {
				return o11y.CopyProvider(ctx, context.Background())
			},
		},
	}, nil
}

// Serve the http server. On context cancellation the server is shutdown giving some time
// for the in flight requests to be handled.
func (s *Server) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(cctx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := s.server.Serve(s.listener)
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	return g.Wait()
}

func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Handler resolves each request against e and writes the planned response.
func Handler(e *mocker.Engine, baseURL string) http.Handler {
	baseURL = strings.TrimSuffix(baseURL, "/")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		base := baseURL
		if base == "" {
			base = "http://" + r.Host
		}

		d, err := e.Resolve(r.Context(), mocker.Request{
			Method: r.Method,
			URI:    base + r.URL.RequestURI(),
			Header: r.Header,
			Body:   r.Body,
		})
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}

		if err := responder.Write(w, d); err != nil {
			o11y.LogError(r.Context(), "mockserver: write response", err)
		}
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, mocker.ErrNoMatch):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrExhausted):
		return http.StatusGone
	case errors.Is(err, canonurl.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		// client went away while its body was drained
		return 499
	}
	return http.StatusInternalServerError
}
