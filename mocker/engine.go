package mocker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/circleci/httpmock/body"
	"github.com/circleci/httpmock/canonurl"
	"github.com/circleci/httpmock/hook"
	"github.com/circleci/httpmock/ledger"
	"github.com/circleci/httpmock/o11y"
	"github.com/circleci/httpmock/registry"
	"github.com/circleci/httpmock/responder"
)

type Config struct {
	// Hook is where the engine installs itself on activation.
	// Optional, defaults to http.DefaultTransport.
	Hook hook.Hook
}

// Engine resolves intercepted requests against registered plans and records them.
type Engine struct {
	ctx    context.Context
	hook   hook.Hook
	ledger *ledger.Ledger

	// mu guards the registry and the activation state, the round tripper can be
	// called from any client goroutine.
	mu       sync.Mutex
	registry *registry.Registry
	active   bool
	previous http.RoundTripper
}

// New creates an inactive engine with nothing registered. The o11y provider in ctx, if any,
// is used for the engine's logs, traces and metrics.
func New(ctx context.Context, cfg Config) *Engine {
	if cfg.Hook == nil {
		cfg.Hook = hook.DefaultTransport()
	}
	return &Engine{
		ctx:      ctx,
		hook:     cfg.Hook,
		ledger:   ledger.New(),
		registry: registry.New(),
	}
}

// Register stores a plan for method and uri, replacing any plan with the same method and
// canonical URL.
func (e *Engine) Register(method registry.Method, uri string, opts registry.Options) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Register(method, uri, opts)
}

// RegisterJSON is like Register with v encoded as the JSON body. The Content-Type is
// application/json unless opts.Header sets its own.
func (e *Engine) RegisterJSON(method registry.Method, uri string, v any, opts registry.Options) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h := http.Header{"Content-Type": {"application/json"}}
	for k, vs := range opts.Header {
		h[http.CanonicalHeaderKey(k)] = append([]string{}, vs...)
	}
	opts.Body = b
	opts.Header = h
	return e.Register(method, uri, opts)
}

// Registered returns copies of what is stored for method, uri and params without consuming
// anything. It fails with registry.ErrNotFound when there is no plan.
func (e *Engine) Registered(method registry.Method, uri string, params canonurl.Params) ([]registry.Descriptor, error) {
	m, err := registry.ParseMethod(string(method))
	if err != nil {
		return nil, err
	}
	u, err := canonurl.Make(uri, params)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Lookup(m, u)
}

// Request is an intercepted request as seen by Resolve.
type Request struct {
	Method string
	URI    string
	// Params, when non-empty, replace the query string of URI.
	Params canonurl.Params
	Header http.Header
	// Body is drained, and the payload recorded, when the request resolves.
	Body io.Reader
}

// Resolve finds the response for req and records the call. Nothing is recorded for a
// request that fails to resolve.
func (e *Engine) Resolve(ctx context.Context, req Request) (d registry.Descriptor, err error) {
	ctx = o11y.CopyProvider(e.ctx, ctx)
	ctx, span := o11y.StartSpan(ctx, "httpmock: resolve")
	defer o11y.End(span, &err)
	method := strings.ToUpper(req.Method)
	span.AddRawField("http.method", method)
	span.AddRawField("http.url", req.URI)

	result := "matched"
	defer func() {
		_ = o11y.FromContext(ctx).MetricsProvider().Count("httpmock.resolve", 1, []string{
			"method:" + method,
			"result:" + result,
		}, 1)
	}()

	u, err := canonurl.Make(req.URI, req.Params)
	if err != nil {
		result = "invalid"
		return registry.Descriptor{}, err
	}

	d, err = e.lookup(method, u)
	switch {
	case errors.Is(err, registry.ErrExhausted):
		result = "exhausted"
		return registry.Descriptor{}, err
	case err != nil:
		result = "no_match"
		return registry.Descriptor{}, &NoMatchError{Method: method, URI: req.URI, Params: u.Params()}
	}
	span.AddRawField("http.status_code", d.Status)

	payload, err := body.Drain(ctx, req.Body)
	if err != nil {
		result = "drain_failed"
		return registry.Descriptor{}, err
	}
	if len(payload) == 0 {
		payload = nil
	}

	e.ledger.Record(ledger.Call{
		Method: method,
		URL:    u,
		Header: req.Header,
		Body:   payload,
	})
	return d, nil
}

func (e *Engine) lookup(method string, u canonurl.URL) (registry.Descriptor, error) {
	m, err := registry.ParseMethod(method)
	if err != nil {
		return registry.Descriptor{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Resolve(m, u)
}

// RoundTrip implements http.RoundTripper.
func (e *Engine) RoundTrip(req *http.Request) (*http.Response, error) {
	var b io.Reader
	if req.Body != nil {
		defer req.Body.Close()
		b = req.Body
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	d, err := e.Resolve(req.Context(), Request{
		Method: method,
		URI:    req.URL.String(),
		Header: req.Header,
		Body:   b,
	})
	if err != nil {
		return nil, err
	}
	return responder.Response(d, req)
}

// Activate installs the engine into its hook. Activating an active engine fails with
// ErrAlreadyActive.
func (e *Engine) Activate() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active {
		return ErrAlreadyActive
	}
	e.previous = e.hook.Install(e)
	e.active = true
	o11y.Log(e.ctx, "httpmock: activate")
	return nil
}

// Deactivate restores whatever the hook held before activation. It does nothing when the
// engine is not active.
func (e *Engine) Deactivate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return
	}
	e.hook.Uninstall(e.previous)
	e.previous = nil
	e.active = false
	o11y.Log(e.ctx, "httpmock: deactivate")
}

func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Clear forgets every plan and every recorded call.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.Clear()
	e.ledger.Reset()
	o11y.Log(e.ctx, "httpmock: clear")
}

// HasCall reports whether a call to uri matching all criteria was recorded.
func (e *Engine) HasCall(uri string, criteria ...ledger.Criterion) (bool, error) {
	u, err := canonurl.Make(uri, nil)
	if err != nil {
		return false, err
	}
	return e.ledger.HasCall(u, criteria...), nil
}

// Calls returns copies of the recorded calls, oldest first.
func (e *Engine) Calls() []ledger.Call {
	return e.ledger.AllCalls()
}

// LastCall returns the most recent call, nil if there is none.
func (e *Engine) LastCall() *ledger.Call {
	return e.ledger.LastCall()
}
