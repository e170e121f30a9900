// Package jsonlog is an o11y provider that writes each finished span, and each log event,
// as an indented JSON object. It is meant for tests and local tools, not production tracing.
package jsonlog

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/google/uuid"

	"github.com/circleci/httpmock/o11y"
)

type Config struct {
	// Writer receives the events, defaults to os.Stdout.
	Writer io.Writer
	// Metrics receives metrics, defaults to a noop statsd client.
	Metrics o11y.MetricsProvider
	// Compact disables indentation.
	Compact bool
}

type spanKey struct{}

type Provider struct {
	metrics o11y.MetricsProvider

	mu  sync.Mutex
	enc *json.Encoder
}

var _ o11y.Provider = (*Provider)(nil)

func New(cfg Config) *Provider {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &statsd.NoOpClient{}
	}
	e := json.NewEncoder(cfg.Writer)
	if !cfg.Compact {
		e.SetIndent("", "  ")
	}
	return &Provider{
		metrics: cfg.Metrics,
		enc:     e,
	}
}

// Event is the JSON shape of a span.
type Event struct {
	Name     string         `json:"name"`
	ID       uuid.UUID      `json:"id"`
	TraceID  uuid.UUID      `json:"trace_id"`
	ParentID uuid.UUID      `json:"parent_id"`
	Started  time.Time      `json:"started"`
	Duration time.Duration  `json:"duration"`
	Fields   map[string]any `json:"fields"`
}

type span struct {
	p        *Provider
	name     string
	id       uuid.UUID
	traceID  uuid.UUID
	parentID uuid.UUID
	started  time.Time

	mu     sync.Mutex
	fields map[string]any
}

func (s *span) AddField(key string, val any) {
	s.AddRawField("app."+key, val)
}

func (s *span) AddRawField(key string, val any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields[key] = val
}

func (s *span) End() {
	s.mu.Lock()
	ev := Event{
		Name:     s.name,
		ID:       s.id,
		TraceID:  s.traceID,
		ParentID: s.parentID,
		Started:  s.started,
		Duration: time.Since(s.started),
		Fields:   make(map[string]any, len(s.fields)),
	}
	for k, v := range s.fields {
		ev.Fields[k] = v
	}
	s.mu.Unlock()

	s.p.send(ev)
}

func (p *Provider) send(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.enc.Encode(ev) // who cares if we fail
}

func (p *Provider) getSpan(ctx context.Context) *span {
	if s, ok := ctx.Value(spanKey{}).(*span); ok {
		return s
	}
	return nil
}

func (p *Provider) StartSpan(ctx context.Context, name string) (context.Context, o11y.Span) {
	s := &span{
		p:       p,
		name:    name,
		id:      uuid.New(),
		started: time.Now(),
		fields:  map[string]any{},
	}
	if parent := p.getSpan(ctx); parent != nil {
		s.parentID = parent.id
		s.traceID = parent.traceID
	} else {
		s.traceID = uuid.New()
	}
	return context.WithValue(ctx, spanKey{}, s), s
}

func (p *Provider) GetSpan(ctx context.Context) o11y.Span {
	if s := p.getSpan(ctx); s != nil {
		return s
	}
	return nil
}

func (p *Provider) AddField(ctx context.Context, key string, val any) {
	if s := p.getSpan(ctx); s != nil {
		s.AddField(key, val)
	}
}

func (p *Provider) Log(ctx context.Context, name string, fields ...o11y.Pair) {
	_, s := p.StartSpan(ctx, name)
	for _, f := range fields {
		s.AddField(f.Key, f.Value)
	}
	s.End()
}

func (p *Provider) Close(context.Context) {}

func (p *Provider) MetricsProvider() o11y.MetricsProvider {
	return p.metrics
}
