// Package o11y provides observability in the form of tracing, logging and metrics.
//
// The provider lives in the context. Without one every call is a noop, so library code can
// trace unconditionally:
//
//	ctx, span := o11y.StartSpan(ctx, "httpmock: resolve")
//	defer o11y.End(span, &err)
package o11y

import (
	"context"
	"errors"

	"github.com/DataDog/datadog-go/statsd"
)

type Provider interface {
	// StartSpan begins a new span that'll represent a unit of work
	//
	// `name` should be a short human readable identifier of the work.
	// The caller is responsible for ending the span, usually via defer End(span, &err).
	StartSpan(ctx context.Context, name string) (context.Context, Span)

	// GetSpan returns the active span in the given context. It will return nil if there is no span available.
	GetSpan(ctx context.Context) Span

	// AddField is for adding application-level information to the currently active span
	AddField(ctx context.Context, key string, val any)

	// Log sends a zero duration trace event.
	Log(ctx context.Context, name string, fields ...Pair)

	Close(ctx context.Context)

	// MetricsProvider grants lower control over the metrics that o11y sends.
	MetricsProvider() MetricsProvider
}

type Span interface {
	// AddField is for adding application-level information to the span
	//
	// Any field name will be prefixed with "app."
	AddField(key string, val any)

	// AddRawField is for adding useful information to the span in library/plumbing code
	//
	// eg. result, http.status_code, http.method
	AddRawField(key string, val any)

	// End sets the duration of the span and tells the related provider that the span is complete.
	// The span should not be used after End is called.
	End()
}

type MetricsProvider interface {
	// Histogram aggregates values agent side for a period of time.
	Histogram(name string, value float64, tags []string, rate float64) error
	// TimeInMilliseconds measures timing data only. For example, how long a network call takes
	TimeInMilliseconds(name string, value float64, tags []string, rate float64) error
	// Gauge measures the value of a metric at a particular time.
	Gauge(name string, value float64, tags []string, rate float64) error
	// Count sends an individual value in time.
	Count(name string, value int64, tags []string, rate float64) error
}

type providerKey struct{}

// WithProvider returns a child context which contains the Provider. The Provider
// can be retrieved with FromContext.
func WithProvider(ctx context.Context, p Provider) context.Context {
	return context.WithValue(ctx, providerKey{}, p)
}

// FromContext returns the provider stored in the context, or the default noop
// provider if none exists.
func FromContext(ctx context.Context) Provider {
	provider, ok := ctx.Value(providerKey{}).(Provider)
	if !ok {
		return defaultProvider
	}
	return provider
}

// CopyProvider puts the provider from src into dst, unless dst already has one.
func CopyProvider(src, dst context.Context) context.Context {
	if _, ok := dst.Value(providerKey{}).(Provider); ok {
		return dst
	}
	if p, ok := src.Value(providerKey{}).(Provider); ok {
		return WithProvider(dst, p)
	}
	return dst
}

// Log sends a zero duration trace event.
func Log(ctx context.Context, name string, fields ...Pair) {
	FromContext(ctx).Log(ctx, name, fields...)
}

// LogError sends a zero duration trace event with an error.
func LogError(ctx context.Context, name string, err error, fields ...Pair) {
	_, span := StartSpan(ctx, name)
	for _, f := range fields {
		span.AddField(f.Key, f.Value)
	}
	AddResultToSpan(span, err)
	span.End()
}

// StartSpan starts a span from a context that must contain a provider for this to have any effect.
func StartSpan(ctx context.Context, name string) (context.Context, Span) {
	return FromContext(ctx).StartSpan(ctx, name)
}

// AddField adds a field to the currently active span
func AddField(ctx context.Context, key string, val any) {
	FromContext(ctx).AddField(ctx, key, val)
}

// End completes a span, including using AddResultToSpan to set the error and result fields
//
// Capture the returned error like this, on the line after StartSpan:
// defer o11y.End(span, &err)
func End(span Span, err *error) {
	var actualErr error
	if err != nil {
		actualErr = *err
	}
	AddResultToSpan(span, actualErr)
	span.End()
}

// AddResultToSpan takes a possibly nil error, and updates the "error" and "result" fields of the span appropriately.
func AddResultToSpan(span Span, err error) {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		// Cancellation is expected, tracing it as an error adds clutter when looking for real errors.
		span.AddRawField("result", "canceled")
		span.AddRawField("warning", err.Error())
		return
	case err != nil:
		span.AddRawField("result", "error")
		span.AddRawField("error", err.Error())
		return
	}
	span.AddRawField("result", "success")
}

// Pair is a key value pair used to add metadata to a span.
type Pair struct {
	Key   string
	Value any
}

// Field returns a new metadata pair.
func Field(key string, value any) Pair {
	return Pair{Key: key, Value: value}
}

var defaultProvider = &noopProvider{}

type noopProvider struct{}

func (c *noopProvider) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, &noopSpan{}
}

func (c *noopProvider) GetSpan(context.Context) Span {
	return &noopSpan{}
}

func (c *noopProvider) AddField(context.Context, string, any) {}

func (c *noopProvider) Close(context.Context) {}

func (c *noopProvider) Log(context.Context, string, ...Pair) {}

func (c *noopProvider) MetricsProvider() MetricsProvider {
	return &statsd.NoOpClient{}
}

type noopSpan struct{}

func (s *noopSpan) AddField(string, any)    {}
func (s *noopSpan) AddRawField(string, any) {}
func (s *noopSpan) End()                    {}
