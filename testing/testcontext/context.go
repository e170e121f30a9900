package testcontext

import (
	"context"

	"github.com/circleci/httpmock/o11y"
	"github.com/circleci/httpmock/o11y/jsonlog"
)

// ctx is a global singleton, so every test shares one provider and one output stream.
var ctx = newContext()

// Background returns a context for use in tests which contains a working o11y, so you get logs.
func Background() context.Context {
	return ctx
}

// WithMetrics returns a context like Background whose provider sends metrics to m.
func WithMetrics(m o11y.MetricsProvider) context.Context {
	return o11y.WithProvider(context.Background(), jsonlog.New(jsonlog.Config{Metrics: m}))
}

func newContext() context.Context {
	return o11y.WithProvider(context.Background(), jsonlog.New(jsonlog.Config{}))
}
