package testcontext

import (
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/circleci/httpmock/o11y"
	"github.com/circleci/httpmock/testing/fakemetrics"
)

func TestBackground_MetricsProvider(t *testing.T) {
	ctx := Background()
	metrics := o11y.FromContext(ctx).MetricsProvider()

	err := metrics.Gauge("gauge", 1, nil, 1)
	assert.Assert(t, err)
}

func TestWithMetrics(t *testing.T) {
	m := &fakemetrics.Provider{}
	ctx := WithMetrics(m)

	err := o11y.FromContext(ctx).MetricsProvider().Count("count", 1, nil, 1)
	assert.Assert(t, err)
	assert.Check(t, cmp.Len(m.Calls(), 1))
}
