// Package fakemetrics provides an o11y.MetricsProvider that keeps every metric in memory,
// so tests can assert on what was emitted.
package fakemetrics

import (
	"fmt"
	"sync"

	gocmp "github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type MetricCall struct {
	Metric   string
	Name     string
	Value    float64
	ValueInt int64
	Tags     []string
	Rate     float64
}

// CMPMetrics compares metric calls ignoring their order and small timing differences.
var CMPMetrics = gocmp.Options{
	cmpopts.EquateApprox(0, 10),
	cmpopts.SortSlices(func(x, y MetricCall) bool {
		const format = "%s|%s|%s"
		return fmt.Sprintf(format, x.Metric, x.Name, x.Tags) <
			fmt.Sprintf(format, y.Metric, y.Name, y.Tags)
	}),
}

type Provider struct {
	mu    sync.RWMutex
	calls []MetricCall
}

func (f *Provider) Calls() []MetricCall {
	f.mu.RLock()
	defer f.mu.RUnlock()

	calls := make([]MetricCall, len(f.calls))
	copy(calls, f.calls)
	return calls
}

// Named returns the calls for a single metric name.
func (f *Provider) Named(name string) []MetricCall {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var calls []MetricCall
	for _, c := range f.calls {
		if c.Name == name {
			calls = append(calls, c)
		}
	}
	return calls
}

func (f *Provider) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *Provider) record(c MetricCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return nil
}

func (f *Provider) TimeInMilliseconds(name string, value float64, tags []string, rate float64) error {
	return f.record(MetricCall{Metric: "timer", Name: name, Value: value, Tags: tags, Rate: rate})
}

func (f *Provider) Gauge(name string, value float64, tags []string, rate float64) error {
	return f.record(MetricCall{Metric: "gauge", Name: name, Value: value, Tags: tags, Rate: rate})
}

func (f *Provider) Count(name string, value int64, tags []string, rate float64) error {
	return f.record(MetricCall{Metric: "count", Name: name, ValueInt: value, Tags: tags, Rate: rate})
}

func (f *Provider) Histogram(name string, value float64, tags []string, rate float64) error {
	return f.record(MetricCall{Metric: "histogram", Name: name, Value: value, Tags: tags, Rate: rate})
}

func (f *Provider) Close() error {
	return nil
}
