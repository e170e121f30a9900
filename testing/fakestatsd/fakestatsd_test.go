package fakestatsd

import (
	"testing"

	"github.com/DataDog/datadog-go/statsd"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
	"gotest.tools/v3/poll"
)

func TestServer(t *testing.T) {
	s := New(t)

	stats, err := statsd.New(s.Addr(), statsd.WithNamespace("httpmock."))
	assert.Assert(t, err)

	t.Run("Send", func(t *testing.T) {
		assert.Check(t, stats.Count("resolve", 1, []string{"method:GET", "result:matched"}, 1))
		assert.Check(t, stats.Close())
	})

	t.Run("Receive", func(t *testing.T) {
		poll.WaitOn(t, func(t poll.LogT) poll.Result {
			if len(s.Named("httpmock.resolve")) == 0 {
				return poll.Continue("no metrics found")
			}
			return poll.Success()
		})
		assert.Check(t, cmp.DeepEqual(s.Named("httpmock.resolve"), []Metric{
			{Name: "httpmock.resolve", Value: "1|c", Tags: []string{"method:GET", "result:matched"}},
		}))
	})
}

func TestParse(t *testing.T) {
	assert.Check(t, cmp.DeepEqual(parse("a.b:1.5|h|@0.5|#x:y"), Metric{
		Name:  "a.b",
		Value: "1.5|h|@0.5",
		Tags:  []string{"x:y"},
	}))
	assert.Check(t, cmp.DeepEqual(parse("gauge:3|g"), Metric{Name: "gauge", Value: "3|g"}))
}
