package jsonlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/circleci/httpmock/o11y"
)

func TestProvider_Spans(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := o11y.WithProvider(context.Background(), New(Config{Writer: buf, Compact: true}))

	t.Run("Write nested spans", func(t *testing.T) {
		ctx, parent := o11y.StartSpan(ctx, "parent")
		parent.AddField("name", "value")

		_, child := o11y.StartSpan(ctx, "child")
		err := errors.New("oh no")
		o11y.End(child, &err)

		o11y.End(parent, nil)
	})

	var events []Event
	t.Run("Decode events", func(t *testing.T) {
		dec := json.NewDecoder(buf)
		for dec.More() {
			var ev Event
			assert.Assert(t, dec.Decode(&ev))
			events = append(events, ev)
		}
		assert.Assert(t, cmp.Len(events, 2))
	})

	t.Run("Check child", func(t *testing.T) {
		child := events[0]
		assert.Check(t, cmp.Equal(child.Name, "child"))
		assert.Check(t, cmp.DeepEqual(child.Fields, map[string]any{
			"result": "error",
			"error":  "oh no",
		}))
	})

	t.Run("Check parent", func(t *testing.T) {
		parent := events[1]
		assert.Check(t, cmp.Equal(parent.Name, "parent"))
		assert.Check(t, cmp.Equal(parent.ParentID, uuid.Nil))
		assert.Check(t, cmp.Equal(parent.TraceID, events[0].TraceID))
		assert.Check(t, cmp.Equal(parent.ID, events[0].ParentID))
		assert.Check(t, cmp.DeepEqual(parent.Fields, map[string]any{
			"app.name": "value",
			"result":   "success",
		}))
	})
}

func TestProvider_Log(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := o11y.WithProvider(context.Background(), New(Config{Writer: buf}))

	o11y.Log(ctx, "an event", o11y.Field("count", 2))

	var ev Event
	assert.Assert(t, json.Unmarshal(buf.Bytes(), &ev))
	assert.Check(t, cmp.Equal(ev.Name, "an event"))
	assert.Check(t, cmp.DeepEqual(ev.Fields, map[string]any{"app.count": float64(2)}))
}

func TestProvider_GetSpan(t *testing.T) {
	p := New(Config{Writer: &bytes.Buffer{}})
	ctx := context.Background()
	assert.Check(t, cmp.Nil(p.GetSpan(ctx)))

	ctx, s := p.StartSpan(ctx, "span")
	assert.Check(t, cmp.Equal(p.GetSpan(ctx), s))
}

func TestProvider_MetricsProvider(t *testing.T) {
	p := New(Config{})
	assert.Check(t, p.MetricsProvider().Count("count", 1, nil, 1))
}
