package mocker

import (
	"errors"
	"net/http"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/circleci/httpmock/hook"
	"github.com/circleci/httpmock/registry"
	"github.com/circleci/httpmock/testing/testcontext"
)

type fakeTransport struct{}

func (fakeTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("fake transport")
}

func newClientEngine() (*Engine, *http.Client, http.RoundTripper) {
	orig := fakeTransport{}
	client := &http.Client{Transport: orig}
	return New(testcontext.Background(), Config{Hook: hook.Client(client)}), client, orig
}

func TestEngine_Activate(t *testing.T) {
	e, client, orig := newClientEngine()

	t.Run("Activate", func(t *testing.T) {
		assert.Assert(t, e.Activate())
		assert.Check(t, e.Active())
		assert.Check(t, cmp.Equal(client.Transport, http.RoundTripper(e)))
	})

	t.Run("Activate twice", func(t *testing.T) {
		assert.Check(t, cmp.ErrorIs(e.Activate(), ErrAlreadyActive))
		assert.Check(t, cmp.Equal(client.Transport, http.RoundTripper(e)))
	})

	t.Run("Deactivate restores", func(t *testing.T) {
		e.Deactivate()
		assert.Check(t, !e.Active())
		assert.Check(t, cmp.Equal(client.Transport, orig))
	})

	t.Run("Deactivate when inactive", func(t *testing.T) {
		e.Deactivate()
		assert.Check(t, cmp.Equal(client.Transport, orig))
	})

	t.Run("Round trip after deactivation", func(t *testing.T) {
		assert.Assert(t, e.Activate())
		e.Deactivate()
		assert.Assert(t, e.Activate())
		e.Deactivate()
		assert.Check(t, cmp.Equal(client.Transport, orig))
	})
}

func TestEngine_Open(t *testing.T) {
	e, client, orig := newClientEngine()
	assert.Assert(t, e.Register(registry.GET, "http://example.com/", registry.Options{}))

	t.Run("Without clear", func(t *testing.T) {
		deactivate, err := e.Open(false)
		assert.Assert(t, err)
		ds, err := e.Registered(registry.GET, "http://example.com/", nil)
		assert.Check(t, err)
		assert.Check(t, cmp.Len(ds, 1))
		deactivate()
		assert.Check(t, cmp.Equal(client.Transport, orig))
	})

	t.Run("With clear", func(t *testing.T) {
		deactivate, err := e.Open(true)
		assert.Assert(t, err)
		defer deactivate()
		_, err = e.Registered(registry.GET, "http://example.com/", nil)
		assert.Check(t, cmp.ErrorIs(err, registry.ErrNotFound))
	})

	t.Run("Already active", func(t *testing.T) {
		assert.Assert(t, e.Activate())
		defer e.Deactivate()
		_, err := e.Open(false)
		assert.Check(t, cmp.ErrorIs(err, ErrAlreadyActive))
	})
}

func TestEngine_Scope(t *testing.T) {
	e, client, orig := newClientEngine()

	t.Run("Active inside", func(t *testing.T) {
		err := e.Scope(false, func() error {
			assert.Check(t, e.Active())
			assert.Check(t, cmp.Equal(client.Transport, http.RoundTripper(e)))
			return nil
		})
		assert.Check(t, err)
		assert.Check(t, !e.Active())
	})

	t.Run("Error", func(t *testing.T) {
		want := errors.New("boom")
		err := e.Scope(true, func() error {
			return want
		})
		assert.Check(t, cmp.ErrorIs(err, want))
		assert.Check(t, !e.Active())
		assert.Check(t, cmp.Equal(client.Transport, orig))
	})

	t.Run("Panic", func(t *testing.T) {
		func() {
			defer func() {
				assert.Check(t, cmp.Equal(recover(), "boom"))
			}()
			_ = e.Scope(true, func() error {
				panic("boom")
			})
		}()
		assert.Check(t, !e.Active())
		assert.Check(t, cmp.Equal(client.Transport, orig))
	})
}

func TestEngine_Run(t *testing.T) {
	e, client, orig := newClientEngine()

	t.Run("Test", func(t *testing.T) {
		e.Run(t)
		assert.Check(t, e.Active())
		assert.Check(t, cmp.Equal(client.Transport, http.RoundTripper(e)))
	})

	assert.Check(t, !e.Active())
	assert.Check(t, cmp.Equal(client.Transport, orig))
}

func TestEngine_Decorate(t *testing.T) {
	e, client, orig := newClientEngine()
	assert.Assert(t, e.Register(registry.GET, "http://example.com/stale", registry.Options{}))

	ran := false
	t.Run("Decorated", e.Decorate(func(t *testing.T) {
		ran = true
		assert.Check(t, e.Active())
		_, err := e.Registered(registry.GET, "http://example.com/stale", nil)
		assert.Check(t, cmp.ErrorIs(err, registry.ErrNotFound))
	}))

	assert.Check(t, ran)
	assert.Check(t, !e.Active())
	assert.Check(t, cmp.Equal(client.Transport, orig))
}

func TestDefault(t *testing.T) {
	orig := http.DefaultTransport

	err := Default.Scope(true, func() error {
		assert.Check(t, cmp.Equal(http.DefaultTransport, http.RoundTripper(Default)))
		assert.Check(t, Default.Register(registry.GET, "http://example.com/default", registry.Options{Body: "default"}))

		res, err := http.Get("http://example.com/default")
		assert.Assert(t, err)
		assert.Check(t, res.Body.Close())
		assert.Check(t, cmp.Equal(res.StatusCode, http.StatusOK))
		return nil
	})
	assert.Check(t, err)
	assert.Check(t, cmp.Equal(http.DefaultTransport, orig))
}
