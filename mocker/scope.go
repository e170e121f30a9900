package mocker

import (
	"context"
	"testing"
)

// Open activates the engine, clearing it first when clear is set, and returns the function
// that deactivates it.
func (e *Engine) Open(clear bool) (func(), error) {
	if clear {
		e.Clear()
	}
	if err := e.Activate(); err != nil {
		return nil, err
	}
	return e.Deactivate, nil
}

// Scope runs fn with the engine active. The engine is deactivated when fn returns or panics.
func (e *Engine) Scope(clear bool, fn func() error) error {
	deactivate, err := e.Open(clear)
	if err != nil {
		return err
	}
	defer deactivate()
	return fn()
}

// Run clears and activates the engine for the duration of the test.
func (e *Engine) Run(t testing.TB) {
	t.Helper()
	deactivate, err := e.Open(true)
	if err != nil {
		t.Fatalf("httpmock: %v", err)
	}
	t.Cleanup(deactivate)
}

// Decorate wraps a test function so it runs with the engine cleared and active.
func (e *Engine) Decorate(fn func(t *testing.T)) func(t *testing.T) {
	return func(t *testing.T) {
		e.Run(t)
		fn(t)
	}
}

// Default intercepts http.DefaultTransport. Tests using it cannot run in parallel.
var Default = New(context.Background(), Config{})
