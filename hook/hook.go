// Package hook provides the activation points an engine swaps itself into, so outbound
// calls are routed to it rather than the network.
//
// A hook owns one http.RoundTripper slot. Install replaces the slot and returns what was
// there before, Uninstall puts it back.
package hook

import (
	"net/http"
	"sync"
)

type Hook interface {
	Install(rt http.RoundTripper) (previous http.RoundTripper)
	Uninstall(previous http.RoundTripper)
}

// Client swaps the Transport of c. A nil Transport means http.DefaultTransport to the client,
// so restoring nil is correct.
func Client(c *http.Client) Hook {
	return &clientHook{client: c}
}

type clientHook struct {
	client *http.Client
}

func (h *clientHook) Install(rt http.RoundTripper) http.RoundTripper {
	prev := h.client.Transport
	h.client.Transport = rt
	return prev
}

func (h *clientHook) Uninstall(previous http.RoundTripper) {
	h.client.Transport = previous
}

var defaultTransportMu sync.Mutex

// DefaultTransport swaps http.DefaultTransport, which also intercepts http.DefaultClient and
// every client without its own Transport.
func DefaultTransport() Hook {
	return defaultTransportHook{}
}

type defaultTransportHook struct{}

func (defaultTransportHook) Install(rt http.RoundTripper) http.RoundTripper {
	defaultTransportMu.Lock()
	defer defaultTransportMu.Unlock()
	prev := http.DefaultTransport
	http.DefaultTransport = rt
	return prev
}

func (defaultTransportHook) Uninstall(previous http.RoundTripper) {
	defaultTransportMu.Lock()
	defer defaultTransportMu.Unlock()
	http.DefaultTransport = previous
}

// Func adapts a pair of functions, for transports that are neither of the above.
type Func struct {
	InstallFunc   func(rt http.RoundTripper) http.RoundTripper
	UninstallFunc func(previous http.RoundTripper)
}

func (f Func) Install(rt http.RoundTripper) http.RoundTripper {
	return f.InstallFunc(rt)
}

func (f Func) Uninstall(previous http.RoundTripper) {
	f.UninstallFunc(previous)
}
