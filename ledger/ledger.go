package ledger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/circleci/httpmock/canonurl"
)

type Call struct {
	Method string
	URL    canonurl.URL
	Header http.Header
	Body   []byte
}

func (c *Call) StringBody() string {
	return string(c.Body)
}

// Decode decodes the JSON from the call body into the supplied pointer
func (c *Call) Decode(x any) error {
	return json.Unmarshal(c.Body, x)
}

func (c Call) clone() Call {
	c.Header = c.Header.Clone()
	c.Body = bytes.Clone(c.Body)
	return c
}

type Ledger struct {
	mu    sync.RWMutex
	calls []Call
}

func New() *Ledger {
	return &Ledger{}
}

// Record appends a copy of the call.
func (l *Ledger) Record(call Call) {
	call = call.clone()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}

func (l *Ledger) AllCalls() []Call {
	l.mu.RLock()
	defer l.mu.RUnlock()
	calls := make([]Call, len(l.calls))
	for i, c := range l.calls {
		calls[i] = c.clone()
	}
	return calls
}

func (l *Ledger) LastCall() *Call {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.calls) == 0 {
		return nil
	}
	c := l.calls[len(l.calls)-1].clone()
	return &c
}

func (l *Ledger) FindCalls(method string, u canonurl.URL) []Call {
	return l.Find(u, Method(method))
}

// Find returns every call to u that satisfies all the criteria.
func (l *Ledger) Find(u canonurl.URL, criteria ...Criterion) []Call {
	q := newQuery(u, criteria)

	l.mu.RLock()
	defer l.mu.RUnlock()
	var calls []Call
	for _, c := range l.calls {
		if q.matches(c) {
			calls = append(calls, c.clone())
		}
	}
	return calls
}

// HasCall reports whether any recorded call to u satisfies all the criteria. Fields without
// a criterion are not compared.
func (l *Ledger) HasCall(u canonurl.URL, criteria ...Criterion) bool {
	q := newQuery(u, criteria)

	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, c := range l.calls {
		if q.matches(c) {
			return true
		}
	}
	return false
}
