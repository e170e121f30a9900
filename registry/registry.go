// Package registry stores the response plans expected requests are resolved against.
//
// A plan is keyed by HTTP method and canonical URL, and is either a single descriptor that
// answers every matching call, or a queue of descriptors consumed one per call. The registry
// does no locking; it belongs to a single engine on a single test timeline.
package registry

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/circleci/httpmock/body"
	"github.com/circleci/httpmock/canonurl"
)

var (
	ErrNotFound         = errors.New("no plan registered")
	ErrExhausted        = errors.New("no responses left")
	ErrInvalidResponses = errors.New("cannot specify params in responses, register each params variant separately")
	ErrInvalidMethod    = errors.New("invalid method")
)

type Method string

const (
	GET     Method = http.MethodGet
	POST    Method = http.MethodPost
	PUT     Method = http.MethodPut
	PATCH   Method = http.MethodPatch
	HEAD    Method = http.MethodHead
	OPTIONS Method = http.MethodOptions
	DELETE  Method = http.MethodDelete
)

// ParseMethod upper-cases m and checks it is one of the supported methods.
func ParseMethod(m string) (Method, error) {
	switch method := Method(strings.ToUpper(m)); method {
	case GET, POST, PUT, PATCH, HEAD, OPTIONS, DELETE:
		return method, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMethod, m)
}

// Options describe a registration. Responses, when set, turns the registration into a queue
// and the top level response fields are ignored.
type Options struct {
	Body       any
	Header     http.Header
	Status     int
	Reason     string
	Params     canonurl.Params
	Responses  []Options
	AutoLength bool
}

// Descriptor is the canned response handed to a materializer.
type Descriptor struct {
	Status     int
	Reason     string
	Header     http.Header
	Body       any
	AutoLength bool
}

func descriptorFrom(o Options) Descriptor {
	d := Descriptor{
		Status:     o.Status,
		Reason:     o.Reason,
		Header:     o.Header,
		Body:       o.Body,
		AutoLength: o.AutoLength,
	}
	if d.Status == 0 {
		d.Status = http.StatusOK
	}
	return d.Clone()
}

// Clone copies the descriptor. Streams cannot be copied and are shared.
func (d Descriptor) Clone() Descriptor {
	d.Header = d.Header.Clone()
	if b, ok := d.Body.([]byte); ok {
		d.Body = bytes.Clone(b)
	}
	return d
}

type key struct {
	method Method
	url    string
}

type entry struct {
	single *Descriptor
	queue  []Descriptor
}

type Registry struct {
	entries map[key]*entry
}

func New() *Registry {
	return &Registry{entries: map[key]*entry{}}
}

// Register validates opts and stores the plan, replacing any plan already registered for
// the same method and canonical URL.
func (r *Registry) Register(method Method, uri string, opts Options) error {
	m, err := ParseMethod(string(method))
	if err != nil {
		return err
	}
	for _, resp := range opts.Responses {
		if len(resp.Params) > 0 {
			return ErrInvalidResponses
		}
	}
	if err := validateBodies(opts); err != nil {
		return err
	}
	u, err := canonurl.Make(uri, opts.Params)
	if err != nil {
		return err
	}

	e := &entry{}
	if opts.Responses != nil {
		e.queue = make([]Descriptor, 0, len(opts.Responses))
		for _, resp := range opts.Responses {
			e.queue = append(e.queue, descriptorFrom(resp))
		}
	} else {
		d := descriptorFrom(opts)
		e.single = &d
	}
	r.entries[key{method: m, url: u.Key()}] = e
	return nil
}

func validateBodies(opts Options) error {
	if err := body.Validate(opts.Body); err != nil {
		return err
	}
	for _, resp := range opts.Responses {
		if err := validateBodies(resp); err != nil {
			return err
		}
	}
	return nil
}

// Resolve returns the descriptor for the next call to method and u, consuming it when the plan
// is a queue. An exhausted queue stays registered and keeps returning ErrExhausted.
func (r *Registry) Resolve(method Method, u canonurl.URL) (Descriptor, error) {
	e, ok := r.entries[key{method: method, url: u.Key()}]
	if !ok {
		return Descriptor{}, ErrNotFound
	}
	if e.single != nil {
		return e.single.Clone(), nil
	}
	if len(e.queue) == 0 {
		return Descriptor{}, ErrExhausted
	}
	d := e.queue[0]
	e.queue = e.queue[1:]
	return d.Clone(), nil
}

// Lookup returns copies of the descriptors registered for method and u without consuming them.
// A queue returns its remaining descriptors, possibly none.
func (r *Registry) Lookup(method Method, u canonurl.URL) ([]Descriptor, error) {
	e, ok := r.entries[key{method: method, url: u.Key()}]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, method, u)
	}
	if e.single != nil {
		return []Descriptor{e.single.Clone()}, nil
	}
	ds := make([]Descriptor, len(e.queue))
	for i, d := range e.queue {
		ds[i] = d.Clone()
	}
	return ds, nil
}

// Len is the number of registered plans, exhausted queues included.
func (r *Registry) Len() int {
	return len(r.entries)
}

func (r *Registry) Clear() {
	r.entries = map[key]*entry{}
}
