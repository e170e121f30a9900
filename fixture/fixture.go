// Package fixture loads response plans from YAML files, so the same plans can be shared by
// Go tests and by the standalone server.
//
// A fixture file holds one or more YAML documents of the form:
//
//	plans:
//	  - method: GET
//	    url: http://example.com/users
//	    params: {page: "1"}
//	    headers: {X-Total: "10"}
//	    json: [{id: 1}]
//	  - method: POST
//	    url: http://example.com/jobs
//	    responses:
//	      - status: 202
//	      - status: 409
//	        reason: Busy
//	        body: already running
package fixture

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/circleci/httpmock/canonurl"
	"github.com/circleci/httpmock/registry"
)

var ErrInvalidFixture = errors.New("invalid fixture")

// Values accepts either a single scalar or a list of scalars.
type Values []string

func (v *Values) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*v = Values{node.Value}
		return nil
	}
	var s []string
	if err := node.Decode(&s); err != nil {
		return err
	}
	*v = s
	return nil
}

type Response struct {
	Status     int               `yaml:"status"`
	Reason     string            `yaml:"reason"`
	Headers    map[string]Values `yaml:"headers"`
	Body       *string           `yaml:"body"`
	JSON       any               `yaml:"json"`
	AutoLength bool              `yaml:"auto_length"`
}

type Plan struct {
	Method    string            `yaml:"method"`
	URL       string            `yaml:"url"`
	Params    map[string]Values `yaml:"params"`
	Response  `yaml:",inline"`
	Responses []Response `yaml:"responses"`
}

type document struct {
	Plans []Plan `yaml:"plans"`
}

// Registrar is anything plans can be registered with, usually a *mocker.Engine.
type Registrar interface {
	Register(method registry.Method, uri string, opts registry.Options) error
}

// LoadFile reads every plan in the file at path.
func LoadFile(path string) (_ []Plan, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	plans, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return plans, nil
}

// Load reads every plan in every YAML document of r. Unknown fields are rejected.
func Load(r io.Reader) ([]Plan, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var plans []Plan
	for {
		var doc document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return plans, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
		}
		plans = append(plans, doc.Plans...)
	}
}

// Apply registers every plan in order, so later plans for the same request replace earlier ones.
func Apply(reg Registrar, plans []Plan) error {
	for i, p := range plans {
		opts, err := p.Options()
		if err != nil {
			return fmt.Errorf("plan %d (%s %s): %w", i, p.method(), p.URL, err)
		}
		if err := reg.Register(p.method(), p.URL, opts); err != nil {
			return fmt.Errorf("plan %d (%s %s): %w", i, p.method(), p.URL, err)
		}
	}
	return nil
}

func (p Plan) method() registry.Method {
	if p.Method == "" {
		return registry.GET
	}
	return registry.Method(p.Method)
}

// Options converts the plan into registration options.
func (p Plan) Options() (registry.Options, error) {
	opts, err := p.Response.options()
	if err != nil {
		return registry.Options{}, err
	}
	if len(p.Params) > 0 {
		opts.Params = make(canonurl.Params, len(p.Params))
		for k, v := range p.Params {
			opts.Params[k] = v
		}
	}
	if p.Responses == nil {
		return opts, nil
	}

	opts.Responses = make([]registry.Options, 0, len(p.Responses))
	for i, r := range p.Responses {
		ro, err := r.options()
		if err != nil {
			return registry.Options{}, fmt.Errorf("response %d: %w", i, err)
		}
		opts.Responses = append(opts.Responses, ro)
	}
	return opts, nil
}

func (r Response) options() (registry.Options, error) {
	opts := registry.Options{
		Status:     r.Status,
		Reason:     r.Reason,
		AutoLength: r.AutoLength,
	}
	if len(r.Headers) > 0 {
		opts.Header = http.Header{}
		for k, vs := range r.Headers {
			for _, v := range vs {
				opts.Header.Add(k, v)
			}
		}
	}

	switch {
	case r.Body != nil && r.JSON != nil:
		return registry.Options{}, fmt.Errorf("%w: body and json are mutually exclusive", ErrInvalidFixture)
	case r.Body != nil:
		opts.Body = *r.Body
	case r.JSON != nil:
		b, err := json.Marshal(r.JSON)
		if err != nil {
			return registry.Options{}, fmt.Errorf("%w: json: %v", ErrInvalidFixture, err)
		}
		opts.Body = b
		if opts.Header == nil {
			opts.Header = http.Header{}
		}
		if opts.Header.Get("Content-Type") == "" {
			opts.Header.Set("Content-Type", "application/json")
		}
	}
	return opts, nil
}
