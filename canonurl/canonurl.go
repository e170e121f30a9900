// Package canonurl normalizes a URL and its query parameters into a comparable value.
//
// Two URLs that differ only in the order their query parameter keys were supplied compare
// equal, while the order of repeated values for a single key is significant. Explicit
// parameters always win over the query string of the URL they accompany.
package canonurl

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

var ErrInvalidURL = errors.New("invalid url")

// Params maps a query parameter name to its ordered values.
type Params map[string][]string

// Single builds Params from a mapping of scalar values, each becoming a one element list.
func Single(m map[string]string) Params {
	p := make(Params, len(m))
	for k, v := range m {
		p[k] = []string{v}
	}
	return p
}

// FromValues converts url.Values, copying the value slices.
func FromValues(v url.Values) Params {
	return Params(v).clone()
}

func (p Params) clone() Params {
	if p == nil {
		return nil
	}
	c := make(Params, len(p))
	for k, v := range p {
		c[k] = append([]string{}, v...)
	}
	return c
}

// String renders the parameters with keys sorted, e.g. {alpha: ["1"], beta: [""]}.
func (p Params) String() string {
	sb := strings.Builder{}
	sb.WriteString("{")
	for i, k := range sortedKeys(p) {
		if i > 0 {
			sb.WriteString(", ")
		}
		vals := make([]string, len(p[k]))
		for j, v := range p[k] {
			vals[j] = fmt.Sprintf("%q", v)
		}
		fmt.Fprintf(&sb, "%s: [%s]", k, strings.Join(vals, ", "))
	}
	sb.WriteString("}")
	return sb.String()
}

type param struct {
	key    string
	values []string
}

// URL is a canonical URL. The zero value is an empty URL.
type URL struct {
	Scheme string
	Host   string
	Path   string

	// sorted by key
	params []param
}

// Make parses uri and canonicalizes it. When params is non-empty it replaces the query
// string of uri entirely, otherwise the query string of uri is used.
func Make(uri string, params Params) (URL, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return URL{}, fmt.Errorf("%w: %q: %v", ErrInvalidURL, uri, err)
	}

	if len(params) == 0 {
		q, err := url.ParseQuery(u.RawQuery)
		if err != nil {
			return URL{}, fmt.Errorf("%w: %q: bad query: %v", ErrInvalidURL, uri, err)
		}
		params = Params(q)
	}

	c := URL{
		Scheme: strings.ToLower(u.Scheme),
		Host:   strings.ToLower(u.Host),
		Path:   u.EscapedPath(),
	}
	if c.Path == "" && c.Host != "" {
		c.Path = "/"
	}
	return c.WithParams(params), nil
}

// MustMake is like Make but panics on an invalid uri. Intended for tests and fixtures.
func MustMake(uri string, params Params) URL {
	u, err := Make(uri, params)
	if err != nil {
		panic(err)
	}
	return u
}

// Params returns a copy of the parameters, nil if there are none.
func (u URL) Params() Params {
	if len(u.params) == 0 {
		return nil
	}
	p := make(Params, len(u.params))
	for _, kv := range u.params {
		p[kv.key] = append([]string{}, kv.values...)
	}
	return p
}

// WithoutParams returns a copy of the URL without any query parameters.
func (u URL) WithoutParams() URL {
	u.params = nil
	return u
}

// WithParams returns a copy of the URL whose parameters are replaced by p.
func (u URL) WithParams(p Params) URL {
	u.params = nil
	for _, k := range sortedKeys(p) {
		u.params = append(u.params, param{key: k, values: append([]string{}, p[k]...)})
	}
	return u
}

// Key returns the canonical string form of the URL, suitable as a map key.
func (u URL) Key() string {
	sb := strings.Builder{}
	if u.Scheme != "" {
		sb.WriteString(u.Scheme)
		sb.WriteString("://")
	}
	sb.WriteString(u.Host)
	sb.WriteString(u.Path)
	if q := u.encodeQuery(); q != "" {
		sb.WriteString("?")
		sb.WriteString(q)
	}
	return sb.String()
}

// Equal reports whether both URLs are canonically equal.
func (u URL) Equal(o URL) bool {
	return u.Key() == o.Key()
}

func (u URL) String() string {
	return u.Key()
}

// StdURL converts to the net/url representation expected by transports.
func (u URL) StdURL() *url.URL {
	std := &url.URL{
		Scheme:   u.Scheme,
		Host:     u.Host,
		RawQuery: u.encodeQuery(),
	}
	if p, err := url.PathUnescape(u.Path); err == nil {
		std.Path = p
		std.RawPath = u.Path
	} else {
		std.Path = u.Path
	}
	return std
}

// encodeQuery differs from url.Values.Encode by keeping a key's value order stable
// without relying on map iteration.
func (u URL) encodeQuery() string {
	parts := make([]string, 0, len(u.params))
	for _, kv := range u.params {
		k := url.QueryEscape(kv.key)
		if len(kv.values) == 0 {
			parts = append(parts, k)
			continue
		}
		for _, v := range kv.values {
			parts = append(parts, k+"="+url.QueryEscape(v))
		}
	}
	return strings.Join(parts, "&")
}

func sortedKeys(p Params) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
