package ledger

import (
	"bytes"
	"net/http"
	"strings"

	gocmp "github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/circleci/httpmock/canonurl"
)

type query struct {
	url          canonurl.URL
	ignoreParams bool
	params       canonurl.Params

	method    *string
	header    *http.Header
	headerOpt []gocmp.Option
	body      *[]byte
}

// Criterion constrains one field of a call in HasCall and Find.
type Criterion func(q *query)

// Method requires the call was made with method m.
func Method(m string) Criterion {
	m = strings.ToUpper(m)
	return func(q *query) {
		q.method = &m
	}
}

// IgnoreParams drops query parameters from both the recorded and the queried URL before
// comparing them.
func IgnoreParams() Criterion {
	return func(q *query) {
		q.ignoreParams = true
	}
}

// Params replaces the query parameters of the queried URL with p.
func Params(p canonurl.Params) Criterion {
	return func(q *query) {
		q.params = p
	}
}

// Header requires the recorded headers equal h under opts, for example IgnoreHeaders.
// Nil and empty headers are equal.
func Header(h http.Header, opts ...gocmp.Option) Criterion {
	return func(q *query) {
		q.header = &h
		q.headerOpt = append([]gocmp.Option{cmpopts.EquateEmpty()}, opts...)
	}
}

// Body requires the recorded payload equals b.
func Body(b []byte) Criterion {
	return func(q *query) {
		q.body = &b
	}
}

func newQuery(u canonurl.URL, criteria []Criterion) *query {
	q := &query{url: u}
	for _, c := range criteria {
		c(q)
	}
	if len(q.params) > 0 {
		q.url = q.url.WithParams(q.params)
	}
	if q.ignoreParams {
		q.url = q.url.WithoutParams()
	}
	return q
}

func (q *query) matches(c Call) bool {
	u := c.URL
	if q.ignoreParams {
		u = u.WithoutParams()
	}
	if !u.Equal(q.url) {
		return false
	}
	if q.method != nil && *q.method != c.Method {
		return false
	}
	if q.header != nil && !gocmp.Equal(*q.header, c.Header, q.headerOpt...) {
		return false
	}
	if q.body != nil && !bytes.Equal(*q.body, c.Body) {
		return false
	}
	return true
}
