package ledger

import (
	"net/http"

	gocmp "github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// IgnoreHeaders skips the named headers when comparing with the Header criterion.
func IgnoreHeaders(headers ...string) gocmp.Option {
	return cmpopts.IgnoreMapEntries(func(h string, _ []string) bool {
		return contains(headers, h)
	})
}

// OnlyHeaders compares just the named headers.
func OnlyHeaders(headers ...string) gocmp.Option {
	return cmpopts.IgnoreMapEntries(func(h string, _ []string) bool {
		return !contains(headers, h)
	})
}

func contains(headers []string, h string) bool {
	h = http.CanonicalHeaderKey(h)
	for _, header := range headers {
		if http.CanonicalHeaderKey(header) == h {
			return true
		}
	}
	return false
}
