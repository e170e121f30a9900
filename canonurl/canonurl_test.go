package canonurl

import (
	"net/url"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func TestMake_KeyOrderIndependent(t *testing.T) {
	a := MustMake("http://example.com/?alpha=1&beta=", nil)
	b := MustMake("http://example.com/?beta=&alpha=1", nil)
	assert.Check(t, a.Equal(b))
	assert.Check(t, cmp.Equal(a.Key(), b.Key()))
	assert.Check(t, cmp.Equal(a.Key(), "http://example.com/?alpha=1&beta="))
}

func TestMake_ValueOrderMatters(t *testing.T) {
	a := MustMake("http://example.com/?a=1&a=2", nil)
	b := MustMake("http://example.com/?a=2&a=1", nil)
	assert.Check(t, !a.Equal(b))
}

func TestMake_ExplicitParamsReplaceQuery(t *testing.T) {
	explicit := MustMake("http://example.com/?leftover=1", Single(map[string]string{
		"meow": "quack",
		"woof": "beans",
	}))
	fromQuery := MustMake("http://example.com/?woof=beans&meow=quack", nil)
	assert.Check(t, explicit.Equal(fromQuery))
	assert.Check(t, cmp.DeepEqual(explicit.Params(), Params{
		"meow": {"quack"},
		"woof": {"beans"},
	}))
}

func TestMake_EmptyParamsUseQuery(t *testing.T) {
	u := MustMake("http://example.com/?test=test", Params{})
	assert.Check(t, cmp.DeepEqual(u.Params(), Params{"test": {"test"}}))
}

func TestMake_Different(t *testing.T) {
	registered := MustMake("http://example.com/", Single(map[string]string{"alpha": "1", "beta": ""}))

	for _, uri := range []string{
		"http://example.com/",
		"http://example.com/?alpha=2&beta=",
		"http://example.com/?alpha=1",
		"http://example.com/?beta=",
		"http://example.com/?alpha=1&beta=1",
		"http://example.com/?alpha=&beta=",
		"http://otherexample.com/?alpha=1&beta=",
		"https://example.com/?alpha=1&beta=",
		"http://example.com/other?alpha=1&beta=",
	} {
		uri := uri
		t.Run(uri, func(t *testing.T) {
			assert.Check(t, !MustMake(uri, nil).Equal(registered))
		})
	}
}

func TestMake_Normalizes(t *testing.T) {
	a := MustMake("HTTP://Example.COM", nil)
	b := MustMake("http://example.com/", nil)
	assert.Check(t, a.Equal(b))
	assert.Check(t, cmp.Equal(a.Host, "example.com"))
	assert.Check(t, cmp.Equal(a.Path, "/"))
}

func TestMake_Invalid(t *testing.T) {
	_, err := Make("http://example.com/%zz", nil)
	assert.Check(t, cmp.ErrorIs(err, ErrInvalidURL))

	_, err = Make("http://example.com/?a=%zz", nil)
	assert.Check(t, cmp.ErrorIs(err, ErrInvalidURL))
}

func TestURL_WithoutParams(t *testing.T) {
	u := MustMake("http://example.com/path?alpha=1", nil)
	stripped := u.WithoutParams()

	assert.Check(t, stripped.Equal(MustMake("http://example.com/path", nil)))
	assert.Check(t, cmp.Nil(stripped.Params()))
	assert.Check(t, cmp.DeepEqual(u.Params(), Params{"alpha": {"1"}}), "original must be untouched")
}

func TestURL_WithParams(t *testing.T) {
	u := MustMake("http://example.com/path?alpha=1", nil)
	replaced := u.WithParams(Params{"beta": {"2"}})

	assert.Check(t, replaced.Equal(MustMake("http://example.com/path?beta=2", nil)))
	assert.Check(t, u.Equal(MustMake("http://example.com/path?alpha=1", nil)))
}

func TestURL_ParamsIsACopy(t *testing.T) {
	u := MustMake("http://example.com/?a=1", nil)
	p := u.Params()
	p["a"][0] = "changed"
	assert.Check(t, cmp.DeepEqual(u.Params(), Params{"a": {"1"}}))
}

func TestURL_StdURL(t *testing.T) {
	u := MustMake("https://example.com/a%20b?z=1&a=x+y", nil)
	std := u.StdURL()
	assert.Check(t, cmp.Equal(std.Scheme, "https"))
	assert.Check(t, cmp.Equal(std.Host, "example.com"))
	assert.Check(t, cmp.Equal(std.Path, "/a b"))
	assert.Check(t, cmp.DeepEqual(std.Query(), url.Values{"a": {"x y"}, "z": {"1"}}))
	assert.Check(t, cmp.Equal(std.String(), "https://example.com/a%20b?a=x+y&z=1"))
}

func TestParams_String(t *testing.T) {
	p := Params{"test": {"test"}, "alpha": {"1", ""}}
	assert.Check(t, cmp.Equal(p.String(), `{alpha: ["1", ""], test: ["test"]}`))
	assert.Check(t, cmp.Equal(Params(nil).String(), "{}"))
}

func TestFromValues(t *testing.T) {
	v := url.Values{"a": {"1"}}
	p := FromValues(v)
	v["a"][0] = "2"
	assert.Check(t, cmp.DeepEqual(p, Params{"a": {"1"}}))
}
