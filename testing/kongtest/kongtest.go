// Package kongtest runs kong command lines in tests.
package kongtest

import (
	"bytes"
	"testing"

	"github.com/alecthomas/kong"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

// Help renders the help output for cli.
func Help(t *testing.T, cli any) string {
	t.Helper()
	w := bytes.NewBuffer(nil)
	rc := -1
	app, err := kong.New(cli,
		kong.Name("test-app"),
		kong.Writers(w, w),
		kong.Exit(func(i int) {
			rc = i
		}),
	)
	assert.Assert(t, err)

	_, err = app.Parse([]string{"--help"})
	assert.Check(t, err)
	assert.Check(t, cmp.Equal(0, rc))

	return w.String()
}

// Parse parses args into cli, returning the parse error if any.
func Parse(t *testing.T, cli any, args ...string) error {
	t.Helper()
	w := bytes.NewBuffer(nil)
	app, err := kong.New(cli,
		kong.Name("test-app"),
		kong.Writers(w, w),
		kong.Exit(func(int) {}),
	)
	assert.Assert(t, err)

	_, err = app.Parse(args)
	return err
}
