package mocker

import (
	"errors"
	"fmt"

	"github.com/circleci/httpmock/canonurl"
)

var (
	ErrNoMatch       = errors.New("no matching plan")
	ErrAlreadyActive = errors.New("engine already active")
)

// NoMatchError is returned when a request has no registered plan.
type NoMatchError struct {
	Method string
	URI    string
	Params canonurl.Params
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no URLs matching %s %s with params %s: request failed", e.Method, e.URI, e.Params)
}

// Is allows errors.Is(err, ErrNoMatch).
func (e *NoMatchError) Is(target error) bool {
	return target == ErrNoMatch
}
