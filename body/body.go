// Package body validates canned response bodies and drains outgoing request payloads.
//
// A body is text, bytes or a stream. Streams are anything implementing io.Reader.
package body

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
)

var ErrInvalidBody = errors.New("invalid body")

// InvalidBodyError identifies the offending body value.
type InvalidBodyError struct {
	Value any
}

func (e *InvalidBodyError) Error() string {
	return fmt.Sprintf("invalid body: %T (%v): must be a string, []byte or io.Reader", e.Value, e.Value)
}

func (e *InvalidBodyError) Is(target error) bool {
	return target == ErrInvalidBody
}

// Validate returns an InvalidBodyError unless v is nil, a string, a []byte or an io.Reader.
func Validate(v any) error {
	switch b := v.(type) {
	case nil, string, []byte:
		return nil
	case io.Reader:
		if isNil(b) {
			break
		}
		return nil
	}
	return &InvalidBodyError{Value: v}
}

// IsStream reports whether v is read incrementally rather than held in memory.
func IsStream(v any) bool {
	switch v.(type) {
	case string, []byte:
		return false
	}
	_, ok := v.(io.Reader)
	return ok
}

// Reader returns a reader over a valid body. Streams are returned as is, so they can only be
// consumed once.
func Reader(v any) (io.Reader, error) {
	switch b := v.(type) {
	case nil:
		return bytes.NewReader(nil), nil
	case string:
		return strings.NewReader(b), nil
	case []byte:
		return bytes.NewReader(b), nil
	case io.Reader:
		return b, nil
	}
	return nil, &InvalidBodyError{Value: v}
}

// Bytes renders a valid body in full. Streams are read to the end.
func Bytes(v any) ([]byte, error) {
	switch b := v.(type) {
	case string:
		return []byte(b), nil
	case []byte:
		return b, nil
	}
	r, err := Reader(v)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

const drainChunk = 32 * 1024

// Drain reads r until end of data and returns what was read. The context is checked between
// reads; a cancelled drain returns the context error and leaves r partially consumed.
// A nil reader, including a nil pointer held in the interface, has nothing to drain.
func Drain(ctx context.Context, r io.Reader) ([]byte, error) {
	if r == nil || isNil(r) {
		return nil, nil
	}
	out := &bytes.Buffer{}
	buf := make([]byte, drainChunk)
	for {
		if err := ctx.Err(); err != nil {
			return out.Bytes(), err
		}
		n, err := r.Read(buf)
		out.Write(buf[:n])
		if errors.Is(err, io.EOF) {
			return out.Bytes(), nil
		}
		if err != nil {
			return out.Bytes(), fmt.Errorf("drain: %w", err)
		}
	}
}

// isNil catches a nil pointer (or map, slice, func, chan) stored in a non-nil reader interface.
func isNil(r io.Reader) bool {
	v := reflect.ValueOf(r)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}
