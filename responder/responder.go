// Package responder materializes registry descriptors into HTTP responses, either as an
// *http.Response for a client transport or written to an http.ResponseWriter.
package responder

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/circleci/httpmock/body"
	"github.com/circleci/httpmock/registry"
)

// DefaultBody is sent when a descriptor has no body.
const DefaultBody = "httpmock"

// Response builds the response a transport returns for req.
func Response(d registry.Descriptor, req *http.Request) (*http.Response, error) {
	b, length, err := content(d)
	if err != nil {
		return nil, err
	}

	res := &http.Response{
		Status:        status(d),
		StatusCode:    d.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header(d, length),
		Body:          io.NopCloser(b),
		ContentLength: -1,
		Request:       req,
	}
	if d.AutoLength {
		res.ContentLength = length
	}
	if req != nil && req.Method == http.MethodHead {
		res.Body = http.NoBody
	}
	return res, nil
}

// Write sends the descriptor as the response to a server request.
func Write(w http.ResponseWriter, d registry.Descriptor) error {
	b, length, err := content(d)
	if err != nil {
		return err
	}
	for k, v := range header(d, length) {
		w.Header()[k] = v
	}
	w.WriteHeader(d.Status)
	_, err = io.Copy(w, b)
	return err
}

// content returns the body reader and, for AutoLength, its length. Streams are buffered
// so Content-Length can be computed.
func content(d registry.Descriptor) (io.Reader, int64, error) {
	v := d.Body
	if v == nil {
		v = DefaultBody
	}
	if !d.AutoLength {
		r, err := body.Reader(v)
		return r, -1, err
	}
	b, err := body.Bytes(v)
	if err != nil {
		return nil, 0, err
	}
	return bytes.NewReader(b), int64(len(b)), nil
}

func header(d registry.Descriptor, length int64) http.Header {
	h := d.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	if d.AutoLength {
		h.Set("Content-Length", strconv.FormatInt(length, 10))
	}
	return h
}

func status(d registry.Descriptor) string {
	reason := d.Reason
	if reason == "" {
		reason = http.StatusText(d.Status)
	}
	return fmt.Sprintf("%d %s", d.Status, reason)
}
