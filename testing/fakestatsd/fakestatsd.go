// Package fakestatsd is a UDP listener that decodes the statsd lines sent to it, for testing
// code that sends metrics through a real statsd client.
package fakestatsd

import (
	"bytes"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"

	"gotest.tools/v3/assert"
)

type Metric struct {
	Name string
	// Value is the raw value and type, e.g. "1|c".
	Value string
	Tags  []string
}

type Server struct {
	conn *net.UDPConn

	mu      sync.RWMutex
	metrics []Metric
}

// New starts a server on a random local port. It is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	addr, err := net.ResolveUDPAddr("udp", "localhost:0")
	assert.Assert(t, err)

	conn, err := net.ListenUDP("udp", addr)
	assert.Assert(t, err)

	s := &Server{conn: conn}
	go s.listen()
	t.Cleanup(func() {
		_ = s.conn.Close()
	})
	return s
}

func (s *Server) Addr() string {
	return s.conn.LocalAddr().String()
}

func (s *Server) Metrics() []Metric {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metrics := make([]Metric, len(s.metrics))
	copy(metrics, s.metrics)
	return metrics
}

// Named returns the metrics received with the given fully qualified name.
func (s *Server) Named(name string) []Metric {
	var metrics []Metric
	for _, m := range s.Metrics() {
		if m.Name == name {
			metrics = append(metrics, m)
		}
	}
	return metrics
}

func (s *Server) listen() {
	buf := make([]byte, 64*1024)
	for {
		n, err := s.conn.Read(buf)
		if errors.Is(err, net.ErrClosed) {
			return
		}
		for _, line := range bytes.Split(buf[:n], []byte("\n")) {
			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}
			s.record(parse(string(line)))
		}
	}
}

func (s *Server) record(m Metric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, m)
}

// parse decodes name:value|type[|@rate][|#tag,tag].
func parse(line string) Metric {
	name, rest, _ := strings.Cut(line, ":")
	m := Metric{Name: name}

	var values []string
	for _, part := range strings.Split(rest, "|") {
		if tags, ok := strings.CutPrefix(part, "#"); ok {
			m.Tags = strings.Split(tags, ",")
			continue
		}
		if part != "" {
			values = append(values, part)
		}
	}
	m.Value = strings.Join(values, "|")
	return m
}
