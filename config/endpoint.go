package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Endpoint is one host/port pair of the backing store.
type Endpoint struct {
	Host string
	Port int
}

func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) String() string { return e.Addr() }

// ParseEndpoint splits a "host:port" node string. IPv6 hosts must be
// bracketed ("[::1]:26379").
func ParseEndpoint(node string) (Endpoint, error) {
	host, port, err := net.SplitHostPort(strings.TrimSpace(node))
	if err != nil {
		return Endpoint{}, &Error{Field: "node", Value: node, Reason: "expected host:port", Err: err}
	}
	if host == "" {
		return Endpoint{}, &Error{Field: "node", Value: node, Reason: "empty host"}
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return Endpoint{}, &Error{Field: "node", Value: node, Reason: "port is not numeric", Err: err}
	}
	if p <= 0 || p > 65535 {
		return Endpoint{}, &Error{Field: "node", Value: node, Reason: fmt.Sprintf("port %d out of range", p)}
	}
	return Endpoint{Host: host, Port: p}, nil
}

// ParseEndpoints parses every node, reporting the first bad one with its
// position under field.
func ParseEndpoints(field string, nodes []string) ([]Endpoint, error) {
	out := make([]Endpoint, 0, len(nodes))
	for i, n := range nodes {
		ep, err := ParseEndpoint(n)
		if err != nil {
			ce := err.(*Error)
			ce.Field = fmt.Sprintf("%s[%d]", field, i)
			return nil, ce
		}
		out = append(out, ep)
	}
	return out, nil
}
