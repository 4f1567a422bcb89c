// Package addr turns textual and structured socket addresses into model
// endpoints.
package addr

import (
	"net"
	"net/netip"
	"strconv"
	"strings"

	"github.com/pranshuparmar/remotepid/pkg/model"
)

// Parse parses a numeric "host:port" endpoint. IPv6 hosts may be bracketed
// ("[::1]:80") or bare ("::ffff:127.0.0.1:80"), in which case the port is
// everything after the last colon.
func Parse(s string) (model.Endpoint, error) {
	if s == "" {
		return model.Endpoint{}, model.Errorf(model.KindInvalidInput, "empty endpoint")
	}
	if strings.TrimSpace(s) != s {
		return model.Endpoint{}, model.Errorf(model.KindInvalidInput, "endpoint %q has surrounding whitespace", s)
	}

	host, port, err := splitHostPort(s)
	if err != nil {
		return model.Endpoint{}, err
	}

	ip, err := netip.ParseAddr(host)
	if err != nil {
		return model.Endpoint{}, model.Wrap(model.KindInvalidInput, err, "endpoint %q: host must be a numeric address", s)
	}
	if strings.HasPrefix(s, "[") && ip.Is4() {
		return model.Endpoint{}, model.Errorf(model.KindInvalidInput, "endpoint %q: only IPv6 hosts may be bracketed", s)
	}

	p, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return model.Endpoint{}, model.Errorf(model.KindInvalidInput, "endpoint %q: port %s out of range", s, port)
		}
		return model.Endpoint{}, model.Errorf(model.KindInvalidInput, "endpoint %q: invalid port %q", s, port)
	}

	return model.NewEndpoint(ip, uint16(p)), nil
}

func splitHostPort(s string) (string, string, error) {
	if strings.HasPrefix(s, "[") || strings.Count(s, ":") == 1 {
		host, port, err := net.SplitHostPort(s)
		if err != nil {
			return "", "", model.Wrap(model.KindInvalidInput, err, "endpoint %q", s)
		}
		return host, port, nil
	}

	idx := strings.LastIndex(s, ":")
	if idx <= 0 || idx == len(s)-1 {
		return "", "", model.Errorf(model.KindInvalidInput, "endpoint %q is not in host:port form", s)
	}
	return s[:idx], s[idx+1:], nil
}

func FromAddrPort(ap netip.AddrPort) (model.Endpoint, error) {
	if !ap.IsValid() {
		return model.Endpoint{}, model.Errorf(model.KindInvalidInput, "invalid address %v", ap)
	}
	return model.EndpointFromAddrPort(ap), nil
}

// FromNetAddr accepts *net.TCPAddr and anything else whose String form is a
// numeric host:port.
func FromNetAddr(a net.Addr) (model.Endpoint, error) {
	switch v := a.(type) {
	case nil:
		return model.Endpoint{}, model.Errorf(model.KindNotConnected, "no address")
	case *net.TCPAddr:
		if v == nil {
			return model.Endpoint{}, model.Errorf(model.KindNotConnected, "no address")
		}
		return FromAddrPort(v.AddrPort())
	}
	return Parse(a.String())
}
