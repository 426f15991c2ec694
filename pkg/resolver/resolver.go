// Package resolver turns a logical host and port into the ordered list of
// concrete endpoints a connection can be attempted against. The connect
// engine consumes the Resolver interface as a black box; the order of the
// returned endpoints is the resolver's preference order and is tried as
// given.
package resolver

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

// Endpoint is one resolved candidate address for a logical host:port pair.
type Endpoint struct {
	Family   int           // address family (unix.AF_INET, unix.AF_INET6)
	SockType int           // socket type (unix.SOCK_STREAM)
	Protocol int           // transport protocol (unix.IPPROTO_TCP)
	Addr     unix.Sockaddr // connect target
}

// String renders the endpoint address for diagnostics.
func (e Endpoint) String() string {
	switch sa := e.Addr.(type) {
	case *unix.SockaddrInet4:
		return net.JoinHostPort(net.IP(sa.Addr[:]).String(), strconv.Itoa(sa.Port))
	case *unix.SockaddrInet6:
		return net.JoinHostPort(net.IP(sa.Addr[:]).String(), strconv.Itoa(sa.Port))
	default:
		return fmt.Sprintf("%v", e.Addr)
	}
}

// Resolver produces candidate endpoints for a logical address.
type Resolver interface {
	// Resolve returns the candidates for host:port in preference order,
	// or an error when resolution fails outright.
	Resolve(host string, port uint16) ([]Endpoint, error)
}

// NetResolver resolves through the system resolver (hosts file, nsswitch,
// DNS), preserving the address ordering it returns.
type NetResolver struct {
	// Lookup overrides the resolver used; nil means net.DefaultResolver.
	Lookup *net.Resolver
}

func (r NetResolver) Resolve(host string, port uint16) ([]Endpoint, error) {
	res := r.Lookup
	if res == nil {
		res = net.DefaultResolver
	}

	addrs, err := res.LookupIPAddr(context.Background(), host)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no addresses found for %s", host)
	}

	endpoints := make([]Endpoint, 0, len(addrs))
	for _, addr := range addrs {
		if ip4 := addr.IP.To4(); ip4 != nil {
			sa := &unix.SockaddrInet4{Port: int(port)}
			copy(sa.Addr[:], ip4)
			endpoints = append(endpoints, Endpoint{
				Family:   unix.AF_INET,
				SockType: unix.SOCK_STREAM,
				Protocol: unix.IPPROTO_TCP,
				Addr:     sa,
			})
			continue
		}

		sa := &unix.SockaddrInet6{Port: int(port)}
		copy(sa.Addr[:], addr.IP.To16())
		endpoints = append(endpoints, Endpoint{
			Family:   unix.AF_INET6,
			SockType: unix.SOCK_STREAM,
			Protocol: unix.IPPROTO_TCP,
			Addr:     sa,
		})
	}
	return endpoints, nil
}

// StaticResolver serves a fixed candidate list regardless of the queried
// address. Used by tests and literal-only deployments.
type StaticResolver struct {
	Endpoints []Endpoint
	Err       error
}

func (r StaticResolver) Resolve(string, uint16) ([]Endpoint, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Endpoints, nil
}
