// Package network finds the host's local network address.
package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

// Lookup strategy names.
const (
	StrategyHostname  = "hostname"
	StrategyRoute     = "route"
	StrategyInterface = "interface"
)

// DefaultRouteTarget is dialed by the route strategy to learn which local
// address the OS would use for outbound traffic. UDP dials send no packets.
const DefaultRouteTarget = "8.8.8.8:80"

// ErrNoAddress is returned when the OS reports no usable local address.
var ErrNoAddress = errors.New("no local address")

// ResolutionError reports that the OS could not determine a local address.
type ResolutionError struct {
	Op  string // hostname, lookup, route or interface
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve local address: %s: %v", e.Op, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// LookupFunc returns the local address as text.
type LookupFunc func(ctx context.Context) (string, error)

// IPResolver is the subset of *net.Resolver used by HostnameLookup.
type IPResolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// HostnameLookup resolves the machine's hostname through the system resolver
// and returns the first address. hostname and resolver default to
// os.Hostname and net.DefaultResolver.
func HostnameLookup(hostname func() (string, error), resolver IPResolver) LookupFunc {
	if hostname == nil {
		hostname = os.Hostname
	}
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return func(ctx context.Context) (string, error) {
		host, err := hostname()
		if err != nil {
			return "", &ResolutionError{Op: "hostname", Err: err}
		}
		addrs, err := resolver.LookupIPAddr(ctx, host)
		if err != nil {
			return "", &ResolutionError{Op: "lookup", Err: err}
		}
		if len(addrs) == 0 {
			return "", &ResolutionError{Op: "lookup", Err: ErrNoAddress}
		}
		return addrs[0].IP.String(), nil
	}
}

// RouteLookup returns the local address the OS picks for a UDP socket
// towards target.
func RouteLookup(target string) LookupFunc {
	if target == "" {
		target = DefaultRouteTarget
	}
	return func(ctx context.Context) (string, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "udp", target)
		if err != nil {
			return "", &ResolutionError{Op: "route", Err: err}
		}
		defer conn.Close()

		udp, ok := conn.LocalAddr().(*net.UDPAddr)
		if !ok || udp.IP.IsUnspecified() {
			return "", &ResolutionError{Op: "route", Err: ErrNoAddress}
		}
		return udp.IP.String(), nil
	}
}

// InterfaceLookup returns the first non-loopback, non-link-local IPv4
// address among the host interfaces. addrs defaults to net.InterfaceAddrs.
func InterfaceLookup(addrs func() ([]net.Addr, error)) LookupFunc {
	if addrs == nil {
		addrs = net.InterfaceAddrs
	}
	return func(ctx context.Context) (string, error) {
		list, err := addrs()
		if err != nil {
			return "", &ResolutionError{Op: "interface", Err: err}
		}
		for _, addr := range list {
			ipnet, ok := addr.(*net.IPNet)
			if !ok || ipnet.IP.IsLoopback() || ipnet.IP.IsLinkLocalUnicast() {
				continue
			}
			if ip4 := ipnet.IP.To4(); ip4 != nil {
				return ip4.String(), nil
			}
		}
		return "", &ResolutionError{Op: "interface", Err: ErrNoAddress}
	}
}

// LookupFor returns the OS-backed lookup for a strategy name.
func LookupFor(strategy string) (LookupFunc, error) {
	switch strategy {
	case StrategyHostname, "":
		return HostnameLookup(nil, nil), nil
	case StrategyRoute:
		return RouteLookup(DefaultRouteTarget), nil
	case StrategyInterface:
		return InterfaceLookup(nil), nil
	}
	return nil, fmt.Errorf("unknown lookup strategy %q", strategy)
}
