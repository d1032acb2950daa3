package network

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// DefaultFallback is reported instead of an address when lookup fails.
const DefaultFallback = "Unable to fetch IP"

// FailureMessage is the log message written when lookup fails.
const FailureMessage = "Failed to fetch IP address"

// ResolvedAddress is the outcome of a single Resolve call: either the local
// address or the fallback text. Its String form is never empty.
type ResolvedAddress struct {
	addr     string
	fallback string
	canceled bool
}

// String returns the address, or the fallback text if none was found.
func (a ResolvedAddress) String() string {
	if a.addr != "" {
		return a.addr
	}
	if a.fallback != "" {
		return a.fallback
	}
	return DefaultFallback
}

// Available reports whether an address was found.
func (a ResolvedAddress) Available() bool {
	return a.addr != ""
}

// Canceled reports whether the lookup was abandoned because the caller's
// context ended, rather than failing on its own.
func (a ResolvedAddress) Canceled() bool {
	return a.canceled
}

// Resolver determines the host's local network address on every call.
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	lookup   LookupFunc
	fallback string
	log      zerolog.Logger
}

// NewResolver returns a Resolver backed by lookup. An empty fallback selects
// DefaultFallback.
func NewResolver(lookup LookupFunc, fallback string, log zerolog.Logger) *Resolver {
	if fallback == "" {
		fallback = DefaultFallback
	}
	return &Resolver{lookup: lookup, fallback: fallback, log: log}
}

// Resolve looks up the local address. Lookup failures are logged once at
// error level and turned into the fallback; they are never returned.
// A lookup cut short by ctx also yields the fallback but is logged at debug
// level only.
func (r *Resolver) Resolve(ctx context.Context) ResolvedAddress {
	addr, err := r.lookup(ctx)
	if err != nil && ctx.Err() != nil {
		r.log.Debug().Err(err).Msg("Address lookup canceled")
		return ResolvedAddress{fallback: r.fallback, canceled: true}
	}
	if err == nil && addr == "" {
		err = &ResolutionError{Op: "lookup", Err: ErrNoAddress}
	}
	if err != nil {
		var rerr *ResolutionError
		if !errors.As(err, &rerr) {
			err = &ResolutionError{Op: "lookup", Err: err}
		}
		r.log.Error().Err(err).Msg(FailureMessage)
		return ResolvedAddress{fallback: r.fallback}
	}
	return ResolvedAddress{addr: addr}
}
