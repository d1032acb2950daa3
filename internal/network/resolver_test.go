package network

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(addr string) LookupFunc {
	return func(context.Context) (string, error) { return addr, nil }
}

func failing(err error) LookupFunc {
	return func(context.Context) (string, error) { return "", err }
}

func logEntries(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var e map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		entries = append(entries, e)
	}
	return entries
}

func TestResolve(t *testing.T) {
	var buf bytes.Buffer
	r := NewResolver(fixed("192.168.1.10"), "", zerolog.New(&buf))

	got := r.Resolve(context.Background())

	assert.True(t, got.Available())
	assert.Equal(t, "192.168.1.10", got.String())
	assert.Zero(t, buf.Len(), "success must not log")
}

func TestResolveFailure(t *testing.T) {
	var buf bytes.Buffer
	cause := &net.DNSError{Err: "no such host", Name: "box", IsNotFound: true}
	r := NewResolver(failing(&ResolutionError{Op: "lookup", Err: cause}), "", zerolog.New(&buf))

	got := r.Resolve(context.Background())

	assert.False(t, got.Available())
	assert.Equal(t, "Unable to fetch IP", got.String())

	entries := logEntries(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "error", entries[0]["level"])
	assert.Equal(t, "Failed to fetch IP address", entries[0]["message"])
	assert.Contains(t, entries[0]["error"], "no such host")
}

func TestResolveWrapsPlainErrors(t *testing.T) {
	var buf bytes.Buffer
	r := NewResolver(failing(errors.New("boom")), "", zerolog.New(&buf))

	got := r.Resolve(context.Background())
	assert.Equal(t, DefaultFallback, got.String())

	entries := logEntries(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "resolve local address: lookup: boom", entries[0]["error"])
}

func TestResolveEmptyAddressIsFailure(t *testing.T) {
	var buf bytes.Buffer
	r := NewResolver(fixed(""), "", zerolog.New(&buf))

	got := r.Resolve(context.Background())

	assert.False(t, got.Available())
	assert.Equal(t, DefaultFallback, got.String())
	assert.Len(t, logEntries(t, &buf), 1)
}

func TestResolveCanceledContext(t *testing.T) {
	var buf bytes.Buffer
	r := NewResolver(func(ctx context.Context) (string, error) {
		return "", &ResolutionError{Op: "lookup", Err: ctx.Err()}
	}, "", zerolog.New(&buf).Level(zerolog.InfoLevel))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := r.Resolve(ctx)

	assert.False(t, got.Available())
	assert.True(t, got.Canceled())
	assert.Equal(t, DefaultFallback, got.String())
	assert.Zero(t, buf.Len(), "a canceled caller is not a resolution failure")
}

func TestResolveCanceledAfterSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := NewResolver(fixed("10.0.0.7"), "", zerolog.Nop()).Resolve(ctx)
	assert.True(t, got.Available())
	assert.False(t, got.Canceled())
}

func TestResolveCustomFallback(t *testing.T) {
	r := NewResolver(failing(ErrNoAddress), "IP unavailable", zerolog.Nop())
	assert.Equal(t, "IP unavailable", r.Resolve(context.Background()).String())
}

func TestResolvedAddressZeroValue(t *testing.T) {
	var a ResolvedAddress
	assert.False(t, a.Available())
	assert.Equal(t, DefaultFallback, a.String())
}

func TestResolveRepeatable(t *testing.T) {
	r := NewResolver(fixed("10.0.0.7"), "", zerolog.Nop())
	first := r.Resolve(context.Background())
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, r.Resolve(context.Background()))
	}
}

func TestResolveConcurrent(t *testing.T) {
	var buf bytes.Buffer
	r := NewResolver(fixed("192.168.1.10"), "", zerolog.New(&buf))

	const n = 64
	results := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Resolve(context.Background()).String()
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, "192.168.1.10", got)
	}
	assert.Zero(t, buf.Len())
}

func TestResolveHostEnvironment(t *testing.T) {
	lookup := HostnameLookup(nil, nil)
	if _, err := lookup(context.Background()); err != nil {
		t.Skipf("host has no resolvable hostname: %v", err)
	}

	got := NewResolver(lookup, "", zerolog.Nop()).Resolve(context.Background())

	require.True(t, got.Available())
	assert.NotNil(t, net.ParseIP(got.String()), "expected an IP, got %q", got.String())
}
