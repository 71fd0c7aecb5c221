package domain

import "errors"

var (
	// ErrValidationFailed marks a candidate proxy that could not relay the probes.
	ErrValidationFailed = errors.New("proxy validation failed")

	// ErrPoolEmpty is returned by the pool when no endpoint is available.
	ErrPoolEmpty = errors.New("proxy pool is empty")

	// ErrNoProxyAvailable means the pool collapsed to its last survivor and
	// that one failed too.
	ErrNoProxyAvailable = errors.New("no working proxy available")

	// ErrFetchFailed covers upstream error responses and render/parse failures.
	ErrFetchFailed = errors.New("departures fetch failed")

	// ErrTransport marks network-level failures (connect, timeout, proxy
	// refusal). The fetcher retries these with another proxy.
	ErrTransport = errors.New("transport error")
)
