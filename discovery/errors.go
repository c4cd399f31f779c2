package discovery

import "errors"

var (
	// ErrLookupFailed indicates the DNS query could not be completed.
	ErrLookupFailed = errors.New("discovery: dns lookup failed")

	// ErrNoGateways indicates the domain publishes no gateway records.
	ErrNoGateways = errors.New("discovery: no gateways published")

	// ErrEmptyDomain indicates an empty service domain.
	ErrEmptyDomain = errors.New("discovery: domain must not be empty")
)
