// Package dverr defines the error categories shared by the dev server
// components. Handlers wrap these with context using fmt.Errorf and %w and
// the gateway maps them to HTTP statuses.
package dverr

import "errors"

var (
	// ErrInvalidArgument means a required input was missing or empty.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound means status was queried for a key that is neither
	// tracked nor staged.
	ErrNotFound = errors.New("not found")
	// ErrConflict means an operation overlapped with one already in flight.
	ErrConflict = errors.New("conflict")
	// ErrUpstreamFailure means the blob store fetch failed. The wrapped
	// message carries the upstream detail.
	ErrUpstreamFailure = errors.New("upstream failure")
	// ErrProtocol means an update ping payload could not be decoded.
	ErrProtocol = errors.New("protocol error")
)
