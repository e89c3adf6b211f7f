package memory

import "github.com/cockroachdb/errors"

var (
	// ErrAllocationFailed is wrapped by every error returned when no strategy could satisfy a request
	ErrAllocationFailed = errors.New("memory allocation failed")
	// ErrUnsupported is returned when a strategy or device cannot serve a request of this kind
	ErrUnsupported = errors.New("memory request not supported")
	// ErrPoolNotFound is returned when a request names a pool that was never created
	ErrPoolNotFound = errors.New("memory pool not found")
	// ErrPoolExhausted is returned when a pool has reached its maximum block count and has no room
	ErrPoolExhausted = errors.New("memory pool exhausted")
	// ErrTooManyStrategies is returned when more than MaxStrategies strategies are registered
	ErrTooManyStrategies = errors.New("too many memory strategies")
)
