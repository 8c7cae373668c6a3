package noderpc

import "errors"

// Sentinel errors for RPC session operations.
// Use errors.Is() to check for these in calling code.
var (
	// ErrTimeout is returned by ReadOne when no message arrives within
	// the deadline. The session remains usable.
	ErrTimeout = errors.New("noderpc: read timed out")

	// ErrClosed is returned when the session's connection is gone,
	// either closed locally or torn down by a read failure.
	ErrClosed = errors.New("noderpc: session closed")

	// ErrDialFailed is returned when the WebSocket connection cannot
	// be established.
	ErrDialFailed = errors.New("noderpc: dial failed")
)
