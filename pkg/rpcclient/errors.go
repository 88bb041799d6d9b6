package rpcclient

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when the client rejects our RPC credentials.
// Distinguished from generic failures so callers can point the operator at
// their configuration instead of at the network.
var ErrUnauthorized = errors.New("unauthorized: rpc credentials rejected")

// RPCError is an application-level error returned by the blockchain client
// itself. The upstream message is preserved verbatim.
type RPCError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
	}
	return e.Message
}

// ConnectionError indicates the client's transport is unreachable: the
// process is down, the port is closed, or the tunnel collapsed. Consumers
// treat this as "node offline" rather than as a call failure.
type ConnectionError struct {
	Endpoint string
	Err      error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.Endpoint, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsConnectionError reports whether err wraps a ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}
