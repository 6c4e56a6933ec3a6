package solver

import "fmt"

// ResponseError wraps a solver response with status "error" (spec.md §4.6,
// §7 SolverError): fatal to the cycle, but distinguishable from a transport
// failure so the caller can log differently.
type ResponseError struct {
	Message string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("solver returned error status: %s", e.Message)
}

// TransportError wraps an HTTP, timeout, or connection failure reaching the
// solver (spec.md §7 SolverTransportFailure).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("solver transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
