package llm

import "fmt"

// MalformedResponseError is returned when a backend response cannot be parsed
// as a JSON line-item list even after repair. Raw carries the original payload
// for manual inspection.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed backend response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// BackendError is returned when the backend itself fails (network, auth,
// timeout). These failures are retryable by the caller.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
