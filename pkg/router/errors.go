package router

import "errors"

var (
	ErrReplyTimeout       = errors.New("timed out waiting for reply")
	ErrUnknownDialog      = errors.New("dialog not found in registry")
	ErrSyncTimeoutTooLong = errors.New("sync request timeout must be below the temp queue ttl")
)

// TransportError marks connection, publish and consume failures. These are
// the only failures eligible for the one-shot reconnect-retry; validation
// errors propagate untouched.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return "transport: " + e.Op + ": " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

func transportErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Op: op, Err: err}
}
