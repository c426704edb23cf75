package delivery

import (
	"errors"
	"fmt"
)

// Kind is the closed taxonomy of push delivery failures. Callers switch on
// it instead of raw push-service status codes.
type Kind int

const (
	// KindTransient covers network errors, timeouts and 5xx responses. Not
	// retried within a campaign send; recorded as a failure.
	KindTransient Kind = iota
	// KindEndpointGone means the push service reported 404/410: the
	// subscription is permanently invalid and the subscriber is deactivated.
	KindEndpointGone
	// KindUnauthorized means the VAPID credentials were rejected. Fatal for
	// the whole batch.
	KindUnauthorized
	// KindPayloadTooLarge means the payload exceeds the push-service limit.
	// Rejected before any network I/O.
	KindPayloadTooLarge
)

func (k Kind) String() string {
	switch k {
	case KindEndpointGone:
		return "endpoint_gone"
	case KindUnauthorized:
		return "unauthorized"
	case KindPayloadTooLarge:
		return "payload_too_large"
	default:
		return "transient"
	}
}

type Error struct {
	Kind       Kind
	StatusCode int
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("push delivery failed (%s): %v", e.Kind, e.cause)
	}
	return fmt.Sprintf("push delivery failed (%s): status %d", e.Kind, e.StatusCode)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Fatal reports whether the failure poisons the rest of the batch.
func (e *Error) Fatal() bool {
	return e.Kind == KindUnauthorized
}

// AsError unpacks a delivery error; a nil or foreign error yields ok=false.
func AsError(err error) (*Error, bool) {
	var derr *Error
	ok := errors.As(err, &derr)
	return derr, ok
}

func classifyStatus(code int) Kind {
	switch {
	case code == 404 || code == 410:
		return KindEndpointGone
	case code == 401 || code == 403:
		return KindUnauthorized
	case code == 413:
		return KindPayloadTooLarge
	default:
		return KindTransient
	}
}
