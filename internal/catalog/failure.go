package catalog

import (
	"errors"
	"fmt"
)

// FailureKind classifies catalog request failures.
type FailureKind int

const (
	BadKey FailureKind = iota + 1
	BadURL
	BadResponse
	ServerError
	TransportError
	DecodeError
)

func (k FailureKind) String() string {
	switch k {
	case BadKey:
		return "bad_key"
	case BadURL:
		return "bad_url"
	case BadResponse:
		return "bad_response"
	case ServerError:
		return "server_error"
	case TransportError:
		return "transport_error"
	case DecodeError:
		return "decode_error"
	default:
		return "unknown"
	}
}

// NetworkFailure is returned by every Client operation that fails.
type NetworkFailure struct {
	Kind   FailureKind
	Op     string
	Status int
	Err    error
}

func (e *NetworkFailure) Error() string {
	msg := fmt.Sprintf("catalog: %s: %s", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NetworkFailure) Unwrap() error {
	return e.Err
}

// IsKind reports whether err carries a NetworkFailure of the given kind.
func IsKind(err error, kind FailureKind) bool {
	var nf *NetworkFailure
	return errors.As(err, &nf) && nf.Kind == kind
}

// StatusOf returns the upstream HTTP status carried by err, or zero.
func StatusOf(err error) int {
	var nf *NetworkFailure
	if errors.As(err, &nf) {
		return nf.Status
	}
	return 0
}
