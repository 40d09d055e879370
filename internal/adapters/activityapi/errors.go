package activityapi

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed activity API call.
type ErrorKind string

const (
	KindNone      ErrorKind = ""
	KindNetwork   ErrorKind = "network"
	KindServer    ErrorKind = "server"
	KindMalformed ErrorKind = "malformed"
)

// NetworkError means no usable HTTP response arrived: the transport failed,
// the context ended, or the body could not be read.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("activity api %s: network failure: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response carrying a JSON payload.
// Detail is the payload's "detail" field and may be empty.
type ServerError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *ServerError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("activity api %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("activity api %s: status %d: %s", e.Op, e.StatusCode, e.Detail)
}

// MalformedResponseError means a response arrived but its body was not the
// expected JSON. StatusCode is kept so callers can tell whether the backend
// accepted a mutation.
type MalformedResponseError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("activity api %s: malformed response (status %d): %v", e.Op, e.StatusCode, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Accepted reports whether the backend answered with a 2xx status.
func (e *MalformedResponseError) Accepted() bool {
	return e.StatusCode >= 200 && e.StatusCode < 300
}

// Kind classifies err. It returns KindNone for nil and KindNetwork for
// errors this package did not produce.
func Kind(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var se *ServerError
	if errors.As(err, &se) {
		return KindServer
	}
	var me *MalformedResponseError
	if errors.As(err, &me) {
		return KindMalformed
	}
	return KindNetwork
}
