// Package status defines the closed status-code enumeration shared by every
// RPC handler and transport binding, plus the error type used to carry a
// status and message across a call boundary.
package status

import (
	"errors"
	"fmt"
)

// Code mirrors the gRPC status taxonomy. Values are stable and may only be
// extended by appending.
type Code int

const (
	OK                  Code = 0
	CANCELLED           Code = 1
	UNKNOWN             Code = 2
	INVALID_ARGUMENT    Code = 3
	DEADLINE_EXCEEDED   Code = 4
	NOT_FOUND           Code = 5
	ALREADY_EXISTS      Code = 6
	PERMISSION_DENIED   Code = 7
	UNAUTHENTICATED     Code = 16
	RESOURCE_EXHAUSTED  Code = 8
	FAILED_PRECONDITION Code = 9
	ABORTED             Code = 10
	OUT_OF_RANGE        Code = 11
	UNIMPLEMENTED       Code = 12
	INTERNAL            Code = 13
	UNAVAILABLE         Code = 14
	DATA_LOSS           Code = 15
)

var names = map[Code]string{
	OK:                  "OK",
	CANCELLED:           "CANCELLED",
	UNKNOWN:             "UNKNOWN",
	INVALID_ARGUMENT:    "INVALID_ARGUMENT",
	DEADLINE_EXCEEDED:   "DEADLINE_EXCEEDED",
	NOT_FOUND:           "NOT_FOUND",
	ALREADY_EXISTS:      "ALREADY_EXISTS",
	PERMISSION_DENIED:   "PERMISSION_DENIED",
	UNAUTHENTICATED:     "UNAUTHENTICATED",
	RESOURCE_EXHAUSTED:  "RESOURCE_EXHAUSTED",
	FAILED_PRECONDITION: "FAILED_PRECONDITION",
	ABORTED:             "ABORTED",
	OUT_OF_RANGE:        "OUT_OF_RANGE",
	UNIMPLEMENTED:       "UNIMPLEMENTED",
	INTERNAL:            "INTERNAL",
	UNAVAILABLE:         "UNAVAILABLE",
	DATA_LOSS:           "DATA_LOSS",
}

func (c Code) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return fmt.Sprintf("CODE(%d)", int(c))
}

// ExceptionWithStatus is the error type handler bodies raise for expected
// failures. The RPC handler template (internal/rpc) converts it straight
// into a terminal status; anything else gets mapped to UNKNOWN.
type ExceptionWithStatus struct {
	Msg    string
	Status Code
}

func New(msg string, code Code) *ExceptionWithStatus {
	return &ExceptionWithStatus{Msg: msg, Status: code}
}

func (e *ExceptionWithStatus) Error() string {
	return e.Msg
}

// As reports whether err (or something it wraps) is an *ExceptionWithStatus,
// writing it into target on success. Mirrors errors.As without requiring
// callers to import errors for this one case.
func As(err error, target **ExceptionWithStatus) bool {
	return errors.As(err, target)
}
