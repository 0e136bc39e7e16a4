// Package httpsse binds internal/rpc.Service onto Transport B: JSON over
// HTTP for unary calls, text/event-stream for the streaming ones, routed
// with gorilla/mux the way the teacher's internal/ws routes websocket paths.
package httpsse

import (
	"net/http"

	"github.com/stepherg/catenago/internal/status"
)

// httpStatusFor implements the bit-exact status-code table named in the
// specification's external-interfaces section.
func httpStatusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var ews *status.ExceptionWithStatus
	if !status.As(err, &ews) {
		return http.StatusInternalServerError
	}
	switch ews.Status {
	case status.PERMISSION_DENIED:
		return http.StatusForbidden
	case status.UNAUTHENTICATED:
		return http.StatusUnauthorized
	case status.NOT_FOUND:
		return http.StatusNotFound
	case status.RESOURCE_EXHAUSTED:
		return http.StatusTooManyRequests
	case status.FAILED_PRECONDITION:
		return http.StatusPreconditionFailed
	case status.INVALID_ARGUMENT:
		return http.StatusBadRequest
	case status.CANCELLED:
		return 499 // client closed request, nginx convention; no stdlib constant
	case status.INTERNAL, status.UNKNOWN:
		return http.StatusInternalServerError
	default:
		return ews.Status.ToHTTP()
	}
}
