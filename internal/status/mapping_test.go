package status

import (
	"testing"

	"google.golang.org/grpc/codes"
)

func TestToGRPCExact(t *testing.T) {
	cases := map[Code]codes.Code{
		OK:                  codes.OK,
		CANCELLED:           codes.Canceled,
		UNKNOWN:             codes.Unknown,
		INVALID_ARGUMENT:    codes.InvalidArgument,
		NOT_FOUND:           codes.NotFound,
		ALREADY_EXISTS:      codes.AlreadyExists,
		PERMISSION_DENIED:   codes.PermissionDenied,
		UNAUTHENTICATED:     codes.Unauthenticated,
		RESOURCE_EXHAUSTED:  codes.ResourceExhausted,
		FAILED_PRECONDITION: codes.FailedPrecondition,
		INTERNAL:            codes.Internal,
	}
	for in, want := range cases {
		if got := in.ToGRPC(); got != want {
			t.Errorf("%v.ToGRPC() = %v, want %v", in, got, want)
		}
	}
}

func TestToHTTPTable(t *testing.T) {
	cases := map[Code]int{
		PERMISSION_DENIED:   403,
		UNAUTHENTICATED:     401,
		NOT_FOUND:           404,
		RESOURCE_EXHAUSTED:  429,
		FAILED_PRECONDITION: 412,
		INVALID_ARGUMENT:    400,
		INTERNAL:            500,
		CANCELLED:           499,
		OK:                  200,
	}
	for in, want := range cases {
		if got := in.ToHTTP(); got != want {
			t.Errorf("%v.ToHTTP() = %d, want %d", in, got, want)
		}
	}
}

// every code must map to a valid HTTP status. The table is not one-to-one:
// ALREADY_EXISTS and ABORTED share 409, INVALID_ARGUMENT and OUT_OF_RANGE
// share 400, and UNKNOWN, INTERNAL and DATA_LOSS share 500.
func TestToHTTPCoversAllCodes(t *testing.T) {
	all := []Code{OK, CANCELLED, UNKNOWN, INVALID_ARGUMENT, DEADLINE_EXCEEDED,
		NOT_FOUND, ALREADY_EXISTS, PERMISSION_DENIED, UNAUTHENTICATED,
		RESOURCE_EXHAUSTED, FAILED_PRECONDITION, ABORTED, OUT_OF_RANGE,
		UNIMPLEMENTED, INTERNAL, UNAVAILABLE, DATA_LOSS}
	for _, c := range all {
		if h := c.ToHTTP(); h < 100 || h > 599 {
			t.Errorf("%v.ToHTTP() = %d not a valid http status", c, h)
		}
	}
}
