package status

import "google.golang.org/grpc/codes"

// ToGRPC maps a core Code onto the equivalent google.golang.org/grpc/codes
// value for Transport A. The mapping is bit-exact: grpc's codes enum was
// itself the origin of this taxonomy, so every value maps 1:1.
func (c Code) ToGRPC() codes.Code {
	return codes.Code(c)
}

// ToHTTP maps a core Code onto the HTTP status used by Transport B, per the
// table in spec section 6.
func (c Code) ToHTTP() int {
	switch c {
	case OK:
		return 200
	case CANCELLED:
		return 499
	case UNKNOWN:
		return 500
	case INVALID_ARGUMENT:
		return 400
	case DEADLINE_EXCEEDED:
		return 504
	case NOT_FOUND:
		return 404
	case ALREADY_EXISTS:
		return 409
	case PERMISSION_DENIED:
		return 403
	case UNAUTHENTICATED:
		return 401
	case RESOURCE_EXHAUSTED:
		return 429
	case FAILED_PRECONDITION:
		return 412
	case ABORTED:
		return 409
	case OUT_OF_RANGE:
		return 400
	case UNIMPLEMENTED:
		return 501
	case INTERNAL:
		return 500
	case UNAVAILABLE:
		return 503
	case DATA_LOSS:
		return 500
	default:
		return 500
	}
}
