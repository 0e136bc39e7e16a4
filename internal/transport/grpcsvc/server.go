package grpcsvc

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/stepherg/catenago/internal/rpc"
	"github.com/stepherg/catenago/internal/status"
	"github.com/stepherg/catenago/pkg/wire"
)

// bearerHeader is the incoming metadata key carrying the JWS bearer token,
// mirroring the "authorization" HTTP header Transport B reads.
const bearerHeader = "authorization"

// Server binds an *rpc.Service to the hand-written ServiceDesc below.
type Server struct {
	Service *rpc.Service
	Logger  *zap.Logger
}

// NewServer wraps svc for registration via grpc.Server.RegisterService.
func NewServer(svc *rpc.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{Service: svc, Logger: logger}
}

func bearerFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if vals := md.Get(bearerHeader); len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// toGRPCStatus maps a domain error onto the grpc status package. The closed
// internal/status.Code enumeration is numbered bit-for-bit identically to
// google.golang.org/grpc/codes.Code, so the conversion is a direct cast.
func toGRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	var ews *status.ExceptionWithStatus
	if status.As(err, &ews) {
		return grpcstatus.Error(codes.Code(ews.Status), ews.Msg)
	}
	return grpcstatus.Error(codes.Unknown, err.Error())
}

func unaryHandler(name string, fn func(srv *Server, ctx context.Context, token string, dec func(interface{}) error) (interface{}, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			s := srv.(*Server)
			token := bearerFromContext(ctx)
			if interceptor == nil {
				out, err := fn(s, ctx, token, dec)
				if err != nil {
					return nil, toGRPCStatus(err)
				}
				return out, nil
			}
			info := &grpc.UnaryServerInfo{Server: s, FullMethod: serviceName + "/" + name}
			handler := func(ctx context.Context, _ interface{}) (interface{}, error) {
				out, err := fn(s, ctx, token, dec)
				if err != nil {
					return nil, toGRPCStatus(err)
				}
				return out, nil
			}
			return interceptor(ctx, nil, info, handler)
		},
	}
}

// ServiceDesc is the hand-written binding grpc.Server dispatches unary and
// server-streaming calls through; there is no protoc-generated descriptor
// since pkg/wire is plain Go rather than compiled .proto messages.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("GetPopulatedSlots", func(s *Server, ctx context.Context, token string, dec func(interface{}) error) (interface{}, error) {
			var req wire.Empty
			if err := dec(&req); err != nil {
				return nil, err
			}
			return s.Service.GetPopulatedSlots(token)
		}),
		unaryHandler("GetValue", func(s *Server, ctx context.Context, token string, dec func(interface{}) error) (interface{}, error) {
			var req wire.GetValueRequest
			if err := dec(&req); err != nil {
				return nil, err
			}
			return s.Service.GetValue(token, req.Slot, req.Oid)
		}),
		unaryHandler("GetParam", func(s *Server, ctx context.Context, token string, dec func(interface{}) error) (interface{}, error) {
			var req wire.GetParamRequest
			if err := dec(&req); err != nil {
				return nil, err
			}
			return s.Service.GetParam(token, req.Slot, req.Oid)
		}),
		unaryHandler("SetValue", func(s *Server, ctx context.Context, token string, dec func(interface{}) error) (interface{}, error) {
			var req wire.SetValueRequest
			if err := dec(&req); err != nil {
				return nil, err
			}
			return &wire.Empty{}, s.Service.SetValue(token, req.Slot, req.Payload)
		}),
		unaryHandler("MultiSetValue", func(s *Server, ctx context.Context, token string, dec func(interface{}) error) (interface{}, error) {
			var req wire.MultiSetValueRequest
			if err := dec(&req); err != nil {
				return nil, err
			}
			return &wire.Empty{}, s.Service.MultiSetValue(token, req.Slot, req.Payload)
		}),
		unaryHandler("AddLanguage", func(s *Server, ctx context.Context, token string, dec func(interface{}) error) (interface{}, error) {
			var req wire.AddLanguageRequest
			if err := dec(&req); err != nil {
				return nil, err
			}
			return &wire.Empty{}, s.Service.AddLanguage(token, req.Slot, req.Payload)
		}),
		unaryHandler("ListLanguages", func(s *Server, ctx context.Context, token string, dec func(interface{}) error) (interface{}, error) {
			var req wire.ListLanguagesRequest
			if err := dec(&req); err != nil {
				return nil, err
			}
			return s.Service.ListLanguages(token, req.Slot)
		}),
	},
	Streams: []grpc.StreamDesc{
		serverStream("DeviceRequest", func(s *Server, stream grpc.ServerStream, token string) error {
			var req wire.DeviceRequestPayload
			if err := stream.RecvMsg(&req); err != nil {
				return err
			}
			return s.Service.DeviceRequest(token, req, func(c *wire.DeviceComponent) error {
				return stream.SendMsg(c)
			})
		}),
		serverStream("ExecuteCommand", func(s *Server, stream grpc.ServerStream, token string) error {
			var req wire.ExecuteCommandRequest
			if err := stream.RecvMsg(&req); err != nil {
				return err
			}
			return s.Service.ExecuteCommand(token, req.Slot, req.Payload, func(r *wire.CommandResponse) error {
				return stream.SendMsg(r)
			})
		}),
		serverStream("ParamInfoRequest", func(s *Server, stream grpc.ServerStream, token string) error {
			var req wire.ParamInfoRequestPayload
			if err := stream.RecvMsg(&req); err != nil {
				return err
			}
			return s.Service.ParamInfoRequest(token, req, func(r *wire.ParamInfoResponse) error {
				return stream.SendMsg(r)
			})
		}),
		serverStream("UpdateSubscriptions", func(s *Server, stream grpc.ServerStream, token string) error {
			var req wire.UpdateSubscriptionsRequest
			if err := stream.RecvMsg(&req); err != nil {
				return err
			}
			return s.Service.UpdateSubscriptions(token, req.Slot, req.Payload, func(c *wire.DeviceComponent) error {
				return stream.SendMsg(c)
			})
		}),
		serverStream("Connect", func(s *Server, stream grpc.ServerStream, token string) error {
			var req wire.ConnectPayload
			if err := stream.RecvMsg(&req); err != nil {
				return err
			}
			sess, err := s.Service.Connect(token, req)
			if err != nil {
				return err
			}
			return sess.Run(stream.Context(), func(u *wire.PushUpdates) error {
				return stream.SendMsg(u)
			})
		}),
	},
	Metadata: "catenagw.proto",
}

const serviceName = "catena.gateway.v1.CatenaGateway"

func serverStream(name string, fn func(s *Server, stream grpc.ServerStream, token string) error) grpc.StreamDesc {
	return grpc.StreamDesc{
		StreamName:    name,
		ServerStreams: true,
		Handler: func(srv interface{}, stream grpc.ServerStream) error {
			s := srv.(*Server)
			token := bearerFromContext(stream.Context())
			if err := fn(s, stream, token); err != nil {
				return toGRPCStatus(err)
			}
			return nil
		},
	}
}

// RegisterService registers srv's ServiceDesc onto gs, the idiom
// protoc-generated _grpc.pb.go files follow for RegisterXxxServer.
func RegisterService(gs *grpc.Server, srv *Server) {
	gs.RegisterService(&ServiceDesc, srv)
}

// NewGRPCServer builds a *grpc.Server forced onto the JSON wire codec and
// registers srv on it.
func NewGRPCServer(srv *Server, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.ForceServerCodec(jsonCodec{})}, opts...)
	gs := grpc.NewServer(opts...)
	RegisterService(gs, srv)
	return gs
}
