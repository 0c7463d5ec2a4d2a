package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "sirenguard.v1.ControlService"

// Full method names.
const (
	SendMethod          = "/" + ServiceName + "/Send"
	SetOverrideMethod   = "/" + ServiceName + "/SetOverride"
	ClearOverrideMethod = "/" + ServiceName + "/ClearOverride"
	GetStatusMethod     = "/" + ServiceName + "/GetStatus"
	WatchMethod         = "/" + ServiceName + "/Watch"
)

// ControlServer is the server API of the control service.
type ControlServer interface {
	// Send queues a control message {topic, payload} and returns {message_id}.
	Send(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	// SetOverride sets the remote override {direction, reason} and returns the status.
	SetOverride(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	// ClearOverride clears the remote override and returns the status.
	ClearOverride(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	// GetStatus returns the status snapshot.
	GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	// Watch streams {topic, payload} events until the client goes away.
	Watch(req *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error
}

// ServiceDesc describes the control service for grpc.ServiceRegistrar.
//
//nolint:gochecknoglobals // Same shape as generated service descriptors.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Send",
			Handler:    unaryHandler(SendMethod, ControlServer.Send),
		},
		{
			MethodName: "SetOverride",
			Handler:    unaryHandler(SetOverrideMethod, ControlServer.SetOverride),
		},
		{
			MethodName: "ClearOverride",
			Handler:    unaryHandler(ClearOverrideMethod, ControlServer.ClearOverride),
		},
		{
			MethodName: "GetStatus",
			Handler:    unaryHandler(GetStatusMethod, ControlServer.GetStatus),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "sirenguard/v1/control.proto",
}

// RegisterControlServer registers srv on s.
func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unaryHandler adapts a typed ControlServer method to grpc.MethodHandler.
func unaryHandler[Req any](
	fullMethod string,
	call func(ControlServer, context.Context, *Req) (*structpb.Struct, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}

		server, _ := srv.(ControlServer) //nolint:errcheck // HandlerType guarantees the type.

		if interceptor == nil {
			return call(server, ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			typed, _ := req.(*Req) //nolint:errcheck // The interceptor passes the decoded request through.

			return call(server, ctx, typed)
		}

		return interceptor(ctx, in, info, handler)
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	server, _ := srv.(ControlServer) //nolint:errcheck // HandlerType guarantees the type.

	return server.Watch(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}

// ControlClient is the client API of the control service.
type ControlClient struct {
	cc grpc.ClientConnInterface
}

// NewControlClient creates a client on top of cc.
func NewControlClient(cc grpc.ClientConnInterface) *ControlClient {
	return &ControlClient{cc: cc}
}

// Send calls ControlService.Send.
func (c *ControlClient) Send(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, SendMethod, in, opts)
}

// SetOverride calls ControlService.SetOverride.
func (c *ControlClient) SetOverride(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, SetOverrideMethod, in, opts)
}

// ClearOverride calls ControlService.ClearOverride.
func (c *ControlClient) ClearOverride(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, ClearOverrideMethod, new(emptypb.Empty), opts)
}

// GetStatus calls ControlService.GetStatus.
func (c *ControlClient) GetStatus(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, GetStatusMethod, new(emptypb.Empty), opts)
}

// Watch opens the event stream.
func (c *ControlClient) Watch(
	ctx context.Context,
	opts ...grpc.CallOption,
) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], WatchMethod, opts...)
	if err != nil {
		return nil, err
	}

	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err = x.SendMsg(new(emptypb.Empty)); err != nil {
		return nil, err
	}

	if err = x.CloseSend(); err != nil {
		return nil, err
	}

	return x, nil
}

func invoke(
	ctx context.Context,
	cc grpc.ClientConnInterface,
	method string,
	in any,
	opts []grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
