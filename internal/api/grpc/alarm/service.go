package alarm

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "alarm.engine.v1.AlarmEngine"

// Method names.
const (
	MethodGetState    = "GetState"
	MethodUpdateState = "UpdateState"
	MethodAcknowledge = "Acknowledge"
	MethodSetNotify   = "SetNotify"
)

// EngineServer is the server API of the AlarmEngine service.
type EngineServer interface {
	GetState(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateState(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Acknowledge(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SetNotify(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the AlarmEngine service.
//
//nolint:gochecknoglobals // Registered once by RegisterEngineServer.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EngineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodGetState, Handler: handler(MethodGetState, EngineServer.GetState)},
		{MethodName: MethodUpdateState, Handler: handler(MethodUpdateState, EngineServer.UpdateState)},
		{MethodName: MethodAcknowledge, Handler: handler(MethodAcknowledge, EngineServer.Acknowledge)},
		{MethodName: MethodSetNotify, Handler: handler(MethodSetNotify, EngineServer.SetNotify)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "alarm/engine/v1/engine.proto",
}

// RegisterEngineServer registers srv with s.
func RegisterEngineServer(s grpc.ServiceRegistrar, srv EngineServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// FullMethod returns the /service/method name used on the wire.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type unaryMethod func(EngineServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func handler(method string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}

		if interceptor == nil {
			return call(srv.(EngineServer), ctx, in) //nolint:forcetypeassert // Guaranteed by HandlerType.
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethod(method),
		}

		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(EngineServer), ctx, req.(*structpb.Struct)) //nolint:forcetypeassert // Decoded above.
		})
	}
}
