package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	parseMethod    = "/" + ServiceName + "/Parse"
	evaluateMethod = "/" + ServiceName + "/Evaluate"
	expandMethod   = "/" + ServiceName + "/Expand"
)

// RegisterExpressionsServer registers srv with a gRPC service registrar.
func RegisterExpressionsServer(r grpc.ServiceRegistrar, srv ExpressionsServer) {
	r.RegisterService(&expressionsServiceDesc, srv)
}

var expressionsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExpressionsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Parse", Handler: unaryHandler(parseMethod, ExpressionsServer.Parse)},
		{MethodName: "Evaluate", Handler: unaryHandler(evaluateMethod, ExpressionsServer.Evaluate)},
		{MethodName: "Expand", Handler: unaryHandler(expandMethod, ExpressionsServer.Expand)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "eggexpr/v1/expressions.proto",
}

type unaryMethod func(ExpressionsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ExpressionsServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ExpressionsServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ExpressionsClient is the client API for the Expressions service.
type ExpressionsClient struct {
	cc grpc.ClientConnInterface
}

// NewExpressionsClient creates a client over cc.
func NewExpressionsClient(cc grpc.ClientConnInterface) *ExpressionsClient {
	return &ExpressionsClient{cc: cc}
}

func (c *ExpressionsClient) Parse(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, parseMethod, in, opts)
}

func (c *ExpressionsClient) Evaluate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, evaluateMethod, in, opts)
}

func (c *ExpressionsClient) Expand(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, expandMethod, in, opts)
}

func (c *ExpressionsClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
