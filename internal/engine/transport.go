package engine

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// serviceName is the grpc service path WaveSyncDB registers under.
// There is no .proto file backing it: every RPC exchanges a single
// opaque byte payload wrapped in wrapperspb.BytesValue, a real
// compiled proto.Message already pulled in transitively by
// google.golang.org/protobuf. This sidesteps hand-authoring a
// protoc-generated file or a custom grpc codec while still using
// grpc's standard proto marshaling path end to end.
const serviceName = "wavesyncdb.Gossip"

const (
	methodPublish  = "Publish"
	methodFullSync = "FullSync"
	methodPing     = "Ping"
)

// gossipServer is implemented by Engine and registered against the
// hand-rolled ServiceDesc below.
type gossipServer interface {
	handlePublish(ctx context.Context, payload []byte) ([]byte, error)
	handleFullSync(ctx context.Context, payload []byte) ([]byte, error)
	handlePing(ctx context.Context, payload []byte) ([]byte, error)
}

func publishHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return invokePublish(srv.(gossipServer), ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + methodPublish}
	handler := func(ctx context.Context, req any) (any, error) {
		return invokePublish(srv.(gossipServer), ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func invokePublish(s gossipServer, ctx context.Context, in *wrapperspb.BytesValue) (any, error) {
	out, err := s.handlePublish(ctx, in.GetValue())
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bytes(out), nil
}

func fullSyncHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return invokeFullSync(srv.(gossipServer), ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + methodFullSync}
	handler := func(ctx context.Context, req any) (any, error) {
		return invokeFullSync(srv.(gossipServer), ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func invokeFullSync(s gossipServer, ctx context.Context, in *wrapperspb.BytesValue) (any, error) {
	out, err := s.handleFullSync(ctx, in.GetValue())
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bytes(out), nil
}

func pingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return invokePing(srv.(gossipServer), ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + methodPing}
	handler := func(ctx context.Context, req any) (any, error) {
		return invokePing(srv.(gossipServer), ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func invokePing(s gossipServer, ctx context.Context, in *wrapperspb.BytesValue) (any, error) {
	out, err := s.handlePing(ctx, in.GetValue())
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bytes(out), nil
}

// serviceDesc is the hand-rolled equivalent of what protoc-gen-go-grpc
// would emit from a .proto file defining three unary RPCs.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*gossipServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: methodPublish, Handler: publishHandler},
		{MethodName: methodFullSync, Handler: fullSyncHandler},
		{MethodName: methodPing, Handler: pingHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wavesyncdb/gossip",
}

func callPublish(ctx context.Context, cc *grpc.ClientConn, payload []byte) ([]byte, error) {
	out := new(wrapperspb.BytesValue)
	err := cc.Invoke(ctx, "/"+serviceName+"/"+methodPublish, wrapperspb.Bytes(payload), out)
	if err != nil {
		return nil, err
	}
	return out.GetValue(), nil
}

func callFullSync(ctx context.Context, cc *grpc.ClientConn, payload []byte) ([]byte, error) {
	out := new(wrapperspb.BytesValue)
	err := cc.Invoke(ctx, "/"+serviceName+"/"+methodFullSync, wrapperspb.Bytes(payload), out)
	if err != nil {
		return nil, err
	}
	return out.GetValue(), nil
}

func callPing(ctx context.Context, cc *grpc.ClientConn, payload []byte) ([]byte, error) {
	out := new(wrapperspb.BytesValue)
	err := cc.Invoke(ctx, "/"+serviceName+"/"+methodPing, wrapperspb.Bytes(payload), out)
	if err != nil {
		return nil, err
	}
	return out.GetValue(), nil
}
