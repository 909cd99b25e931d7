// Package grpclink carries the device link over gRPC.
//
// There is no generated code: the service is declared by hand and its
// messages are protobuf well-known types. Messages travel as structpb.Struct,
// files as a client stream of wrapperspb.BytesValue chunks with the transfer
// tags in binary metadata, and liveness checks as emptypb.Empty.
package grpclink

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "wristnote.link.v1.Link"

	MessageMethod  = "/" + ServiceName + "/Message"
	PingMethod     = "/" + ServiceName + "/Ping"
	TransferMethod = "/" + ServiceName + "/Transfer"

	// tagsHeader holds a marshaled structpb.Struct with the transfer tags.
	tagsHeader = "link-tags-bin"

	chunkSize = 64 << 10
)

type linkService interface {
	Message(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Ping(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	Transfer(grpc.ServerStream) error
}

var transferStreamDesc = grpc.StreamDesc{
	StreamName:    "Transfer",
	Handler:       transferHandler,
	ClientStreams: true,
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*linkService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Message", Handler: messageHandler},
		{MethodName: "Ping", Handler: pingHandler},
	},
	Streams:  []grpc.StreamDesc{transferStreamDesc},
	Metadata: "wristnote/link/v1/link.proto",
}

func messageHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(linkService).Message(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MessageMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(linkService).Message(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func pingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(linkService).Ping(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PingMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(linkService).Ping(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func transferHandler(srv any, stream grpc.ServerStream) error {
	return srv.(linkService).Transfer(stream)
}
