package server

import (
	"chatcode/infrastructure/grpc/rpc"
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// RoomFeedService is the server side of chatcode.v1.RoomFeed.
type RoomFeedService interface {
	Register(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	CreateRoom(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetRoom(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	RenameRoom(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	DeleteRoom(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	PostMessage(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	EditMessage(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	DeleteMessage(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetMessages(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	SearchMessages(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	RunCode(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetTemplates(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Watch(stream grpc.ServerStream) error
}

type unaryCall func(RoomFeedService, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(method string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RoomFeedService), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: rpc.FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(RoomFeedService), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var RoomFeedServiceDesc = grpc.ServiceDesc{
	ServiceName: rpc.ServiceName,
	HandlerType: (*RoomFeedService)(nil),
	Methods: []grpc.MethodDesc{
		unary(rpc.MethodRegister, RoomFeedService.Register),
		unary(rpc.MethodLogin, RoomFeedService.Login),
		unary(rpc.MethodCreateRoom, RoomFeedService.CreateRoom),
		unary(rpc.MethodGetRoom, RoomFeedService.GetRoom),
		unary(rpc.MethodRenameRoom, RoomFeedService.RenameRoom),
		unary(rpc.MethodDeleteRoom, RoomFeedService.DeleteRoom),
		unary(rpc.MethodPostMessage, RoomFeedService.PostMessage),
		unary(rpc.MethodEditMessage, RoomFeedService.EditMessage),
		unary(rpc.MethodDeleteMessage, RoomFeedService.DeleteMessage),
		unary(rpc.MethodGetMessages, RoomFeedService.GetMessages),
		unary(rpc.MethodSearchMessages, RoomFeedService.SearchMessages),
		unary(rpc.MethodRunCode, RoomFeedService.RunCode),
		unary(rpc.MethodGetTemplates, RoomFeedService.GetTemplates),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName: rpc.MethodWatch,
			Handler: func(srv any, stream grpc.ServerStream) error {
				return srv.(RoomFeedService).Watch(stream)
			},
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "chatcode/v1/room_feed.proto",
}

func RegisterRoomFeedServer(s grpc.ServiceRegistrar, srv RoomFeedService) {
	s.RegisterService(&RoomFeedServiceDesc, srv)
}
