package server

import (
	"chatcode/auth"
	"chatcode/domain/chat"
	"chatcode/errors"
	"chatcode/infrastructure/grpc/rpc"
	"chatcode/services"
	"context"
	"log/slog"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

type RoomFeedServer struct {
	log         *slog.Logger
	authService services.IAuthService
	roomService services.IRoomService
	chatService services.IChatService
	codeService services.ICodeService
	views       ViewFactory
}

var _ RoomFeedService = (*RoomFeedServer)(nil)

func NewRoomFeedServer(log *slog.Logger, authService services.IAuthService, roomService services.IRoomService,
	chatService services.IChatService, codeService services.ICodeService, views ViewFactory) *RoomFeedServer {
	return &RoomFeedServer{
		log:         log,
		authService: authService,
		roomService: roomService,
		chatService: chatService,
		codeService: codeService,
		views:       views,
	}
}

func (s *RoomFeedServer) Register(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := rpc.FieldsOf(in)
	token, err := s.authService.Register(f.String("email"), f.String("password"))
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return tokenResponse(token), nil
}

func (s *RoomFeedServer) Login(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := rpc.FieldsOf(in)
	token, err := s.authService.Login(f.String("email"), f.String("password"))
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return tokenResponse(token), nil
}

func (s *RoomFeedServer) CreateRoom(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	caller, err := auth.FromContext(ctx)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	room, err := s.roomService.CreateRoom(ctx, chat.CreateRoomCommand{
		Name:      rpc.FieldsOf(in).String("name"),
		OwnerID:   caller.UserID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return rpc.EncodeRoom(room), nil
}

func (s *RoomFeedServer) GetRoom(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	room, err := s.roomService.JoinRoom(ctx, chat.RoomID(rpc.FieldsOf(in).String("room_id")))
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return rpc.EncodeRoom(room), nil
}

func (s *RoomFeedServer) RenameRoom(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	caller, err := auth.FromContext(ctx)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	f := rpc.FieldsOf(in)
	room, err := s.roomService.RenameRoom(ctx, chat.RenameRoomCommand{
		Room:   chat.RoomID(f.String("room_id")),
		UserID: caller.UserID,
		Name:   f.String("name"),
	})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return rpc.EncodeRoom(room), nil
}

func (s *RoomFeedServer) DeleteRoom(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	caller, err := auth.FromContext(ctx)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	err = s.roomService.DeleteRoom(ctx, chat.DeleteRoomCommand{
		Room:   chat.RoomID(rpc.FieldsOf(in).String("room_id")),
		UserID: caller.UserID,
	})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &structpb.Struct{}, nil
}

// PostMessage answers with the stored message. Watchers of the room,
// the sender included, receive it through their feed.
func (s *RoomFeedServer) PostMessage(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	caller, err := auth.FromContext(ctx)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	f := rpc.FieldsOf(in)
	message, err := s.chatService.PostMessage(ctx, chat.PostMessageCommand{
		Room:      chat.RoomID(f.String("room_id")),
		UserID:    caller.UserID,
		Content:   f.String("content"),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return rpc.EncodeMessage(message), nil
}

func (s *RoomFeedServer) EditMessage(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	caller, err := auth.FromContext(ctx)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	f := rpc.FieldsOf(in)
	message, err := s.chatService.EditMessage(ctx, chat.EditMessageCommand{
		Room:      chat.RoomID(f.String("room_id")),
		MessageID: f.String("message_id"),
		UserID:    caller.UserID,
		Content:   f.String("content"),
	})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return rpc.EncodeMessage(message), nil
}

func (s *RoomFeedServer) DeleteMessage(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	caller, err := auth.FromContext(ctx)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	f := rpc.FieldsOf(in)
	err = s.chatService.DeleteMessage(ctx, chat.DeleteMessageCommand{
		Room:      chat.RoomID(f.String("room_id")),
		MessageID: f.String("message_id"),
		UserID:    caller.UserID,
	})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &structpb.Struct{}, nil
}

func (s *RoomFeedServer) GetMessages(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := rpc.FieldsOf(in)
	messages, cursor, err := s.chatService.GetMessages(chat.GetMessageCommand{
		Room:   chat.RoomID(f.String("room_id")),
		Cursor: f.OptionalString("cursor"),
	})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	out := &structpb.Struct{Fields: map[string]*structpb.Value{"messages": rpc.EncodeMessages(messages)}}
	if cursor != nil {
		out.Fields["cursor"] = structpb.NewStringValue(*cursor)
	}
	return out, nil
}

func (s *RoomFeedServer) SearchMessages(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := rpc.FieldsOf(in)
	messages, err := s.chatService.SearchMessages(ctx, chat.SearchMessagesCommand{
		Room:  chat.RoomID(f.String("room_id")),
		Terms: f.String("terms"),
		Limit: f.Int("limit"),
	})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{"messages": rpc.EncodeMessages(messages)}}, nil
}

func (s *RoomFeedServer) RunCode(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	caller, err := auth.FromContext(ctx)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	f := rpc.FieldsOf(in)
	run, err := s.codeService.Run(ctx, chat.RunCodeCommand{
		Room:     chat.RoomID(f.String("room_id")),
		UserID:   caller.UserID,
		Language: chat.Language(f.String("language")),
		Code:     f.String("code"),
		Input:    f.String("input"),
	})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"language": structpb.NewStringValue(string(run.Language)),
		"output":   structpb.NewStringValue(run.Output),
	}}, nil
}

func (s *RoomFeedServer) GetTemplates(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	templates := s.codeService.Templates()
	out := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(templates))}
	for language, code := range templates {
		out.Fields[string(language)] = structpb.NewStringValue(code)
	}
	return out, nil
}

func tokenResponse(token services.Token) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"token": structpb.NewStringValue(token.String()),
	}}
}
