package client

import (
	"chatcode/domain/chat"
	"chatcode/domain/feed"
	"chatcode/infrastructure/grpc/rpc"
	"context"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

var watchStreamDesc = &grpc.StreamDesc{
	StreamName:    rpc.MethodWatch,
	ServerStreams: true,
	ClientStreams: true,
}

// RoomFeedClient calls chatcode.v1.RoomFeed. The token returned by Register
// or Login is kept and sent with every following call.
type RoomFeedClient struct {
	conn  grpc.ClientConnInterface
	mu    sync.RWMutex
	token string
}

func NewRoomFeedClient(conn grpc.ClientConnInterface) *RoomFeedClient {
	return &RoomFeedClient{conn: conn}
}

func (c *RoomFeedClient) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *RoomFeedClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *RoomFeedClient) Register(ctx context.Context, email, password string) (string, error) {
	return c.authenticate(ctx, rpc.MethodRegister, email, password)
}

func (c *RoomFeedClient) Login(ctx context.Context, email, password string) (string, error) {
	return c.authenticate(ctx, rpc.MethodLogin, email, password)
}

func (c *RoomFeedClient) authenticate(ctx context.Context, method, email, password string) (string, error) {
	out, err := c.invoke(ctx, method, map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}
	token := rpc.FieldsOf(out).String("token")
	c.SetToken(token)
	return token, nil
}

func (c *RoomFeedClient) CreateRoom(ctx context.Context, name string) (chat.Room, error) {
	out, err := c.invoke(ctx, rpc.MethodCreateRoom, map[string]string{"name": name})
	if err != nil {
		return chat.Room{}, err
	}
	return rpc.DecodeRoom(out)
}

func (c *RoomFeedClient) GetRoom(ctx context.Context, room chat.RoomID) (chat.Room, error) {
	out, err := c.invoke(ctx, rpc.MethodGetRoom, map[string]string{"room_id": string(room)})
	if err != nil {
		return chat.Room{}, err
	}
	return rpc.DecodeRoom(out)
}

func (c *RoomFeedClient) RenameRoom(ctx context.Context, room chat.RoomID, name string) (chat.Room, error) {
	out, err := c.invoke(ctx, rpc.MethodRenameRoom, map[string]string{"room_id": string(room), "name": name})
	if err != nil {
		return chat.Room{}, err
	}
	return rpc.DecodeRoom(out)
}

func (c *RoomFeedClient) DeleteRoom(ctx context.Context, room chat.RoomID) error {
	_, err := c.invoke(ctx, rpc.MethodDeleteRoom, map[string]string{"room_id": string(room)})
	return err
}

func (c *RoomFeedClient) PostMessage(ctx context.Context, room chat.RoomID, content string) (chat.Message, error) {
	out, err := c.invoke(ctx, rpc.MethodPostMessage, map[string]string{"room_id": string(room), "content": content})
	if err != nil {
		return chat.Message{}, err
	}
	return rpc.DecodeMessage(out)
}

func (c *RoomFeedClient) EditMessage(ctx context.Context, room chat.RoomID, messageID, content string) (chat.Message, error) {
	out, err := c.invoke(ctx, rpc.MethodEditMessage, map[string]string{
		"room_id": string(room), "message_id": messageID, "content": content,
	})
	if err != nil {
		return chat.Message{}, err
	}
	return rpc.DecodeMessage(out)
}

func (c *RoomFeedClient) DeleteMessage(ctx context.Context, room chat.RoomID, messageID string) error {
	_, err := c.invoke(ctx, rpc.MethodDeleteMessage, map[string]string{"room_id": string(room), "message_id": messageID})
	return err
}

// GetMessages returns one page of history, newest first, and the cursor of
// the next page (nil on the last one).
func (c *RoomFeedClient) GetMessages(ctx context.Context, room chat.RoomID, cursor *string) ([]chat.Message, *string, error) {
	in := map[string]string{"room_id": string(room)}
	if cursor != nil {
		in["cursor"] = *cursor
	}
	out, err := c.invoke(ctx, rpc.MethodGetMessages, in)
	if err != nil {
		return nil, nil, err
	}
	f := rpc.FieldsOf(out)
	messages, err := rpc.DecodeMessages(f.List("messages"))
	if err != nil {
		return nil, nil, err
	}
	return messages, f.OptionalString("cursor"), nil
}

func (c *RoomFeedClient) SearchMessages(ctx context.Context, room chat.RoomID, terms string, limit int) ([]chat.Message, error) {
	in := rpc.Request(map[string]string{"room_id": string(room), "terms": terms})
	if limit > 0 {
		in.Fields["limit"] = structpb.NewNumberValue(float64(limit))
	}
	out, err := c.call(ctx, rpc.MethodSearchMessages, in)
	if err != nil {
		return nil, err
	}
	return rpc.DecodeMessages(rpc.FieldsOf(out).List("messages"))
}

func (c *RoomFeedClient) RunCode(ctx context.Context, room chat.RoomID, language chat.Language, code, input string) (chat.CodeRun, error) {
	out, err := c.invoke(ctx, rpc.MethodRunCode, map[string]string{
		"room_id": string(room), "language": string(language), "code": code, "input": input,
	})
	if err != nil {
		return chat.CodeRun{}, err
	}
	f := rpc.FieldsOf(out)
	return chat.CodeRun{Room: room, Language: chat.Language(f.String("language")), Output: f.String("output")}, nil
}

func (c *RoomFeedClient) Templates(ctx context.Context) (map[chat.Language]string, error) {
	out, err := c.invoke(ctx, rpc.MethodGetTemplates, nil)
	if err != nil {
		return nil, err
	}
	templates := make(map[chat.Language]string, len(out.GetFields()))
	for language, code := range out.GetFields() {
		templates[chat.Language(language)] = code.GetStringValue()
	}
	return templates, nil
}

// Watch opens a feed stream. It ends when ctx is done or CloseSend is called.
func (c *RoomFeedClient) Watch(ctx context.Context) (*WatchStream, error) {
	stream, err := c.conn.NewStream(c.outgoing(ctx), watchStreamDesc, rpc.FullMethod(rpc.MethodWatch))
	if err != nil {
		return nil, err
	}
	return &WatchStream{stream: stream}, nil
}

func (c *RoomFeedClient) invoke(ctx context.Context, method string, in map[string]string) (*structpb.Struct, error) {
	return c.call(ctx, method, rpc.Request(in))
}

func (c *RoomFeedClient) call(ctx context.Context, method string, in *structpb.Struct) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(c.outgoing(ctx), rpc.FullMethod(method), in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RoomFeedClient) outgoing(ctx context.Context) context.Context {
	if token := c.Token(); token != "" {
		return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	}
	return ctx
}

// WatchStream is the client end of a Watch call. Send methods and Recv may
// be used from two different goroutines.
type WatchStream struct {
	stream grpc.ClientStream
}

func (w *WatchStream) Open(filter feed.Filter) error {
	return w.send(rpc.WatchRequest{Action: rpc.ActionOpen, Filter: filter})
}

// OpenRoom follows the messages of a room.
func (w *WatchStream) OpenRoom(room chat.RoomID) error {
	return w.Open(chat.MessagesFilter(room))
}

// OpenMyRooms follows the caller's own room list.
func (w *WatchStream) OpenMyRooms() error {
	return w.Open(feed.NewFilter(feed.Rooms, rpc.MineKey))
}

func (w *WatchStream) Close() error {
	return w.send(rpc.WatchRequest{Action: rpc.ActionClose})
}

func (w *WatchStream) Retry() error {
	return w.send(rpc.WatchRequest{Action: rpc.ActionRetry})
}

// Recv blocks until the next feed state. Intermediate states may have been
// skipped by the server.
func (w *WatchStream) Recv() (rpc.WatchedState, error) {
	out := new(structpb.Struct)
	if err := w.stream.RecvMsg(out); err != nil {
		return rpc.WatchedState{}, err
	}
	return rpc.DecodeState(out)
}

func (w *WatchStream) CloseSend() error {
	return w.stream.CloseSend()
}

func (w *WatchStream) send(req rpc.WatchRequest) error {
	return w.stream.SendMsg(rpc.EncodeWatchRequest(req))
}
