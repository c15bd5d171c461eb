// Package rpc holds the wire contract of the chatcode.v1.RoomFeed service
// shared by the server and the client. Messages are google.protobuf.Struct
// values, encoded and decoded here.
package rpc

import (
	"chatcode/domain/chat"
	"chatcode/domain/feed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "chatcode.v1.RoomFeed"

const (
	MethodRegister       = "Register"
	MethodLogin          = "Login"
	MethodCreateRoom     = "CreateRoom"
	MethodGetRoom        = "GetRoom"
	MethodRenameRoom     = "RenameRoom"
	MethodDeleteRoom     = "DeleteRoom"
	MethodPostMessage    = "PostMessage"
	MethodEditMessage    = "EditMessage"
	MethodDeleteMessage  = "DeleteMessage"
	MethodGetMessages    = "GetMessages"
	MethodSearchMessages = "SearchMessages"
	MethodRunCode        = "RunCode"
	MethodGetTemplates   = "GetTemplates"
	MethodWatch          = "Watch"
)

// FullMethod returns the /service/method path used on the wire.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// Watch actions sent by the client.
const (
	ActionOpen  = "open"
	ActionClose = "close"
	ActionRetry = "retry"
)

// MineKey stands for the caller's own id in a watch filter key.
const MineKey = "mine"

// Fields reads typed values out of a Struct. Missing or mistyped fields
// read as zero values.
type Fields map[string]*structpb.Value

func FieldsOf(s *structpb.Struct) Fields {
	if s == nil {
		return Fields{}
	}
	return s.GetFields()
}

func (f Fields) String(key string) string {
	return f[key].GetStringValue()
}

func (f Fields) Bool(key string) bool {
	return f[key].GetBoolValue()
}

func (f Fields) Int(key string) int {
	return int(f[key].GetNumberValue())
}

func (f Fields) Time(key string) (time.Time, error) {
	raw := f.String(key)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}

// OptionalString is nil when the field is absent or empty.
func (f Fields) OptionalString(key string) *string {
	if v := f.String(key); v != "" {
		return &v
	}
	return nil
}

func (f Fields) List(key string) []*structpb.Value {
	return f[key].GetListValue().GetValues()
}

func (f Fields) Struct(key string) *structpb.Struct {
	return f[key].GetStructValue()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Request builds a request Struct from string pairs, skipping empty values.
func Request(kv map[string]string) *structpb.Struct {
	s := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(kv))}
	for k, v := range kv {
		if v != "" {
			s.Fields[k] = structpb.NewStringValue(v)
		}
	}
	return s
}

func EncodeRoom(r chat.Room) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":         structpb.NewStringValue(string(r.ID)),
		"name":       structpb.NewStringValue(r.Name),
		"owner_id":   structpb.NewStringValue(r.OwnerID),
		"created_at": structpb.NewStringValue(formatTime(r.CreatedAt)),
	}}
}

func DecodeRoom(s *structpb.Struct) (chat.Room, error) {
	f := FieldsOf(s)
	createdAt, err := f.Time("created_at")
	if err != nil {
		return chat.Room{}, fmt.Errorf("room created_at: %w", err)
	}
	return chat.Room{
		ID:        chat.RoomID(f.String("id")),
		Name:      f.String("name"),
		OwnerID:   f.String("owner_id"),
		CreatedAt: createdAt,
	}, nil
}

func EncodeMessage(m chat.Message) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":         structpb.NewStringValue(m.ID.String()),
		"room_id":    structpb.NewStringValue(string(m.Room)),
		"author":     structpb.NewStringValue(m.SenderID),
		"content":    structpb.NewStringValue(m.Content),
		"lang":       structpb.NewStringValue(m.Lang),
		"censored":   structpb.NewBoolValue(m.Censored),
		"edited":     structpb.NewBoolValue(m.Edited),
		"created_at": structpb.NewStringValue(formatTime(m.CreatedAt)),
	}}
}

func DecodeMessage(s *structpb.Struct) (chat.Message, error) {
	f := FieldsOf(s)
	id, err := uuid.Parse(f.String("id"))
	if err != nil {
		return chat.Message{}, fmt.Errorf("message id: %w", err)
	}
	createdAt, err := f.Time("created_at")
	if err != nil {
		return chat.Message{}, fmt.Errorf("message created_at: %w", err)
	}
	return chat.Message{
		ID:        id,
		Room:      chat.RoomID(f.String("room_id")),
		SenderID:  f.String("author"),
		Content:   f.String("content"),
		Lang:      f.String("lang"),
		Censored:  f.Bool("censored"),
		Edited:    f.Bool("edited"),
		CreatedAt: createdAt,
	}, nil
}

func EncodeMessages(messages []chat.Message) *structpb.Value {
	return structpb.NewListValue(&structpb.ListValue{
		Values: lo.Map(messages, func(m chat.Message, _ int) *structpb.Value {
			return structpb.NewStructValue(EncodeMessage(m))
		}),
	})
}

func DecodeMessages(values []*structpb.Value) ([]chat.Message, error) {
	messages := make([]chat.Message, 0, len(values))
	for _, v := range values {
		m, err := DecodeMessage(v.GetStructValue())
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// EncodeState renders a feed state for userID. Items authored or owned by
// userID are flagged "mine".
func EncodeState(s feed.State, userID string) (*structpb.Struct, error) {
	items := make([]*structpb.Value, 0, len(s.Items))
	for _, item := range s.Items {
		payload, err := structpb.NewStruct(item.Payload)
		if err != nil {
			return nil, fmt.Errorf("item %s payload: %w", item.ID, err)
		}
		mine := userID != "" && (item.String("author") == userID || item.String("owner_id") == userID)
		items = append(items, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"id":      structpb.NewStringValue(item.ID),
			"seq":     structpb.NewStringValue(formatTime(item.Seq)),
			"mine":    structpb.NewBoolValue(mine),
			"payload": structpb.NewStructValue(payload),
		}}))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"collection": structpb.NewStringValue(string(s.Filter.Collection)),
		"key":        structpb.NewStringValue(s.Filter.Key),
		"generation": structpb.NewNumberValue(float64(s.Generation)),
		"status":     structpb.NewStringValue(string(s.Status)),
		"reason":     structpb.NewStringValue(s.Reason()),
		"items":      structpb.NewListValue(&structpb.ListValue{Values: items}),
	}}, nil
}

// WatchedItem is a feed item as seen by a watching client.
type WatchedItem struct {
	feed.Item
	Mine bool
}

// WatchedState is the client side view of a pushed feed state. The error
// cause only survives as its message.
type WatchedState struct {
	Filter     feed.Filter
	Generation uint64
	Status     feed.Status
	Reason     string
	Items      []WatchedItem
}

func DecodeState(s *structpb.Struct) (WatchedState, error) {
	f := FieldsOf(s)
	state := WatchedState{
		Filter:     feed.NewFilter(feed.Collection(f.String("collection")), f.String("key")),
		Generation: uint64(f.Int("generation")),
		Status:     feed.Status(f.String("status")),
		Reason:     f.String("reason"),
	}
	for _, v := range f.List("items") {
		itemFields := FieldsOf(v.GetStructValue())
		seq, err := itemFields.Time("seq")
		if err != nil {
			return WatchedState{}, fmt.Errorf("item seq: %w", err)
		}
		state.Items = append(state.Items, WatchedItem{
			Item: feed.Item{
				ID:      itemFields.String("id"),
				Seq:     seq,
				Payload: itemFields.Struct("payload").AsMap(),
			},
			Mine: itemFields.Bool("mine"),
		})
	}
	return state, nil
}

// WatchRequest is one instruction of a watching client.
type WatchRequest struct {
	Action string
	Filter feed.Filter
}

func EncodeWatchRequest(r WatchRequest) *structpb.Struct {
	return Request(map[string]string{
		"action":     r.Action,
		"collection": string(r.Filter.Collection),
		"key":        r.Filter.Key,
	})
}

func DecodeWatchRequest(s *structpb.Struct) WatchRequest {
	f := FieldsOf(s)
	return WatchRequest{
		Action: f.String("action"),
		Filter: feed.NewFilter(feed.Collection(f.String("collection")), f.String("key")),
	}
}
