package server

import (
	"chatcode/auth"
	"chatcode/domain/feed"
	"chatcode/errors"
	"chatcode/infrastructure/grpc/rpc"
	"chatcode/runtime"
	"context"
	stderrors "errors"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ViewFactory creates the feed view backing one Watch stream.
type ViewFactory func() *runtime.FeedView

// Watch turns a bidirectional stream into a feed view. The client sends
// open, close and retry instructions, the server pushes every new feed state.
// The caller is resolved once, when the stream opens.
func (s *RoomFeedServer) Watch(stream grpc.ServerStream) error {
	caller, err := auth.FromContext(stream.Context())
	if err != nil {
		return errors.MapToGRPCError(err)
	}
	ctx, cancel := context.WithCancel(stream.Context())
	defer cancel()

	view := s.views()
	go func() {
		_ = view.Run(ctx)
	}()

	received := make(chan error, 1)
	go func() {
		received <- s.receive(stream, view, caller.UserID)
		cancel()
	}()

	for state := range view.Updates() {
		out, err := rpc.EncodeState(state, caller.UserID)
		if err != nil {
			s.log.Error("Feed state not encodable", "topic", state.Filter.Topic(), "error", err)
			continue
		}
		if err := stream.SendMsg(out); err != nil {
			s.log.Warn("Watch stream send failed", "user_id", caller.UserID, "error", err)
			return err
		}
	}
	s.log.Debug("Watch stream closed", "user_id", caller.UserID)
	return <-received
}

func (s *RoomFeedServer) receive(stream grpc.ServerStream, view *runtime.FeedView, userID string) error {
	for {
		in := new(structpb.Struct)
		if err := stream.RecvMsg(in); err != nil {
			if stderrors.Is(err, io.EOF) || stream.Context().Err() != nil {
				return nil
			}
			return err
		}

		req := rpc.DecodeWatchRequest(in)
		switch req.Action {
		case rpc.ActionOpen:
			view.Open(resolve(req.Filter, userID))
		case rpc.ActionClose:
			view.Close()
		case rpc.ActionRetry:
			view.Retry()
		default:
			s.log.Warn("Unknown watch action", "action", req.Action, "user_id", userID)
		}
	}
}

// resolve scopes a room list feed to the caller, whatever key was sent.
func resolve(filter feed.Filter, userID string) feed.Filter {
	if filter.Collection == feed.Rooms {
		filter.Key = userID
	}
	return filter
}
