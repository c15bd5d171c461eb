package rpc

import (
	"chatcode/domain/chat"
	"chatcode/domain/feed"
	"chatcode/errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestEncodeState_Flags_Items_Of_Caller(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	mine := chat.Message{ID: uuid.New(), Room: "r1", SenderID: "bob", Content: "hi", CreatedAt: at}
	theirs := chat.Message{ID: uuid.New(), Room: "r1", SenderID: "alice", Content: "hello", CreatedAt: at.Add(time.Second)}
	state := feed.State{
		Filter:     chat.MessagesFilter("r1"),
		Generation: 3,
		Status:     feed.Ready,
		Items:      []feed.Item{mine.ToItem(), theirs.ToItem()},
	}

	encoded, err := EncodeState(state, "bob")
	req.NoError(err)
	decoded, err := DecodeState(encoded)
	req.NoError(err)

	req.Equal(state.Filter, decoded.Filter)
	req.Equal(uint64(3), decoded.Generation)
	req.Equal(feed.Ready, decoded.Status)
	req.Len(decoded.Items, 2)
	req.True(decoded.Items[0].Mine)
	req.False(decoded.Items[1].Mine)
	req.Equal(at, decoded.Items[0].Seq)
	req.Equal("hello", decoded.Items[1].String("content"))
}

func TestEncodeState_Error_Keeps_Reason(t *testing.T) {
	req := require.New(t)
	state := feed.State{
		Filter: chat.MessagesFilter("r1"),
		Status: feed.Error,
		Cause:  fmt.Errorf("%w: messages:r1", errors.ErrTimeout),
	}

	encoded, err := EncodeState(state, "bob")
	req.NoError(err)
	decoded, err := DecodeState(encoded)

	req.NoError(err)
	req.Equal(feed.Error, decoded.Status)
	req.Equal("snapshot fetch timed out: messages:r1", decoded.Reason)
	req.Empty(decoded.Items)
}

func TestDecodeWatchRequest(t *testing.T) {
	req := require.New(t)

	r := DecodeWatchRequest(EncodeWatchRequest(WatchRequest{Action: ActionOpen, Filter: feed.NewFilter(feed.Rooms, MineKey)}))

	req.Equal(ActionOpen, r.Action)
	req.Equal(feed.NewFilter(feed.Rooms, MineKey), r.Filter)
	req.Equal(WatchRequest{Action: ActionRetry}, DecodeWatchRequest(EncodeWatchRequest(WatchRequest{Action: ActionRetry})))
}
