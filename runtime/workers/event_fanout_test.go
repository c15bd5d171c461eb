package workers

import (
	"chatcode/contract"
	"chatcode/domain/feed"
	"chatcode/mocks"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var room = feed.NewFilter(feed.Messages, "room-1")

func inserted(id string) feed.Change {
	return feed.Change{Filter: room, Event: feed.Inserted{Item: feed.Item{ID: id, Seq: time.Now()}}}
}

func TestEventFanout_Fanout(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	subscriber := mocks.NewMockEventSink(ctrl)
	permanent := mocks.NewMockEventSink(ctrl)

	fanout := NewEventFanout(log, mockRegistry, nil, time.Second, permanent)
	change := inserted("A")

	// Given one subscriber watching the room
	mockRegistry.EXPECT().GetSinksForTopic(room.Topic()).Return([]contract.EventSink{subscriber})

	// Then the subscriber and the permanent sink both consume the event
	subscriber.EXPECT().Consume(gomock.Any(), change.Event).Return(nil)
	permanent.EXPECT().Consume(gomock.Any(), change.Event).Return(nil)

	// When the change is handled
	fanout.Fanout(context.Background(), change)
}

func TestEventFanout_SinkTimeout(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	slow := mocks.NewMockEventSink(ctrl)
	fast := mocks.NewMockEventSink(ctrl)

	fanout := NewEventFanout(log, mockRegistry, nil, 20*time.Millisecond)

	// Given a sink blocked until its deadline
	mockRegistry.EXPECT().GetSinksForTopic(gomock.Any()).Return([]contract.EventSink{slow, fast})
	slow.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ feed.ChangeEvent) error {
			<-ctx.Done()
			return ctx.Err()
		})
	fast.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil)

	// When a change is handled
	start := time.Now()
	fanout.Fanout(context.Background(), inserted("A"))

	// Then the slow sink does not hold the next one for long
	req.Less(time.Since(start), 500*time.Millisecond)
}

func TestEventFanout_Run_Keeps_Publication_Order(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	changes := make(chan feed.Change, 10)
	received := make(chan string, 10)

	sink := contract.SinkFunc(func(_ context.Context, e feed.ChangeEvent) error {
		received <- e.ItemID()
		return nil
	})
	mockRegistry.EXPECT().GetSinksForTopic(room.Topic()).Return([]contract.EventSink{sink}).Times(3)

	fanout := NewEventFanout(log, mockRegistry, changes, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		req.NoError(fanout.Run(ctx))
		close(done)
	}()

	// When three changes are published
	for _, id := range []string{"A", "B", "C"} {
		changes <- inserted(id)
	}

	// Then they are received in order
	for _, want := range []string{"A", "B", "C"} {
		select {
		case got := <-received:
			req.Equal(want, got)
		case <-time.After(time.Second):
			req.Fail("change not delivered in time")
		}
	}
	cancel()
	<-done
}
