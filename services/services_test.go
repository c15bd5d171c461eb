package services

import (
	"chatcode/domain/chat"
	"chatcode/domain/feed"
	"chatcode/mocks"
	"chatcode/moderation"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	testLog  = logs.GetLoggerFromLevel(slog.LevelDebug)
	roomID   = chat.RoomID("room-1")
	testRoom = chat.Room{ID: roomID, Name: "Algorithms", OwnerID: "alice", CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
)

type fixture struct {
	rooms     *mocks.MockIRoomRepository
	messages  *mocks.MockIMessageRepository
	index     *mocks.MockIMessageIndex
	publisher *mocks.MockPublisher
	runner    *mocks.MockCodeRunner
}

func newFixture(t *testing.T) fixture {
	ctrl := gomock.NewController(t)
	return fixture{
		rooms:     mocks.NewMockIRoomRepository(ctrl),
		messages:  mocks.NewMockIMessageRepository(ctrl),
		index:     mocks.NewMockIMessageIndex(ctrl),
		publisher: mocks.NewMockPublisher(ctrl),
		runner:    mocks.NewMockCodeRunner(ctrl),
	}
}

func newModerator(t *testing.T) *moderation.Moderator {
	m, err := moderation.NewModerator([]string{"badger"}, '*', testLog)
	require.NoError(t, err)
	return m
}

// capture records every change handed to the publisher.
func (f fixture) capture() *[]feed.Change {
	var changes []feed.Change
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, c feed.Change) error {
			changes = append(changes, c)
			return nil
		}).AnyTimes()
	return &changes
}

// changeMatcher matches a published change by topic and event kind.
type changeMatcher struct {
	filter feed.Filter
	kind   string
}

func changeOn(filter feed.Filter, kind string) gomock.Matcher {
	return changeMatcher{filter: filter, kind: kind}
}

func (m changeMatcher) Matches(x any) bool {
	c, ok := x.(feed.Change)
	return ok && c.Filter == m.filter && feed.Kind(c.Event) == m.kind
}

func (m changeMatcher) String() string {
	return m.kind + " on " + m.filter.Topic()
}
