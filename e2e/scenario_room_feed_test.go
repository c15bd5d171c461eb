package e2e

import (
	"chatcode/domain/chat"
	"chatcode/domain/feed"
	"chatcode/infrastructure/grpc/client"
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

const password = "ComplexPass123!"

type testRoomFeedSuite struct {
	BaseGrpcSuite
}

func TestRoomFeedSuite(t *testing.T) {
	suite.Run(t, &testRoomFeedSuite{})
}

func (s *testRoomFeedSuite) TestWatchRoomFlow() {
	s.WithClient("Owner creates a room and watches it", func(ctx context.Context, owner *client.RoomFeedClient) {
		_, err := owner.Register(ctx, fmt.Sprintf("owner-%s@example.com", uuid.NewString()[:8]), password)
		s.Require().NoError(err)

		var room chat.Room
		s.Run("Step 1: Create the room", func() {
			room, err = owner.CreateRoom(ctx, "E2E room")
			s.Require().NoError(err)
		})

		watch, err := owner.Watch(ctx)
		s.Require().NoError(err)
		defer func() { _ = watch.CloseSend() }()

		s.Run("Step 2: The snapshot holds the welcome message", func() {
			s.Require().NoError(watch.OpenRoom(room.ID))
			for {
				state, err := watch.Recv()
				s.Require().NoError(err)
				s.Require().NotEqual(feed.Error, state.Status, state.Reason)
				if state.Status == feed.Ready {
					s.Require().Len(state.Items, 1)
					s.Require().Equal(chat.SystemAuthor, state.Items[0].String("author"))
					return
				}
			}
		})

		s.Run("Step 3: A posted message reaches the feed", func() {
			posted, err := owner.PostMessage(ctx, room.ID, "hello from e2e")
			s.Require().NoError(err)
			for {
				state, err := watch.Recv()
				s.Require().NoError(err)
				if len(state.Items) == 2 {
					s.Require().Equal(posted.ID.String(), state.Items[1].ID)
					s.Require().True(state.Items[1].Mine)
					return
				}
			}
		})

		s.Run("Step 4: Cleanup", func() {
			s.Require().NoError(owner.DeleteRoom(ctx, room.ID))
		})
	})
}
