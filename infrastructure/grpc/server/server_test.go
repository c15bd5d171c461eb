package server_test

import (
	"chatcode/auth"
	"chatcode/domain/chat"
	"chatcode/domain/feed"
	"chatcode/infrastructure/grpc/client"
	"chatcode/infrastructure/grpc/rpc"
	"chatcode/infrastructure/grpc/server"
	"chatcode/infrastructure/search"
	"chatcode/infrastructure/storage"
	"chatcode/moderation"
	"chatcode/runtime"
	"chatcode/runtime/workers"
	"chatcode/services"
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	sdkgrpc "github.com/mama165/sdk-go/grpc"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const password = "ComplexPass123!"

// startServer runs the whole service in memory and returns a connection to it.
func startServer(t *testing.T) *grpc.ClientConn {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	require.NoError(t, err)

	rooms := storage.NewRoomRepository(db, log)
	messages := storage.NewMessageRepository(db, log, nil)
	index := search.NewMessageIndex(writer, log)
	moderator, err := moderation.NewModerator([]string{"idiot"}, '*', log)
	require.NoError(t, err)

	orchestrator := runtime.NewOrchestrator(log, workers.NewSupervisor(log, 10*time.Millisecond),
		runtime.NewRegistry(), services.NewFeedService(log, rooms, messages),
		2, 64, time.Second, 10*time.Millisecond)
	orchestrator.Add(index)

	authService := services.NewAuthService(log, storage.NewUserRepository(db), auth.NewTokenIssuer("test-secret", time.Hour))
	srv := server.NewRoomFeedServer(log,
		authService,
		services.NewRoomService(log, rooms, messages, orchestrator),
		services.NewChatService(log, rooms, messages, index, moderator, orchestrator, 500),
		services.NewCodeService(log, rooms, orchestrator),
		func() *runtime.FeedView { return orchestrator.NewFeedView(time.Second, 10*time.Millisecond, 16) },
	)

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			sdkgrpc.UnaryLoggingInterceptor(log),
			server.UnaryAuthInterceptor(authService),
		),
		grpc.ChainStreamInterceptor(server.StreamAuthInterceptor(authService)),
	)
	server.RegisterRoomFeedServer(s, srv)

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	go func() {
		close(started)
		orchestrator.Start(ctx)
	}()
	<-started
	go func() { _ = s.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		s.Stop()
		cancel()
		_ = writer.Close()
		_ = db.Close()
	})
	return conn
}

func newUser(t *testing.T, conn *grpc.ClientConn, email string) *client.RoomFeedClient {
	c := client.NewRoomFeedClient(conn)
	_, err := c.Register(context.Background(), email, password)
	require.NoError(t, err)
	return c
}

// recvUntil reads states until one satisfies pred.
func recvUntil(t *testing.T, w *client.WatchStream, pred func(rpc.WatchedState) bool) rpc.WatchedState {
	t.Helper()
	for {
		s, err := w.Recv()
		require.NoError(t, err)
		if pred(s) {
			return s
		}
	}
}

func ready(s rpc.WatchedState) bool {
	return s.Status == feed.Ready
}

func ids(s rpc.WatchedState) []string {
	out := make([]string, len(s.Items))
	for i, item := range s.Items {
		out[i] = item.ID
	}
	return out
}

func TestRoomFeed_Requires_Token(t *testing.T) {
	req := require.New(t)
	conn := startServer(t)
	anonymous := client.NewRoomFeedClient(conn)

	// Templates are public, rooms are not
	templates, err := anonymous.Templates(context.Background())
	req.NoError(err)
	req.Len(templates, 4)

	_, err = anonymous.CreateRoom(context.Background(), "Algorithms")
	req.Equal(codes.Unauthenticated, status.Code(err))

	anonymous.SetToken("forged")
	_, err = anonymous.CreateRoom(context.Background(), "Algorithms")
	req.Equal(codes.Unauthenticated, status.Code(err))
}

func TestRoomFeed_Login(t *testing.T) {
	req := require.New(t)
	conn := startServer(t)
	newUser(t, conn, "alice@example.com")

	c := client.NewRoomFeedClient(conn)
	_, err := c.Login(context.Background(), "alice@example.com", "WrongPass123!")
	req.Equal(codes.Unauthenticated, status.Code(err))

	token, err := c.Login(context.Background(), "alice@example.com", password)
	req.NoError(err)
	req.NotEmpty(token)
}

func TestRoomFeed_Watch_Room_Messages(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := startServer(t)
	alice := newUser(t, conn, "alice@example.com")
	bob := newUser(t, conn, "bob@example.com")

	// Given a room created by alice, greeted by the system
	room, err := alice.CreateRoom(ctx, "Algorithms")
	req.NoError(err)

	// When bob watches it
	watch, err := bob.Watch(ctx)
	req.NoError(err)
	req.NoError(watch.OpenRoom(room.ID))
	first := recvUntil(t, watch, func(s rpc.WatchedState) bool { return ready(s) && len(s.Items) == 1 })
	req.Equal(chat.WelcomeMessage, first.Items[0].String("content"))
	req.False(first.Items[0].Mine)

	// And both post
	fromAlice, err := alice.PostMessage(ctx, room.ID, "you idiot")
	req.NoError(err)
	fromBob, err := bob.PostMessage(ctx, room.ID, "Let's write a binary search")
	req.NoError(err)

	// Then bob sees both in order, his own flagged as mine, alice's censored
	s := recvUntil(t, watch, func(s rpc.WatchedState) bool { return len(s.Items) == 3 })
	req.Equal([]string{first.Items[0].ID, fromAlice.ID.String(), fromBob.ID.String()}, ids(s))
	req.Equal("you *****", s.Items[1].String("content"))
	req.False(s.Items[1].Mine)
	req.True(s.Items[2].Mine)

	// When bob edits and alice deletes
	_, err = bob.EditMessage(ctx, room.ID, fromBob.ID.String(), "Let's write a merge sort")
	req.NoError(err)
	req.NoError(alice.DeleteMessage(ctx, room.ID, fromAlice.ID.String()))

	// Then the feed reflects both in place
	s = recvUntil(t, watch, func(s rpc.WatchedState) bool {
		return len(s.Items) == 2 && s.Items[1].String("content") == "Let's write a merge sort"
	})
	req.True(s.Items[1].Payload["edited"].(bool))

	req.NoError(watch.CloseSend())
}

func TestRoomFeed_Watch_Unknown_Room_Then_Switch(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := startServer(t)
	alice := newUser(t, conn, "alice@example.com")
	room, err := alice.CreateRoom(ctx, "Graphs")
	req.NoError(err)

	watch, err := alice.Watch(ctx)
	req.NoError(err)

	// An unknown room ends in error
	req.NoError(watch.OpenRoom("missing"))
	failed := recvUntil(t, watch, func(s rpc.WatchedState) bool { return s.Status == feed.Error })
	req.Contains(failed.Reason, "not found")

	// Switching to a real room bumps the generation
	req.NoError(watch.OpenRoom(room.ID))
	s := recvUntil(t, watch, ready)
	req.Equal(chat.MessagesFilter(room.ID), s.Filter)
	req.Greater(s.Generation, failed.Generation)
}

func TestRoomFeed_Watch_Deleted_Room_Then_Close(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := startServer(t)
	alice := newUser(t, conn, "alice@example.com")
	bob := newUser(t, conn, "bob@example.com")
	room, err := alice.CreateRoom(ctx, "Dynamic programming")
	req.NoError(err)
	_, err = alice.PostMessage(ctx, room.ID, "memoize the recursion")
	req.NoError(err)

	// Given bob watching the room
	watch, err := bob.Watch(ctx)
	req.NoError(err)
	req.NoError(watch.OpenRoom(room.ID))
	recvUntil(t, watch, func(s rpc.WatchedState) bool { return ready(s) && len(s.Items) == 2 })

	// When alice deletes it
	req.NoError(alice.DeleteRoom(ctx, room.ID))

	// Then bob's feed fails instead of showing removed messages
	failed := recvUntil(t, watch, func(s rpc.WatchedState) bool { return s.Status == feed.Error })
	req.Contains(failed.Reason, "not found")
	req.Empty(failed.Items)

	// When bob closes the feed, the release is confirmed
	req.NoError(watch.Close())
	closed := recvUntil(t, watch, func(s rpc.WatchedState) bool { return s.Status == feed.Closed })
	req.Equal(chat.MessagesFilter(room.ID), closed.Filter)
	req.Empty(closed.Items)

	req.NoError(watch.CloseSend())
}

func TestRoomFeed_Watch_My_Rooms(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := startServer(t)
	alice := newUser(t, conn, "alice@example.com")
	bob := newUser(t, conn, "bob@example.com")

	watch, err := alice.Watch(ctx)
	req.NoError(err)
	req.NoError(watch.OpenMyRooms())
	recvUntil(t, watch, ready)

	// Rooms of other owners never show up
	_, err = bob.CreateRoom(ctx, "Bob's room")
	req.NoError(err)
	room, err := alice.CreateRoom(ctx, "Alice's room")
	req.NoError(err)

	s := recvUntil(t, watch, func(s rpc.WatchedState) bool { return len(s.Items) == 1 })
	req.Equal(string(room.ID), s.Items[0].ID)
	req.True(s.Items[0].Mine)

	// A rename by someone else is refused, the owner's one is pushed
	_, err = bob.RenameRoom(ctx, room.ID, "Stolen")
	req.Equal(codes.PermissionDenied, status.Code(err))
	_, err = alice.RenameRoom(ctx, room.ID, "Renamed")
	req.NoError(err)
	recvUntil(t, watch, func(s rpc.WatchedState) bool {
		return len(s.Items) == 1 && s.Items[0].String("name") == "Renamed"
	})

	req.NoError(alice.DeleteRoom(ctx, room.ID))
	recvUntil(t, watch, func(s rpc.WatchedState) bool { return ready(s) && len(s.Items) == 0 })
}

func TestRoomFeed_History_Search_And_Code(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := startServer(t)
	alice := newUser(t, conn, "alice@example.com")
	room, err := alice.CreateRoom(ctx, "Sorting")
	req.NoError(err)

	posted, err := alice.PostMessage(ctx, room.ID, "quicksort partitions around a pivot")
	req.NoError(err)

	// History is newest first
	history, _, err := alice.GetMessages(ctx, room.ID, nil)
	req.NoError(err)
	req.Equal(posted.ID, history[0].ID)

	// The index is fed asynchronously by the fanout
	req.Eventually(func() bool {
		found, err := alice.SearchMessages(ctx, room.ID, "pivot", 0)
		return err == nil && len(found) == 1 && found[0].ID == posted.ID
	}, 2*time.Second, 20*time.Millisecond)

	run, err := alice.RunCode(ctx, room.ID, chat.Python, "", "7")
	req.NoError(err)
	req.Equal("Python Output:\nHello, world!\n\nInput received: 7", run.Output)

	_, err = alice.RunCode(ctx, room.ID, "cobol", "", "")
	req.Equal(codes.InvalidArgument, status.Code(err))

	_, err = alice.GetRoom(ctx, "missing")
	req.Equal(codes.NotFound, status.Code(err))
}
