package main

import (
	"bufio"
	"chatcode/domain/chat"
	"chatcode/domain/feed"
	"chatcode/infrastructure/grpc/client"
	"chatcode/infrastructure/grpc/rpc"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `envconfig:"CHATCODE_SERVER_ADDR" default:"localhost:8080"`
	Email         string `envconfig:"CHATCODE_EMAIL" required:"true"`
	Password      string `envconfig:"CHATCODE_PASSWORD" required:"true"`
	Register      bool   `envconfig:"CHATCODE_REGISTER" default:"false"`
	// Empty follows the caller's own room list
	RoomID   string `envconfig:"CHATCODE_ROOM_ID"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"WARN"`
	Colours  bool   `envconfig:"CHATCODE_COLOURS" default:"true"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run logs in, opens a watch stream and renders every pushed state.
// Lines typed on stdin are posted to the watched room, or commands:
// /room <id>, /rooms, /retry, /close, /run <language> [input].
func run() (int, error) {
	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	if !config.Colours {
		color.Disable()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := grpc.NewClient(config.ServerAddress, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerAddress, err)
	}
	defer conn.Close()

	c := client.NewRoomFeedClient(conn)
	if config.Register {
		_, err = c.Register(ctx, config.Email, config.Password)
	} else {
		_, err = c.Login(ctx, config.Email, config.Password)
	}
	if err != nil {
		return exitRuntime, fmt.Errorf("authentication failed: %w", err)
	}

	watch, err := c.Watch(ctx)
	if err != nil {
		return exitRuntime, fmt.Errorf("watch failed: %w", err)
	}
	session := &session{log: log, client: c, watch: watch, out: os.Stdout}
	if config.RoomID != "" {
		err = session.openRoom(ctx, chat.RoomID(config.RoomID))
	} else {
		err = watch.OpenMyRooms()
	}
	if err != nil {
		return exitRuntime, err
	}

	go session.readCommands(ctx, os.Stdin)

	for {
		state, err := watch.Recv()
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return exitOK, nil
		}
		if err != nil {
			return exitRuntime, fmt.Errorf("stream interrupted: %w", err)
		}
		session.render(state)
	}
}

type session struct {
	log    *slog.Logger
	client *client.RoomFeedClient
	watch  *client.WatchStream
	out    io.Writer
	room   chat.RoomID
}

func (s *session) openRoom(ctx context.Context, room chat.RoomID) error {
	if _, err := s.client.GetRoom(ctx, room); err != nil {
		return fmt.Errorf("room %s: %w", room, err)
	}
	s.room = room
	return s.watch.OpenRoom(room)
}

func (s *session) readCommands(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := s.handle(ctx, strings.TrimSpace(scanner.Text())); err != nil {
			color.Error.Println(err.Error())
		}
	}
	_ = s.watch.CloseSend()
}

func (s *session) handle(ctx context.Context, line string) error {
	command, arg, _ := strings.Cut(line, " ")
	switch command {
	case "":
		return nil
	case "/room":
		return s.openRoom(ctx, chat.RoomID(arg))
	case "/rooms":
		s.room = ""
		return s.watch.OpenMyRooms()
	case "/retry":
		return s.watch.Retry()
	case "/close":
		s.room = ""
		return s.watch.Close()
	case "/run":
		language, input, _ := strings.Cut(arg, " ")
		run, err := s.client.RunCode(ctx, s.room, chat.Language(language), "", input)
		if err != nil {
			return err
		}
		color.Info.Println(run.Output)
		return nil
	default:
		if s.room == "" {
			return fmt.Errorf("open a room with /room <id> before posting")
		}
		_, err := s.client.PostMessage(ctx, s.room, line)
		return err
	}
}

func (s *session) render(state rpc.WatchedState) {
	s.log.Debug("State received", "topic", state.Filter.Topic(), "generation", state.Generation, "status", state.Status)
	header := fmt.Sprintf("== %s (generation %d) %s ==", state.Filter.Topic(), state.Generation, state.Status)
	switch state.Status {
	case feed.Error:
		color.Error.Println(header)
		color.Error.Println(state.Reason + " (type /retry)")
		return
	case feed.Loading:
		color.Comment.Println(header)
		return
	case feed.Closed:
		color.Comment.Println(header)
		return
	}
	color.Success.Println(header)
	if state.Filter.Collection == feed.Rooms {
		renderRooms(s.out, state.Items)
		return
	}
	renderMessages(s.out, state.Items)
}
