package services

import (
	"chatcode/contract"
	"chatcode/domain/chat"
	"chatcode/domain/feed"
	"chatcode/errors"
	"chatcode/infrastructure/storage"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type IRoomService interface {
	CreateRoom(ctx context.Context, cmd chat.CreateRoomCommand) (chat.Room, error)
	JoinRoom(ctx context.Context, id chat.RoomID) (chat.Room, error)
	RenameRoom(ctx context.Context, cmd chat.RenameRoomCommand) (chat.Room, error)
	DeleteRoom(ctx context.Context, cmd chat.DeleteRoomCommand) error
}

type RoomService struct {
	log       *slog.Logger
	validator *validator.Validate
	rooms     storage.IRoomRepository
	messages  storage.IMessageRepository
	publisher contract.Publisher
}

func NewRoomService(log *slog.Logger, rooms storage.IRoomRepository,
	messages storage.IMessageRepository, publisher contract.Publisher) *RoomService {
	return &RoomService{
		log:       log,
		validator: validator.New(),
		rooms:     rooms,
		messages:  messages,
		publisher: publisher,
	}
}

// CreateRoom stores a new room owned by the caller and greets it with a
// system message.
func (s *RoomService) CreateRoom(ctx context.Context, cmd chat.CreateRoomCommand) (chat.Room, error) {
	cmd.Name = strings.TrimSpace(cmd.Name)
	if err := s.validator.Struct(cmd); err != nil {
		return chat.Room{}, fmt.Errorf("%w: %v", errors.ErrInvalidCommand, err)
	}
	if cmd.CreatedAt.IsZero() {
		cmd.CreatedAt = time.Now().UTC()
	}
	room := chat.Room{
		ID:        chat.RoomID(uuid.NewString()),
		Name:      cmd.Name,
		OwnerID:   cmd.OwnerID,
		CreatedAt: cmd.CreatedAt,
	}
	if err := s.rooms.CreateRoom(room); err != nil {
		return chat.Room{}, err
	}
	s.publish(ctx, chat.RoomsFilter(room.OwnerID), feed.Inserted{Item: room.ToItem()})

	welcome := chat.Message{
		ID:        uuid.New(),
		Room:      room.ID,
		SenderID:  chat.SystemAuthor,
		Content:   chat.WelcomeMessage,
		Lang:      "en",
		CreatedAt: room.CreatedAt,
	}
	if err := s.messages.StoreMessage(welcome); err != nil {
		s.log.Warn("Welcome message not stored", "room", room.ID, "error", err)
	} else {
		s.publish(ctx, chat.MessagesFilter(room.ID), feed.Inserted{Item: welcome.ToItem()})
	}

	s.log.Info("Room created", "room", room.ID, "owner", room.OwnerID)
	return room, nil
}

// JoinRoom checks the room exists. Following its messages is up to a feed view.
func (s *RoomService) JoinRoom(_ context.Context, id chat.RoomID) (chat.Room, error) {
	if id == "" {
		return chat.Room{}, fmt.Errorf("%w: empty room id", errors.ErrInvalidCommand)
	}
	return s.rooms.GetRoom(id)
}

func (s *RoomService) RenameRoom(ctx context.Context, cmd chat.RenameRoomCommand) (chat.Room, error) {
	cmd.Name = strings.TrimSpace(cmd.Name)
	if err := s.validator.Struct(cmd); err != nil {
		return chat.Room{}, fmt.Errorf("%w: %v", errors.ErrInvalidCommand, err)
	}
	if err := s.checkOwner(cmd.Room, cmd.UserID); err != nil {
		return chat.Room{}, err
	}
	room, err := s.rooms.RenameRoom(cmd.Room, cmd.Name)
	if err != nil {
		return chat.Room{}, err
	}
	s.publish(ctx, chat.RoomsFilter(room.OwnerID), feed.Updated{Item: room.ToItem()})
	return room, nil
}

func (s *RoomService) DeleteRoom(ctx context.Context, cmd chat.DeleteRoomCommand) error {
	if err := s.validator.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidCommand, err)
	}
	if err := s.checkOwner(cmd.Room, cmd.UserID); err != nil {
		return err
	}
	if err := s.rooms.DeleteRoom(cmd.Room); err != nil {
		return err
	}
	s.publish(ctx, chat.RoomsFilter(cmd.UserID), feed.Deleted{ID: string(cmd.Room)})
	s.publish(ctx, chat.MessagesFilter(cmd.Room), feed.Dropped{Key: string(cmd.Room)})
	s.log.Info("Room deleted", "room", cmd.Room)
	return nil
}

func (s *RoomService) checkOwner(id chat.RoomID, userID string) error {
	room, err := s.rooms.GetRoom(id)
	if err != nil {
		return err
	}
	if room.OwnerID != userID {
		return fmt.Errorf("%w: room %s is owned by another user", errors.ErrForbidden, id)
	}
	return nil
}

// publish failures are logged only: the write is already durable and feeds
// catch up on their next snapshot.
func (s *RoomService) publish(ctx context.Context, filter feed.Filter, evt feed.ChangeEvent) {
	if err := s.publisher.Publish(ctx, feed.Change{Filter: filter, Event: evt}); err != nil {
		s.log.Warn("Change not published", "topic", filter.Topic(), "error", err)
	}
}
