package services

import (
	"chatcode/contract"
	"chatcode/domain/chat"
	"chatcode/domain/feed"
	"chatcode/errors"
	"chatcode/infrastructure/search"
	"chatcode/infrastructure/storage"
	"chatcode/moderation"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const defaultSearchLimit = 20

type IChatService interface {
	PostMessage(ctx context.Context, cmd chat.PostMessageCommand) (chat.Message, error)
	EditMessage(ctx context.Context, cmd chat.EditMessageCommand) (chat.Message, error)
	DeleteMessage(ctx context.Context, cmd chat.DeleteMessageCommand) error
	GetMessages(cmd chat.GetMessageCommand) ([]chat.Message, *string, error)
	SearchMessages(ctx context.Context, cmd chat.SearchMessagesCommand) ([]chat.Message, error)
}

type ChatService struct {
	log              *slog.Logger
	validator        *validator.Validate
	rooms            storage.IRoomRepository
	messages         storage.IMessageRepository
	index            search.IMessageIndex
	moderator        *moderation.Moderator
	publisher        contract.Publisher
	maxContentLength int
}

func NewChatService(log *slog.Logger, rooms storage.IRoomRepository,
	messages storage.IMessageRepository, index search.IMessageIndex,
	moderator *moderation.Moderator, publisher contract.Publisher, maxContentLength int) *ChatService {
	return &ChatService{
		log:              log,
		validator:        validator.New(),
		rooms:            rooms,
		messages:         messages,
		index:            index,
		moderator:        moderator,
		publisher:        publisher,
		maxContentLength: maxContentLength,
	}
}

// PostMessage moderates, stores and publishes a message in an existing room.
func (s *ChatService) PostMessage(ctx context.Context, cmd chat.PostMessageCommand) (chat.Message, error) {
	cmd.Content = strings.TrimSpace(cmd.Content)
	if err := s.check(cmd, cmd.Content); err != nil {
		return chat.Message{}, err
	}
	if _, err := s.rooms.GetRoom(cmd.Room); err != nil {
		return chat.Message{}, err
	}
	if cmd.CreatedAt.IsZero() {
		cmd.CreatedAt = time.Now().UTC()
	}

	content, censored := s.sanitize(cmd.Content)
	message := chat.Message{
		ID:        uuid.New(),
		Room:      cmd.Room,
		SenderID:  cmd.UserID,
		Content:   content,
		Lang:      detectLanguage(cmd.Content),
		Censored:  censored,
		CreatedAt: cmd.CreatedAt,
	}
	if err := s.messages.StoreMessage(message); err != nil {
		return chat.Message{}, err
	}
	s.publish(ctx, message.Room, feed.Inserted{Item: message.ToItem()})
	return message, nil
}

// EditMessage replaces the content of a message. Only its author may edit it.
func (s *ChatService) EditMessage(ctx context.Context, cmd chat.EditMessageCommand) (chat.Message, error) {
	cmd.Content = strings.TrimSpace(cmd.Content)
	if err := s.check(cmd, cmd.Content); err != nil {
		return chat.Message{}, err
	}
	message, err := s.authored(cmd.Room, cmd.MessageID, cmd.UserID)
	if err != nil {
		return chat.Message{}, err
	}

	message.Content, message.Censored = s.sanitize(cmd.Content)
	message.Lang = detectLanguage(cmd.Content)
	message.Edited = true
	if err := s.messages.UpdateMessage(message); err != nil {
		return chat.Message{}, err
	}
	s.publish(ctx, message.Room, feed.Updated{Item: message.ToItem()})
	return message, nil
}

// DeleteMessage removes a message. Only its author may delete it.
func (s *ChatService) DeleteMessage(ctx context.Context, cmd chat.DeleteMessageCommand) error {
	if err := s.validator.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidCommand, err)
	}
	message, err := s.authored(cmd.Room, cmd.MessageID, cmd.UserID)
	if err != nil {
		return err
	}
	if err := s.messages.DeleteMessage(message.Room, message.ID); err != nil {
		return err
	}
	s.publish(ctx, message.Room, feed.Deleted{ID: message.ID.String()})
	return nil
}

// GetMessages returns one page of history, newest first.
func (s *ChatService) GetMessages(cmd chat.GetMessageCommand) ([]chat.Message, *string, error) {
	if _, err := s.rooms.GetRoom(cmd.Room); err != nil {
		return nil, nil, err
	}
	return s.messages.GetMessages(cmd.Room, cmd.Cursor)
}

// SearchMessages runs a full-text search in one room. Hits whose message is
// gone are skipped.
func (s *ChatService) SearchMessages(ctx context.Context, cmd chat.SearchMessagesCommand) ([]chat.Message, error) {
	cmd.Terms = strings.TrimSpace(cmd.Terms)
	if err := s.validator.Struct(cmd); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidCommand, err)
	}
	if _, err := s.rooms.GetRoom(cmd.Room); err != nil {
		return nil, err
	}
	limit := cmd.Limit
	if limit == 0 {
		limit = defaultSearchLimit
	}
	hits, err := s.index.Search(ctx, cmd.Room, cmd.Terms, limit)
	if err != nil {
		return nil, err
	}

	messages := make([]chat.Message, 0, len(hits))
	for _, hit := range hits {
		id, err := uuid.Parse(hit.MessageID)
		if err != nil {
			s.log.Warn("Invalid message id in index", "id", hit.MessageID)
			continue
		}
		message, err := s.messages.GetMessage(cmd.Room, id)
		if stderrors.Is(err, errors.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

func (s *ChatService) check(cmd any, content string) error {
	if err := s.validator.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidCommand, err)
	}
	if n := utf8.RuneCountInString(content); n > s.maxContentLength {
		return fmt.Errorf("%w: %d > %d", errors.ErrContentTooLong, n, s.maxContentLength)
	}
	return nil
}

func (s *ChatService) authored(room chat.RoomID, messageID, userID string) (chat.Message, error) {
	id, err := uuid.Parse(messageID)
	if err != nil {
		return chat.Message{}, fmt.Errorf("%w: %v", errors.ErrInvalidCommand, err)
	}
	message, err := s.messages.GetMessage(room, id)
	if err != nil {
		return chat.Message{}, err
	}
	if message.SenderID != userID {
		return chat.Message{}, fmt.Errorf("%w: message %s belongs to another user", errors.ErrForbidden, id)
	}
	return message, nil
}

func (s *ChatService) sanitize(content string) (string, bool) {
	sanitized, found := s.moderator.Censor(content)
	if len(found) > 0 {
		s.log.Debug("Message censored", "words", len(found))
	}
	return sanitized, len(found) > 0
}

func (s *ChatService) publish(ctx context.Context, room chat.RoomID, evt feed.ChangeEvent) {
	filter := chat.MessagesFilter(room)
	if err := s.publisher.Publish(ctx, feed.Change{Filter: filter, Event: evt}); err != nil {
		s.log.Warn("Change not published", "topic", filter.Topic(), "error", err)
	}
}

// detectLanguage returns the ISO 639-1 code of the text, empty when unreliable.
func detectLanguage(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
