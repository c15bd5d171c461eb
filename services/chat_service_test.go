package services

import (
	"chatcode/domain/chat"
	"chatcode/errors"
	"chatcode/infrastructure/search"
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newChatService(t *testing.T, f fixture) *ChatService {
	return NewChatService(testLog, f.rooms, f.messages, f.index, newModerator(t), f.publisher, 200)
}

func TestChatService_PostMessage(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	svc := newChatService(t, f)
	var stored chat.Message

	// Given an existing room
	f.rooms.EXPECT().GetRoom(roomID).Return(testRoom, nil)
	f.messages.EXPECT().StoreMessage(gomock.Any()).DoAndReturn(func(m chat.Message) error {
		stored = m
		return nil
	})
	f.publisher.EXPECT().Publish(gomock.Any(), changeOn(chat.MessagesFilter(roomID), "inserted")).Return(nil)

	// When bob posts a message
	content := "Hello everyone, shall we start the pair programming session now?"
	msg, err := svc.PostMessage(context.Background(),
		chat.PostMessageCommand{Room: roomID, UserID: "bob", Content: "  " + content + "  "})
	req.NoError(err)

	// Then it is trimmed, attributed and stored as returned
	req.Equal(content, msg.Content)
	req.Equal("bob", msg.SenderID)
	req.Equal("en", msg.Lang)
	req.False(msg.Censored)
	req.Equal(msg, stored)
}

func TestDetectLanguage(t *testing.T) {
	testCases := []struct {
		name string
		text string
		lang string
	}{
		{name: "reliable english", text: "Hello everyone, shall we start the pair programming session now?", lang: "en"},
		{name: "unreliable detection", text: "The quick brown fox jumps over the lazy dog near the river bank", lang: ""},
		{name: "empty", text: "", lang: ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.lang, detectLanguage(tc.text))
		})
	}
}

func TestChatService_PostMessage_Censored(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	svc := newChatService(t, f)

	f.rooms.EXPECT().GetRoom(roomID).Return(testRoom, nil)
	f.messages.EXPECT().StoreMessage(gomock.Any()).Return(nil)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	msg, err := svc.PostMessage(context.Background(),
		chat.PostMessageCommand{Room: roomID, UserID: "bob", Content: "what a b4dg3r"})

	req.NoError(err)
	req.True(msg.Censored)
	req.Equal("what a ******", msg.Content)
}

func TestChatService_PostMessage_Rejected(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		setup   func(f fixture)
		err     error
	}{
		{name: "blank content", content: "   ", setup: func(fixture) {}, err: errors.ErrInvalidCommand},
		{name: "too long", content: strings.Repeat("x", 201), setup: func(fixture) {}, err: errors.ErrContentTooLong},
		{
			name:    "unknown room",
			content: "hello",
			setup: func(f fixture) {
				f.rooms.EXPECT().GetRoom(roomID).Return(chat.Room{}, errors.ErrNotFound)
			},
			err: errors.ErrNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			f := newFixture(t)
			svc := newChatService(t, f)
			tc.setup(f)

			_, err := svc.PostMessage(context.Background(),
				chat.PostMessageCommand{Room: roomID, UserID: "bob", Content: tc.content})

			req.ErrorIs(err, tc.err)
		})
	}
}

func TestChatService_EditMessage(t *testing.T) {
	original := chat.Message{ID: uuid.New(), Room: roomID, SenderID: "bob", Content: "helo", CreatedAt: testRoom.CreatedAt}

	t.Run("author edits in place", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		svc := newChatService(t, f)

		f.messages.EXPECT().GetMessage(roomID, original.ID).Return(original, nil)
		f.messages.EXPECT().UpdateMessage(gomock.Any()).Return(nil)
		f.publisher.EXPECT().Publish(gomock.Any(), changeOn(chat.MessagesFilter(roomID), "updated")).Return(nil)

		msg, err := svc.EditMessage(context.Background(), chat.EditMessageCommand{
			Room: roomID, MessageID: original.ID.String(), UserID: "bob", Content: "hello",
		})

		req.NoError(err)
		req.Equal("hello", msg.Content)
		req.True(msg.Edited)
		req.Equal(original.CreatedAt, msg.CreatedAt)
	})

	t.Run("another user is forbidden", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		svc := newChatService(t, f)

		f.messages.EXPECT().GetMessage(roomID, original.ID).Return(original, nil)

		_, err := svc.EditMessage(context.Background(), chat.EditMessageCommand{
			Room: roomID, MessageID: original.ID.String(), UserID: "mallory", Content: "hacked",
		})

		req.ErrorIs(err, errors.ErrForbidden)
	})

	t.Run("malformed id", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		svc := newChatService(t, f)

		_, err := svc.EditMessage(context.Background(), chat.EditMessageCommand{
			Room: roomID, MessageID: "not-a-uuid", UserID: "bob", Content: "hello",
		})

		req.ErrorIs(err, errors.ErrInvalidCommand)
	})
}

func TestChatService_DeleteMessage(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	svc := newChatService(t, f)
	message := chat.Message{ID: uuid.New(), Room: roomID, SenderID: "bob"}

	f.messages.EXPECT().GetMessage(roomID, message.ID).Return(message, nil)
	f.messages.EXPECT().DeleteMessage(roomID, message.ID).Return(nil)
	f.publisher.EXPECT().Publish(gomock.Any(), changeOn(chat.MessagesFilter(roomID), "deleted")).Return(nil)

	err := svc.DeleteMessage(context.Background(),
		chat.DeleteMessageCommand{Room: roomID, MessageID: message.ID.String(), UserID: "bob"})

	req.NoError(err)
}

func TestChatService_GetMessages(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	svc := newChatService(t, f)
	page := []chat.Message{{ID: uuid.New(), Room: roomID}}
	next := "cursor-2"

	f.rooms.EXPECT().GetRoom(roomID).Return(testRoom, nil)
	f.messages.EXPECT().GetMessages(roomID, nil).Return(page, &next, nil)

	messages, cursor, err := svc.GetMessages(chat.GetMessageCommand{Room: roomID})

	req.NoError(err)
	req.Equal(page, messages)
	req.Equal("cursor-2", *cursor)
}

func TestChatService_SearchMessages(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	svc := newChatService(t, f)
	found := chat.Message{ID: uuid.New(), Room: roomID, Content: "binary search tree"}
	gone := uuid.New()

	// Given the index knows a live message and a deleted one
	f.rooms.EXPECT().GetRoom(roomID).Return(testRoom, nil)
	f.index.EXPECT().Search(gomock.Any(), roomID, "search", defaultSearchLimit).Return([]search.Hit{
		{MessageID: gone.String(), Score: 2},
		{MessageID: found.ID.String(), Score: 1},
	}, nil)
	f.messages.EXPECT().GetMessage(roomID, gone).Return(chat.Message{}, errors.ErrNotFound)
	f.messages.EXPECT().GetMessage(roomID, found.ID).Return(found, nil)

	// When searching without a limit
	messages, err := svc.SearchMessages(context.Background(), chat.SearchMessagesCommand{Room: roomID, Terms: " search "})

	// Then only the live message is returned
	req.NoError(err)
	req.Equal([]chat.Message{found}, messages)
}

func TestChatService_SearchMessages_Invalid_Limit(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	svc := newChatService(t, f)

	_, err := svc.SearchMessages(context.Background(),
		chat.SearchMessagesCommand{Room: roomID, Terms: "tree", Limit: 1000})

	req.ErrorIs(err, errors.ErrInvalidCommand)
}
