//go:generate go run go.uber.org/mock/mockgen -source=message_repository.go -destination=../../mocks/mock_message_repository.go -package=mocks
package storage

import (
	"chatcode/domain/chat"
	"chatcode/errors"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IMessageRepository interface {
	StoreMessage(message chat.Message) error
	UpdateMessage(message chat.Message) error
	DeleteMessage(room chat.RoomID, id uuid.UUID) error
	GetMessage(room chat.RoomID, id uuid.UUID) (chat.Message, error)
	GetMessages(room chat.RoomID, cursor *string) ([]chat.Message, *string, error)
	ListMessages(room chat.RoomID) ([]chat.Message, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) *MessageRepository {
	return &MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

func messagePrefix(room chat.RoomID) []byte {
	return []byte(fmt.Sprintf("msg:%s:", room))
}

func messageIDPrefix(room chat.RoomID) []byte {
	return []byte(fmt.Sprintf("msgid:%s:", room))
}

// messageKey is "msg:{room_id}:{timestamp_padded}:{uuid}". The 19 digit padding
// keeps lexicographic order chronological, the uuid separates messages sharing
// the same nanosecond.
func messageKey(message chat.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%s:%s", message.Room, seqKey(message.CreatedAt), message.ID))
}

// messageIDKey points from a message id to its ordered key.
func messageIDKey(room chat.RoomID, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msgid:%s:%s", room, id))
}

func (m *MessageRepository) StoreMessage(message chat.Message) error {
	data, err := encodeMessage(message)
	if err != nil {
		return err
	}
	key := messageKey(message)
	return m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(messageIDKey(message.Room, message.ID), key)
	})
}

// UpdateMessage rewrites a stored message. Its creation time, hence its key, never changes.
func (m *MessageRepository) UpdateMessage(message chat.Message) error {
	data, err := encodeMessage(message)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		key, err := lookupMessageKey(txn, message.Room, message.ID)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

func (m *MessageRepository) DeleteMessage(room chat.RoomID, id uuid.UUID) error {
	return m.db.Update(func(txn *badger.Txn) error {
		key, err := lookupMessageKey(txn, room, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		return txn.Delete(messageIDKey(room, id))
	})
}

func (m *MessageRepository) GetMessage(room chat.RoomID, id uuid.UUID) (chat.Message, error) {
	var message chat.Message
	err := m.db.View(func(txn *badger.Txn) error {
		key, err := lookupMessageKey(txn, room, id)
		if err != nil {
			return err
		}
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			message, err = decodeMessage(val)
			return err
		})
	})
	return message, err
}

// GetMessages pages backward through a room's history, newest first.
// The returned cursor is the key suffix of the last message read and resumes
// right after it. At most limitMessages are returned per page.
func (m *MessageRepository) GetMessages(room chat.RoomID, cursor *string) ([]chat.Message, *string, error) {
	var messages []chat.Message
	var lastKey string
	prefix := messagePrefix(room)
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append([]byte{}, prefix...)
		if cursor == nil {
			seekKey = append(seekKey, []byte("9999999999999999999")...)
		} else {
			seekKey = append(seekKey, []byte(*cursor)...)
		}

		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()[len(prefix):]) == *cursor {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(messages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefix):])
			err := item.Value(func(val []byte) error {
				message, err := decodeMessage(val)
				messages = append(messages, message)
				return err
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return messages, &lastKey, nil
}

// ListMessages returns the whole history of a room, oldest first.
func (m *MessageRepository) ListMessages(room chat.RoomID) ([]chat.Message, error) {
	var messages []chat.Message
	prefix := messagePrefix(room)
	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				message, err := decodeMessage(val)
				messages = append(messages, message)
				return err
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return messages, err
}

func lookupMessageKey(txn *badger.Txn, room chat.RoomID, id uuid.UUID) ([]byte, error) {
	item, err := txn.Get(messageIDKey(room, id))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: message %s", errors.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func encodeMessage(message chat.Message) ([]byte, error) {
	return encode(map[string]any{
		"id":         message.ID.String(),
		"room_id":    string(message.Room),
		"author":     message.SenderID,
		"content":    message.Content,
		"lang":       message.Lang,
		"censored":   message.Censored,
		"edited":     message.Edited,
		"created_at": formatTime(message.CreatedAt),
	})
}

func decodeMessage(data []byte) (chat.Message, error) {
	rec, err := decode(data)
	if err != nil {
		return chat.Message{}, err
	}
	id, err := uuid.Parse(rec.string("id"))
	if err != nil {
		return chat.Message{}, err
	}
	createdAt, err := rec.time("created_at")
	if err != nil {
		return chat.Message{}, err
	}
	return chat.Message{
		ID:        id,
		Room:      chat.RoomID(rec.string("room_id")),
		SenderID:  rec.string("author"),
		Content:   rec.string("content"),
		Lang:      rec.string("lang"),
		Censored:  rec.bool("censored"),
		Edited:    rec.bool("edited"),
		CreatedAt: createdAt,
	}, nil
}
