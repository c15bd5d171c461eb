//go:generate go run go.uber.org/mock/mockgen -source=room_repository.go -destination=../../mocks/mock_room_repository.go -package=mocks
package storage

import (
	"chatcode/domain/chat"
	"chatcode/errors"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

type IRoomRepository interface {
	CreateRoom(room chat.Room) error
	GetRoom(id chat.RoomID) (chat.Room, error)
	RenameRoom(id chat.RoomID, name string) (chat.Room, error)
	DeleteRoom(id chat.RoomID) error
	ListRoomsByOwner(ownerID string) ([]chat.Room, error)
}

type RoomRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewRoomRepository(db *badger.DB, log *slog.Logger) *RoomRepository {
	return &RoomRepository{db: db, log: log}
}

func roomKey(id chat.RoomID) []byte {
	return []byte(fmt.Sprintf("room:%s", id))
}

// ownerKey indexes a room under its owner, "owner:{owner_id}:{created_padded}:{room_id}",
// so the owner's rooms come back in creation order.
func ownerKey(room chat.Room) []byte {
	return []byte(fmt.Sprintf("owner:%s:%s:%s", room.OwnerID, seqKey(room.CreatedAt), room.ID))
}

func (r *RoomRepository) CreateRoom(room chat.Room) error {
	data, err := encodeRoom(room)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(roomKey(room.ID), data); err != nil {
			return err
		}
		return txn.Set(ownerKey(room), nil)
	})
}

// GetRoom returns ErrNotFound for an unknown id.
func (r *RoomRepository) GetRoom(id chat.RoomID) (chat.Room, error) {
	var room chat.Room
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		room, err = getRoom(txn, id)
		return err
	})
	return room, err
}

func (r *RoomRepository) RenameRoom(id chat.RoomID, name string) (chat.Room, error) {
	var room chat.Room
	err := r.db.Update(func(txn *badger.Txn) error {
		var err error
		if room, err = getRoom(txn, id); err != nil {
			return err
		}
		room.Name = name
		data, err := encodeRoom(room)
		if err != nil {
			return err
		}
		return txn.Set(roomKey(id), data)
	})
	return room, err
}

// DeleteRoom removes the room, its owner index entry and every message it holds.
func (r *RoomRepository) DeleteRoom(id chat.RoomID) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		room, err := getRoom(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(roomKey(id)); err != nil {
			return err
		}
		return txn.Delete(ownerKey(room))
	})
	if err != nil {
		return err
	}
	if err := r.db.DropPrefix(messagePrefix(id), messageIDPrefix(id)); err != nil {
		return fmt.Errorf("drop messages of room %s: %w", id, err)
	}
	r.log.Debug("Room deleted", "room", id)
	return nil
}

// ListRoomsByOwner returns the owner's rooms, oldest first.
func (r *RoomRepository) ListRoomsByOwner(ownerID string) ([]chat.Room, error) {
	var rooms []chat.Room
	prefix := []byte(fmt.Sprintf("owner:%s:", ownerID))
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			// the room id is the last segment
			id := chat.RoomID(key[len(prefix)+20:])
			room, err := getRoom(txn, id)
			if err != nil {
				if stderrors.Is(err, errors.ErrNotFound) {
					r.log.Warn("Dangling owner index", "key", key)
					continue
				}
				return err
			}
			rooms = append(rooms, room)
		}
		return nil
	})
	return rooms, err
}

func getRoom(txn *badger.Txn, id chat.RoomID) (chat.Room, error) {
	item, err := txn.Get(roomKey(id))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return chat.Room{}, fmt.Errorf("%w: room %s", errors.ErrNotFound, id)
	}
	if err != nil {
		return chat.Room{}, err
	}
	var room chat.Room
	err = item.Value(func(val []byte) error {
		room, err = decodeRoom(val)
		return err
	})
	return room, err
}

func encodeRoom(room chat.Room) ([]byte, error) {
	return encode(map[string]any{
		"id":         string(room.ID),
		"name":       room.Name,
		"owner_id":   room.OwnerID,
		"created_at": formatTime(room.CreatedAt),
	})
}

func decodeRoom(data []byte) (chat.Room, error) {
	rec, err := decode(data)
	if err != nil {
		return chat.Room{}, err
	}
	createdAt, err := rec.time("created_at")
	if err != nil {
		return chat.Room{}, err
	}
	return chat.Room{
		ID:        chat.RoomID(rec.string("id")),
		Name:      rec.string("name"),
		OwnerID:   rec.string("owner_id"),
		CreatedAt: createdAt,
	}, nil
}
