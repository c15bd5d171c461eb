// Package chat contains the rooms, messages and code runs of the collaborative
// coding rooms. Messages are validated here and projected into feeds.
package chat

import (
	"chatcode/domain/feed"
	"time"

	"github.com/google/uuid"
)

// SystemAuthor signs the messages the service posts on its own.
const SystemAuthor = "System"

const WelcomeMessage = "Welcome to the room! You can collaborate on code and chat here."

// Message represents a chat message posted in a room.
type Message struct {
	ID        uuid.UUID
	Room      RoomID
	SenderID  string
	Content   string
	Lang      string
	Censored  bool
	Edited    bool
	CreatedAt time.Time
}

func (m Message) ToItem() feed.Item {
	return feed.Item{
		ID:  m.ID.String(),
		Seq: m.CreatedAt,
		Payload: map[string]any{
			"room_id":  string(m.Room),
			"author":   m.SenderID,
			"content":  m.Content,
			"lang":     m.Lang,
			"censored": m.Censored,
			"edited":   m.Edited,
		},
	}
}

func MessagesFilter(room RoomID) feed.Filter {
	return feed.NewFilter(feed.Messages, string(room))
}
