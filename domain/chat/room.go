package chat

import (
	"chatcode/domain/feed"
	"time"
)

type RoomID string

type Room struct {
	ID        RoomID
	Name      string
	OwnerID   string
	CreatedAt time.Time
}

// ToItem projects the room into the owner's room list feed.
func (r Room) ToItem() feed.Item {
	return feed.Item{
		ID:  string(r.ID),
		Seq: r.CreatedAt,
		Payload: map[string]any{
			"name":     r.Name,
			"owner_id": r.OwnerID,
		},
	}
}

func RoomFromItem(item feed.Item) Room {
	return Room{
		ID:        RoomID(item.ID),
		Name:      item.String("name"),
		OwnerID:   item.String("owner_id"),
		CreatedAt: item.Seq,
	}
}

func RoomsFilter(ownerID string) feed.Filter {
	return feed.NewFilter(feed.Rooms, ownerID)
}
