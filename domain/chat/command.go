package chat

import (
	"time"
)

type Command interface {
	RoomID() RoomID
}

type CreateRoomCommand struct {
	Name      string `validate:"required,max=100"`
	OwnerID   string `validate:"required"`
	CreatedAt time.Time
}

func (c CreateRoomCommand) RoomID() RoomID {
	return ""
}

type RenameRoomCommand struct {
	Room   RoomID `validate:"required"`
	UserID string `validate:"required"`
	Name   string `validate:"required,max=100"`
}

func (c RenameRoomCommand) RoomID() RoomID {
	return c.Room
}

type DeleteRoomCommand struct {
	Room   RoomID `validate:"required"`
	UserID string `validate:"required"`
}

func (c DeleteRoomCommand) RoomID() RoomID {
	return c.Room
}

type PostMessageCommand struct {
	Room      RoomID `validate:"required"`
	UserID    string `validate:"required"`
	Content   string `validate:"required"`
	CreatedAt time.Time
}

func (p PostMessageCommand) RoomID() RoomID {
	return p.Room
}

type EditMessageCommand struct {
	Room      RoomID `validate:"required"`
	MessageID string `validate:"required,uuid"`
	UserID    string `validate:"required"`
	Content   string `validate:"required"`
}

func (p EditMessageCommand) RoomID() RoomID {
	return p.Room
}

type DeleteMessageCommand struct {
	Room      RoomID `validate:"required"`
	MessageID string `validate:"required,uuid"`
	UserID    string `validate:"required"`
}

func (p DeleteMessageCommand) RoomID() RoomID {
	return p.Room
}

type GetMessageCommand struct {
	Room   RoomID
	Cursor *string
}

func (p GetMessageCommand) RoomID() RoomID {
	return p.Room
}

type SearchMessagesCommand struct {
	Room  RoomID `validate:"required"`
	Terms string `validate:"required,max=256"`
	Limit int    `validate:"gte=0,lte=100"`
}

func (p SearchMessagesCommand) RoomID() RoomID {
	return p.Room
}

type RunCodeCommand struct {
	Room     RoomID   `validate:"required"`
	UserID   string   `validate:"required"`
	Language Language `validate:"required"`
	Code     string   `validate:"required,max=65536"`
	Input    string   `validate:"max=65536"`
}

func (p RunCodeCommand) RoomID() RoomID {
	return p.Room
}
