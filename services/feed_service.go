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

	"github.com/samber/lo"
)

var _ contract.SnapshotFetcher = (*FeedService)(nil)

// FeedService reads the current content of a feed from storage.
type FeedService struct {
	log      *slog.Logger
	rooms    storage.IRoomRepository
	messages storage.IMessageRepository
}

func NewFeedService(log *slog.Logger, rooms storage.IRoomRepository, messages storage.IMessageRepository) *FeedService {
	return &FeedService{log: log, rooms: rooms, messages: messages}
}

// FetchSnapshot returns the items of a feed in storage order. A message feed
// of an unknown room is ErrNotFound.
func (s *FeedService) FetchSnapshot(ctx context.Context, filter feed.Filter) ([]feed.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch filter.Collection {
	case feed.Messages:
		room := chat.RoomID(filter.Key)
		if _, err := s.rooms.GetRoom(room); err != nil {
			return nil, err
		}
		messages, err := s.messages.ListMessages(room)
		if err != nil {
			return nil, err
		}
		return lo.Map(messages, func(m chat.Message, _ int) feed.Item { return m.ToItem() }), ctx.Err()
	case feed.Rooms:
		rooms, err := s.rooms.ListRoomsByOwner(filter.Key)
		if err != nil {
			return nil, err
		}
		return lo.Map(rooms, func(r chat.Room, _ int) feed.Item { return r.ToItem() }), ctx.Err()
	default:
		return nil, fmt.Errorf("%w: collection %q", errors.ErrNotFound, filter.Collection)
	}
}
