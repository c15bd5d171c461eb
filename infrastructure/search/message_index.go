//go:generate go run go.uber.org/mock/mockgen -source=message_index.go -destination=../../mocks/mock_message_index.go -package=mocks
package search

import (
	"chatcode/contract"
	"chatcode/domain/chat"
	"chatcode/domain/feed"
	"context"
	"fmt"
	"log/slog"

	"github.com/blugelabs/bluge"
	blugesearch "github.com/blugelabs/bluge/search"
)

const (
	fieldContent   = "content"
	fieldRoom      = "room_id"
	fieldAuthor    = "author"
	fieldCreatedAt = "created_at"
)

type IMessageIndex interface {
	Search(ctx context.Context, room chat.RoomID, terms string, limit int) ([]Hit, error)
}

// Hit is one matching message, best score first.
type Hit struct {
	MessageID string
	Score     float64
}

var _ contract.EventSink = (*MessageIndex)(nil)

// MessageIndex keeps a full-text index of chat messages. It is fed as a
// permanent sink of the change fanout, so it follows inserts, edits and deletes.
type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger) *MessageIndex {
	return &MessageIndex{writer: writer, log: log}
}

// Consume indexes message items. Items of other collections carry no room and are skipped.
// A dropped room loses all its documents.
func (i *MessageIndex) Consume(ctx context.Context, e feed.ChangeEvent) error {
	switch evt := e.(type) {
	case feed.Inserted:
		return i.index(evt.Item)
	case feed.Updated:
		return i.index(evt.Item)
	case feed.Deleted:
		return i.writer.Delete(bluge.Identifier(evt.ID))
	case feed.Dropped:
		return i.drop(ctx, evt.Key)
	default:
		return nil
	}
}

func (i *MessageIndex) index(item feed.Item) error {
	room := item.String(fieldRoom)
	if room == "" {
		return nil
	}
	doc := bluge.NewDocument(item.ID).
		AddField(bluge.NewTextField(fieldContent, item.String(fieldContent))).
		AddField(bluge.NewKeywordField(fieldRoom, room)).
		AddField(bluge.NewKeywordField(fieldAuthor, item.String(fieldAuthor)).StoreValue()).
		AddField(bluge.NewDateTimeField(fieldCreatedAt, item.Seq).StoreValue())
	if err := i.writer.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("index message %s: %w", item.ID, err)
	}
	return nil
}

func (i *MessageIndex) drop(ctx context.Context, room string) error {
	reader, err := i.writer.Reader()
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	request := bluge.NewAllMatches(bluge.NewTermQuery(room).SetField(fieldRoom))
	matches, err := reader.Search(ctx, request)
	if err != nil {
		return err
	}
	batch := bluge.NewBatch()
	dropped := 0
	err = visit(matches, func(hit Hit) {
		batch.Delete(bluge.Identifier(hit.MessageID))
		dropped++
	})
	if err != nil {
		return err
	}
	if dropped == 0 {
		return nil
	}
	if err := i.writer.Batch(batch); err != nil {
		return fmt.Errorf("drop room %s: %w", room, err)
	}
	i.log.Debug("Room dropped from index", "room", room, "messages", dropped)
	return nil
}

// Search matches terms against the content of a room's messages.
func (i *MessageIndex) Search(ctx context.Context, room chat.RoomID, terms string, limit int) ([]Hit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(terms).SetField(fieldContent)).
		AddMust(bluge.NewTermQuery(string(room)).SetField(fieldRoom))
	request := bluge.NewTopNSearch(limit, query)

	matches, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var hits []Hit
	if err := visit(matches, func(hit Hit) { hits = append(hits, hit) }); err != nil {
		return nil, err
	}
	i.log.Debug("Message search", "room", room, "terms", terms, "hits", len(hits))
	return hits, nil
}

func visit(matches blugesearch.DocumentMatchIterator, fn func(Hit)) error {
	match, err := matches.Next()
	for err == nil && match != nil {
		hit := Hit{Score: match.Score}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				hit.MessageID = string(value)
			}
			return true
		})
		if err != nil {
			return err
		}
		fn(hit)
		match, err = matches.Next()
	}
	return err
}
