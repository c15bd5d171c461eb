// Package feed contains the types shared by every live feed: items, filters,
// change events and the materialized state handed to consumers.
package feed

import (
	"fmt"
	"maps"
	"time"
)

type Collection string

const (
	Messages Collection = "messages"
	Rooms    Collection = "rooms"
)

// Filter selects the slice of a collection a feed follows.
// Messages are keyed by room id, rooms by owner id.
type Filter struct {
	Collection Collection
	Key        string
}

func NewFilter(collection Collection, key string) Filter {
	return Filter{Collection: collection, Key: key}
}

func (f Filter) Topic() string {
	return fmt.Sprintf("%s:%s", f.Collection, f.Key)
}

func (f Filter) IsZero() bool {
	return f.Collection == "" && f.Key == ""
}

// Item is one entry of a feed. ID is unique within a feed, Seq is the
// creation timestamp used for ordering.
type Item struct {
	ID      string
	Seq     time.Time
	Payload map[string]any
}

// Less orders items by Seq then ID, so equal timestamps stay deterministic.
func Less(a, b Item) bool {
	if !a.Seq.Equal(b.Seq) {
		return a.Seq.Before(b.Seq)
	}
	return a.ID < b.ID
}

// Compare is the three-way variant of Less, usable with slices.SortFunc.
func Compare(a, b Item) int {
	switch {
	case Less(a, b):
		return -1
	case Less(b, a):
		return 1
	default:
		return 0
	}
}

func (i Item) Clone() Item {
	return Item{ID: i.ID, Seq: i.Seq, Payload: maps.Clone(i.Payload)}
}

func (i Item) String(key string) string {
	v, _ := i.Payload[key].(string)
	return v
}
