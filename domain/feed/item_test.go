package feed

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCompare_Seq_Then_ID(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []Item{
		{ID: "b", Seq: at},
		{ID: "c", Seq: at.Add(-time.Second)},
		{ID: "a", Seq: at},
	}

	slices.SortFunc(items, Compare)

	req.Equal([]string{"c", "a", "b"}, State{Items: items}.IDs())
	req.Zero(Compare(items[0], items[0]))
}

func TestItem_Clone_Copies_Payload(t *testing.T) {
	item := Item{ID: "a", Payload: map[string]any{"content": "x"}}

	clone := item.Clone()
	clone.Payload["content"] = "y"

	require.Equal(t, "x", item.String("content"))
	require.Empty(t, item.String("missing"))
}

func TestFilter(t *testing.T) {
	req := require.New(t)

	req.True(Filter{}.IsZero())
	req.False(NewFilter(Messages, "room-1").IsZero())
	req.Equal("messages:room-1", NewFilter(Messages, "room-1").Topic())
}

func TestState_Reason(t *testing.T) {
	require.Empty(t, State{Status: Ready}.Reason())
	require.Equal(t, "timeout", State{Status: Error, Cause: errors.New("timeout")}.Reason())
}

func TestKind(t *testing.T) {
	require.Equal(t, "deleted", Kind(Deleted{ID: "a"}))
}
