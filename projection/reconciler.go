// Package projection builds local timelines from observed events.
// Handles ordering, deduplication, and projections.
// Does not emit events or interact with UI directly.
package projection

import (
	"chatcode/domain/feed"
	"chatcode/errors"
	"fmt"
	"log/slog"
	"slices"
)

// Reconciler merges one snapshot with an unbounded stream of change events
// into a single ordered, de-duplicated timeline.
//
// It is not safe for concurrent use: the owning feed view drives it from a
// single goroutine.
type Reconciler struct {
	log     *slog.Logger
	status  feed.Status
	cause   error
	items   []feed.Item          // sorted by (Seq, ID)
	byID    map[string]feed.Item // current version of every item in items
	pending []feed.ChangeEvent   // received while Loading, replayed after the snapshot
}

func NewReconciler(log *slog.Logger) *Reconciler {
	return &Reconciler{
		log:    log,
		status: feed.Loading,
		byID:   make(map[string]feed.Item),
	}
}

func (r *Reconciler) Status() feed.Status {
	return r.status
}

// Pending returns the number of events buffered while waiting for the snapshot.
func (r *Reconciler) Pending() int {
	return len(r.pending)
}

// ApplySnapshot initializes the timeline and replays, in arrival order,
// the events received before the snapshot completed.
// A snapshot arriving while the reconciler is not Loading is ignored.
func (r *Reconciler) ApplySnapshot(items []feed.Item) {
	if r.status != feed.Loading {
		r.log.Debug("Snapshot ignored", "status", r.status)
		return
	}

	r.items = make([]feed.Item, 0, len(items))
	clear(r.byID)
	for _, item := range items {
		if item.ID == "" {
			r.log.Warn(errors.ErrIntegrity.Error(), "reason", "snapshot item without identifier")
			continue
		}
		if _, ok := r.byID[item.ID]; ok {
			r.log.Debug("Duplicate snapshot item", "id", item.ID)
			continue
		}
		r.byID[item.ID] = item
		r.items = append(r.items, item)
	}
	slices.SortFunc(r.items, feed.Compare)
	r.status = feed.Ready

	pending := r.pending
	r.pending = nil
	for _, evt := range pending {
		r.apply(evt)
	}
}

// Fail moves the feed to Error. Further events are dropped until Reset.
func (r *Reconciler) Fail(err error) {
	r.status = feed.Error
	r.cause = err
	r.pending = nil
}

// Reset empties the timeline and waits for a new snapshot.
func (r *Reconciler) Reset() {
	r.status = feed.Loading
	r.cause = nil
	r.items = nil
	r.pending = nil
	clear(r.byID)
}

// Apply merges one change event. Applying the same event twice leaves the
// timeline unchanged. Dropped fails the feed whatever its status.
func (r *Reconciler) Apply(evt feed.ChangeEvent) {
	if dropped, ok := evt.(feed.Dropped); ok && dropped.Key != "" {
		r.log.Debug("Feed dropped", "key", dropped.Key, "status", r.status)
		r.Fail(fmt.Errorf("%w: %s", errors.ErrNotFound, dropped.Key))
		return
	}
	if evt == nil || evt.ItemID() == "" {
		r.log.Warn(errors.ErrIntegrity.Error(), "reason", "event without identifier", "kind", kindOf(evt))
		return
	}
	switch r.status {
	case feed.Loading:
		r.pending = append(r.pending, evt)
	case feed.Ready:
		r.apply(evt)
	default:
		r.log.Debug("Event dropped, feed in error", "id", evt.ItemID())
	}
}

func (r *Reconciler) apply(evt feed.ChangeEvent) {
	switch e := evt.(type) {
	case feed.Inserted:
		if _, ok := r.byID[e.Item.ID]; ok {
			return
		}
		r.insert(e.Item)
	case feed.Updated:
		current, ok := r.byID[e.Item.ID]
		if !ok {
			r.insert(e.Item)
			return
		}
		if current.Seq.Equal(e.Item.Seq) {
			r.items[r.position(current)] = e.Item
			r.byID[e.Item.ID] = e.Item
			return
		}
		// The sequence key moved: reposition to keep the order invariant.
		r.remove(current)
		r.insert(e.Item)
	case feed.Deleted:
		current, ok := r.byID[e.ID]
		if !ok {
			return
		}
		r.remove(current)
	default:
		r.log.Warn(errors.ErrIntegrity.Error(), "reason", fmt.Sprintf("unknown event %T", evt))
	}
}

func (r *Reconciler) insert(item feed.Item) {
	idx, _ := slices.BinarySearchFunc(r.items, item, feed.Compare)
	r.items = slices.Insert(r.items, idx, item)
	r.byID[item.ID] = item
}

func (r *Reconciler) remove(item feed.Item) {
	idx := r.position(item)
	r.items = slices.Delete(r.items, idx, idx+1)
	delete(r.byID, item.ID)
}

// position of an item known to be present.
func (r *Reconciler) position(item feed.Item) int {
	idx, _ := slices.BinarySearchFunc(r.items, item, feed.Compare)
	return idx
}

// Snapshot returns a copy of the current timeline that callers may keep.
func (r *Reconciler) Snapshot(filter feed.Filter, generation uint64) feed.State {
	state := feed.State{
		Filter:     filter,
		Generation: generation,
		Status:     r.status,
		Cause:      r.cause,
	}
	if r.status == feed.Ready {
		state.Items = make([]feed.Item, len(r.items))
		for i, item := range r.items {
			state.Items[i] = item.Clone()
		}
	}
	return state
}

func kindOf(evt feed.ChangeEvent) string {
	if evt == nil {
		return "nil"
	}
	return feed.Kind(evt)
}
