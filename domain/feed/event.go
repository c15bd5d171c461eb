package feed

// ChangeEvent is a mutation notification delivered by a change source.
// The set of implementations is closed: Inserted, Updated, Deleted and Dropped.
type ChangeEvent interface {
	ItemID() string
	isChange()
}

type Inserted struct {
	Item Item
}

type Updated struct {
	Item Item
}

type Deleted struct {
	ID string
}

// Dropped reports that the whole slice keyed by Key is gone, such as the
// messages of a deleted room. ItemID returns the key.
type Dropped struct {
	Key string
}

func (e Inserted) ItemID() string { return e.Item.ID }
func (e Updated) ItemID() string  { return e.Item.ID }
func (e Deleted) ItemID() string  { return e.ID }
func (e Dropped) ItemID() string  { return e.Key }

func (Inserted) isChange() {}
func (Updated) isChange()  {}
func (Deleted) isChange()  {}
func (Dropped) isChange()  {}

// Change couples an event with the filter it was published on.
type Change struct {
	Filter Filter
	Event  ChangeEvent
}

func Kind(e ChangeEvent) string {
	switch e.(type) {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	case Deleted:
		return "deleted"
	case Dropped:
		return "dropped"
	default:
		return "unknown"
	}
}
