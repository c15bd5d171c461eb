package feed

type Status string

const (
	Loading Status = "LOADING"
	Ready   Status = "READY"
	Error   Status = "ERROR"
	// Closed is pushed once when a view releases its feed. It carries no items.
	Closed  Status = "CLOSED"
)

// State is the read-only view of a feed. Items are always sorted and free
// of duplicates once Status is Ready. Cause is only set when Status is Error.
type State struct {
	Filter     Filter
	Generation uint64
	Status     Status
	Items      []Item
	Cause      error
}

func (s State) Reason() string {
	if s.Cause == nil {
		return ""
	}
	return s.Cause.Error()
}

func (s State) IDs() []string {
	ids := make([]string, len(s.Items))
	for i, item := range s.Items {
		ids[i] = item.ID
	}
	return ids
}
