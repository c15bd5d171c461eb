package workers

import (
	"chatcode/contract"
	"chatcode/domain/feed"
	"context"
	"log/slog"
	"time"
)

var _ contract.Worker = (*EventFanout)(nil)

// EventFanout delivers published changes to the sinks watching their topic,
// then to the permanent sinks (indexing, audit).
//
// Changes are handled one at a time so every sink sees the events of a topic
// in publication order. A sink exceeding sinkTimeout loses that event only.
type EventFanout struct {
	log            *slog.Logger
	registry       contract.IRegistry
	changes        chan feed.Change
	permanentSinks []contract.EventSink
	sinkTimeout    time.Duration
}

func NewEventFanout(log *slog.Logger, registry contract.IRegistry,
	changes chan feed.Change, sinkTimeout time.Duration, permanentSinks ...contract.EventSink) *EventFanout {
	return &EventFanout{
		log:            log,
		registry:       registry,
		changes:        changes,
		permanentSinks: permanentSinks,
		sinkTimeout:    sinkTimeout,
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case change, ok := <-w.changes:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			w.Fanout(ctx, change)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		}
	}
}

// Fanout sends one change to every interested sink.
func (w *EventFanout) Fanout(ctx context.Context, change feed.Change) {
	topic := change.Filter.Topic()
	sinks := w.registry.GetSinksForTopic(topic)
	for _, sink := range sinks {
		w.deliver(ctx, topic, sink, change.Event)
	}
	for _, sink := range w.permanentSinks {
		w.deliver(ctx, topic, sink, change.Event)
	}
	w.log.Debug("Change delivered",
		"topic", topic,
		"kind", feed.Kind(change.Event),
		"id", change.Event.ItemID(),
		"subscribers", len(sinks))
}

func (w *EventFanout) deliver(ctx context.Context, topic string, sink contract.EventSink, evt feed.ChangeEvent) {
	sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()
	if err := sink.Consume(sinkCtx, evt); err != nil {
		w.log.Warn("Sink dropped change", "topic", topic, "id", evt.ItemID(), "error", err)
	}
}
