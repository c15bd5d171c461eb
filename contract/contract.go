//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chatcode/domain/chat"
	"chatcode/domain/feed"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives the change events of one subscription.
// Consume must return once ctx is done.
type EventSink interface {
	Consume(ctx context.Context, e feed.ChangeEvent) error
}

// SinkFunc adapts a function to an EventSink.
type SinkFunc func(ctx context.Context, e feed.ChangeEvent) error

func (f SinkFunc) Consume(ctx context.Context, e feed.ChangeEvent) error {
	return f(ctx, e)
}

// SubscriptionHandle identifies one live registration. Opaque to callers.
type SubscriptionHandle string

// SnapshotFetcher returns the current ordered content of a filter.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, filter feed.Filter) ([]feed.Item, error)
}

// ChangeSource notifies insert/update/delete on a filter.
type ChangeSource interface {
	Subscribe(ctx context.Context, filter feed.Filter, sink EventSink) (SubscriptionHandle, error)
	Unsubscribe(handle SubscriptionHandle) error
}

// FeedSource is everything a feed view needs from the outside world.
type FeedSource interface {
	SnapshotFetcher
	ChangeSource
}

type IRegistry interface {
	GetSinksForTopic(topic string) []EventSink
	Subscribe(filter feed.Filter, sink EventSink) SubscriptionHandle
	Unsubscribe(handle SubscriptionHandle) bool
}

// Publisher hands a change over to the live delivery pipeline.
type Publisher interface {
	Publish(ctx context.Context, change feed.Change) error
}

// CodeRunner queues a simulated code run. Submit never blocks: a full queue
// is reported with ErrRunnerUnavailable.
type CodeRunner interface {
	Submit(job chat.CodeJob) error
}
