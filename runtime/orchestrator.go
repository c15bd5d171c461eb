// Package runtime drives the live side of the service: change publication,
// subscriptions, feed views and the supervised workers behind them.
// It holds no business rule.
package runtime

import (
	"chatcode/contract"
	"chatcode/domain/chat"
	"chatcode/domain/feed"
	"chatcode/errors"
	"chatcode/runtime/workers"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	_ contract.FeedSource = (*Orchestrator)(nil)
	_ contract.Publisher  = (*Orchestrator)(nil)
	_ contract.CodeRunner = (*Orchestrator)(nil)
)

// Orchestrator is the change event source of the service. Writers publish
// changes, feed views subscribe to topics, and a supervised fanout worker
// connects the two. It also owns the code runner pool.
type Orchestrator struct {
	mu             sync.Mutex
	log            *slog.Logger
	supervisor     contract.ISupervisor
	registry       contract.IRegistry
	snapshots      contract.SnapshotFetcher
	changes        chan feed.Change
	jobs           chan chat.CodeJob
	permanentSinks []contract.EventSink
	numRunners     int
	executionDelay time.Duration
	sinkTimeout    time.Duration
	health         *workers.HealthMonitor
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	registry contract.IRegistry, snapshots contract.SnapshotFetcher,
	numRunners, bufferSize int, sinkTimeout, executionDelay time.Duration) *Orchestrator {
	return &Orchestrator{
		log:            log,
		supervisor:     supervisor,
		registry:       registry,
		snapshots:      snapshots,
		changes:        make(chan feed.Change, bufferSize),
		jobs:           make(chan chat.CodeJob, bufferSize),
		numRunners:     numRunners,
		executionDelay: executionDelay,
		sinkTimeout:    sinkTimeout,
	}
}

// Add registers sinks receiving every change, whatever its topic.
// Must be called before Start.
func (o *Orchestrator) Add(sinks ...contract.EventSink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.permanentSinks = append(o.permanentSinks, sinks...)
}

func (o *Orchestrator) FetchSnapshot(ctx context.Context, filter feed.Filter) ([]feed.Item, error) {
	return o.snapshots.FetchSnapshot(ctx, filter)
}

// Subscribe registers sink on the filter topic. Events published afterward are delivered
// to it in publication order until Unsubscribe.
func (o *Orchestrator) Subscribe(ctx context.Context, filter feed.Filter, sink contract.EventSink) (contract.SubscriptionHandle, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %s: %v", errors.ErrSubscription, filter.Topic(), err)
	}
	if filter.Collection != feed.Messages && filter.Collection != feed.Rooms {
		return "", fmt.Errorf("%w: unknown collection %q", errors.ErrSubscription, filter.Collection)
	}
	handle := o.registry.Subscribe(filter, sink)
	o.log.Debug("Subscribed", "topic", filter.Topic(), "handle", handle)
	return handle, nil
}

func (o *Orchestrator) Unsubscribe(handle contract.SubscriptionHandle) error {
	if !o.registry.Unsubscribe(handle) {
		return fmt.Errorf("%w: %s", errors.ErrUnknownSubscription, handle)
	}
	o.log.Debug("Unsubscribed", "handle", handle)
	return nil
}

// Publish queues a change for delivery. It blocks while the queue is full.
func (o *Orchestrator) Publish(ctx context.Context, change feed.Change) error {
	select {
	case o.changes <- change:
		return nil
	case <-ctx.Done():
		o.log.Warn("Change not published", "topic", change.Filter.Topic(), "error", ctx.Err())
		return ctx.Err()
	}
}

func (o *Orchestrator) Submit(job chat.CodeJob) error {
	select {
	case o.jobs <- job:
		return nil
	default:
		return errors.ErrRunnerUnavailable
	}
}

// Monitor enables a supervised health monitor sampling the change and job
// queues every interval. Must be called before Start.
func (o *Orchestrator) Monitor(interval time.Duration, thresholdPercent int) *workers.HealthMonitor {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.health = workers.NewHealthMonitor(o.log, []workers.NamedChannel{
		{Name: "changes", Channel: o.changes},
		{Name: "jobs", Channel: o.jobs},
	}, interval, thresholdPercent)
	return o.health
}

// Start registers the fanout and the code runners to the supervisor and runs
// them until ctx is done.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	fanout := workers.NewEventFanout(o.log, o.registry, o.changes, o.sinkTimeout, o.permanentSinks...)
	o.supervisor.Add(fanout)
	for i := 0; i < o.numRunners; i++ {
		o.supervisor.Add(workers.NewCodeRunnerWorker(o.jobs, o.executionDelay, o.log))
	}
	if o.health != nil {
		o.supervisor.Add(o.health)
	}
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers", "runners", o.numRunners)
	o.supervisor.Run(ctx)
}

// Stop cancels the supervised workers.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}

// NewFeedView returns a view reading from this orchestrator.
func (o *Orchestrator) NewFeedView(snapshotTimeout, subscribeBackoff time.Duration, bufferSize int) *FeedView {
	return NewFeedView(o.log, o, snapshotTimeout, subscribeBackoff, bufferSize)
}
