package runtime

import (
	"chatcode/contract"
	"chatcode/domain/feed"
	"chatcode/errors"
	"chatcode/projection"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

type Phase string

const (
	Idle        Phase = "IDLE"
	Subscribing Phase = "SUBSCRIBING"
	Active      Phase = "ACTIVE"
	Closing     Phase = "CLOSING"
)

// Messages handled by the view loop. Results of asynchronous work carry the
// generation that started them and are dropped once it is superseded.
type (
	openRequest  struct{ filter feed.Filter }
	closeRequest struct{}
	retryRequest struct{}

	subscribed struct {
		generation uint64
		handle     contract.SubscriptionHandle
		err        error
	}
	snapshotLoaded struct {
		generation uint64
		items      []feed.Item
		err        error
	}
	changeReceived struct {
		generation uint64
		event      feed.ChangeEvent
	}
)

// FeedView keeps one live feed for one consumer (a connected screen, a stream).
// It owns the subscription handle and the reconciler, both only touched by the
// goroutine executing Run. Open, Close and Retry only enqueue requests.
type FeedView struct {
	log      *slog.Logger
	source   contract.FeedSource
	loader   *SnapshotLoader
	backoff  time.Duration
	inbox    chan any
	updates  chan feed.State
	stopped  chan struct{}
	stopOnce sync.Once
	current  atomic.Pointer[feed.State]
	observed atomic.Value // Phase

	// Owned by the loop
	phase           Phase
	filter          feed.Filter
	generation      uint64
	handle          contract.SubscriptionHandle
	reconciler      *projection.Reconciler
	cancelSubscribe context.CancelFunc
	cancelFetch     context.CancelFunc
}

func NewFeedView(log *slog.Logger, source contract.FeedSource,
	snapshotTimeout, subscribeBackoff time.Duration, bufferSize int) *FeedView {
	v := &FeedView{
		log:        log,
		source:     source,
		loader:     NewSnapshotLoader(log, source, snapshotTimeout),
		backoff:    subscribeBackoff,
		inbox:      make(chan any, bufferSize),
		updates:    make(chan feed.State, 1),
		stopped:    make(chan struct{}),
		phase:      Idle,
		reconciler: projection.NewReconciler(log),
	}
	v.observed.Store(Idle)
	return v
}

// Open requests a feed for filter, closing the current one first if needed.
func (v *FeedView) Open(filter feed.Filter) {
	v.post(openRequest{filter: filter})
}

// Close releases the subscription. The view can be opened again afterward.
func (v *FeedView) Close() {
	v.post(closeRequest{})
}

// Retry re-triggers a failed snapshot or subscription.
func (v *FeedView) Retry() {
	v.post(retryRequest{})
}

// Updates delivers the latest state after every change. Intermediate states
// may be skipped by a slow reader. Close is confirmed by a Closed state.
// The channel is closed when Run returns.
func (v *FeedView) Updates() <-chan feed.State {
	return v.updates
}

// Current returns the latest state, false when no feed is open.
func (v *FeedView) Current() (feed.State, bool) {
	s := v.current.Load()
	if s == nil {
		return feed.State{}, false
	}
	return *s, true
}

func (v *FeedView) Phase() Phase {
	return v.observed.Load().(Phase)
}

// Run is the view loop. It returns once ctx is done, after releasing the subscription.
func (v *FeedView) Run(ctx context.Context) error {
	defer v.stopOnce.Do(func() {
		close(v.stopped)
		close(v.updates)
	})
	for {
		select {
		case <-ctx.Done():
			v.close()
			return nil
		case msg := <-v.inbox:
			v.dispatch(ctx, msg)
		}
	}
}

func (v *FeedView) dispatch(ctx context.Context, msg any) {
	switch m := msg.(type) {
	case openRequest:
		if v.phase != Idle && m.filter == v.filter {
			v.log.Debug("Feed already open", "topic", m.filter.Topic())
			return
		}
		v.close()
		v.subscribe(ctx, m.filter)
	case closeRequest:
		filter := v.filter
		v.close()
		v.push(feed.State{Filter: filter, Generation: v.generation, Status: feed.Closed})
	case retryRequest:
		v.retry(ctx)
	case subscribed:
		v.onSubscribed(ctx, m)
	case snapshotLoaded:
		v.onSnapshot(m)
	case changeReceived:
		if m.generation != v.generation || v.phase != Active {
			v.log.Debug("Stale event dropped", "generation", m.generation, "current", v.generation)
			return
		}
		v.reconciler.Apply(m.event)
		v.publish()
	default:
		v.log.Warn(fmt.Sprintf("Unexpected message %T", msg))
	}
}

func (v *FeedView) subscribe(ctx context.Context, filter feed.Filter) {
	v.generation++
	generation := v.generation
	v.filter = filter
	v.reconciler = projection.NewReconciler(v.log)
	v.setPhase(Subscribing)
	v.publish()

	subCtx, cancel := context.WithCancel(ctx)
	v.cancelSubscribe = cancel
	go func() {
		handle, err := v.register(subCtx, filter, generation)
		v.post(subscribed{generation: generation, handle: handle, err: err})
	}()
}

// register subscribes to the change source, retrying once after the backoff.
func (v *FeedView) register(ctx context.Context, filter feed.Filter, generation uint64) (contract.SubscriptionHandle, error) {
	sink := v.sinkFor(generation)
	handle, err := v.source.Subscribe(ctx, filter, sink)
	if err == nil {
		return handle, nil
	}
	v.log.Warn("Subscription failed, retrying", "topic", filter.Topic(), "error", err)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(v.backoff):
	}

	handle, err = v.source.Subscribe(ctx, filter, sink)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", errors.ErrSubscription, filter.Topic(), err)
	}
	return handle, nil
}

func (v *FeedView) sinkFor(generation uint64) contract.EventSink {
	return contract.SinkFunc(func(ctx context.Context, e feed.ChangeEvent) error {
		select {
		case v.inbox <- changeReceived{generation: generation, event: e}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-v.stopped:
			return nil
		}
	})
}

func (v *FeedView) onSubscribed(ctx context.Context, m subscribed) {
	if m.generation != v.generation || v.phase != Subscribing {
		if m.err == nil {
			v.log.Debug("Releasing stale subscription", "generation", m.generation)
			v.release(m.handle)
		}
		return
	}
	v.cancelSubscribe = nil
	if m.err != nil {
		v.log.Error("Subscription failed", "topic", v.filter.Topic(), "error", m.err)
		v.reconciler.Fail(m.err)
		v.setPhase(Idle)
		v.publish()
		return
	}
	v.handle = m.handle
	v.setPhase(Active)
	v.fetch(ctx)
}

func (v *FeedView) fetch(ctx context.Context) {
	generation, filter := v.generation, v.filter
	fetchCtx, cancel := context.WithCancel(ctx)
	v.cancelFetch = cancel
	go func() {
		items, err := v.loader.Load(fetchCtx, filter)
		v.post(snapshotLoaded{generation: generation, items: items, err: err})
	}()
}

func (v *FeedView) onSnapshot(m snapshotLoaded) {
	if m.generation != v.generation || v.phase != Active {
		v.log.Debug("Stale snapshot dropped", "generation", m.generation, "current", v.generation)
		return
	}
	if v.cancelFetch != nil {
		v.cancelFetch()
		v.cancelFetch = nil
	}
	if m.err != nil {
		v.log.Error("Snapshot failed", "topic", v.filter.Topic(), "error", m.err)
		v.reconciler.Fail(m.err)
	} else {
		v.reconciler.ApplySnapshot(m.items)
	}
	v.publish()
}

func (v *FeedView) retry(ctx context.Context) {
	if v.reconciler.Status() != feed.Error {
		return
	}
	switch v.phase {
	case Active:
		v.log.Debug("Retrying snapshot", "topic", v.filter.Topic())
		v.reconciler.Reset()
		v.publish()
		v.fetch(ctx)
	case Idle:
		if v.filter.IsZero() {
			return
		}
		v.log.Debug("Retrying subscription", "topic", v.filter.Topic())
		v.subscribe(ctx, v.filter)
	}
}

// close runs Closing then Idle. In-flight work is cancelled and its late
// results are dropped by the phase check.
func (v *FeedView) close() {
	if v.phase == Idle && v.handle == "" {
		v.filter = feed.Filter{}
		v.current.Store(nil)
		return
	}
	v.setPhase(Closing)
	if v.cancelSubscribe != nil {
		v.cancelSubscribe()
		v.cancelSubscribe = nil
	}
	if v.cancelFetch != nil {
		v.cancelFetch()
		v.cancelFetch = nil
	}
	if v.handle != "" {
		v.release(v.handle)
		v.handle = ""
	}
	v.filter = feed.Filter{}
	v.current.Store(nil)
	v.setPhase(Idle)
}

func (v *FeedView) release(handle contract.SubscriptionHandle) {
	if err := v.source.Unsubscribe(handle); err != nil {
		v.log.Warn("Unsubscribe failed", "handle", handle, "error", err)
	}
}

func (v *FeedView) setPhase(phase Phase) {
	v.log.Debug("Feed view transition", "from", v.phase, "to", phase, "generation", v.generation)
	v.phase = phase
	v.observed.Store(phase)
}

func (v *FeedView) publish() {
	state := v.reconciler.Snapshot(v.filter, v.generation)
	v.current.Store(&state)
	v.push(state)
}

// push replaces any state the reader has not taken yet.
func (v *FeedView) push(state feed.State) {
	select {
	case <-v.updates:
	default:
	}
	select {
	case v.updates <- state:
	default:
	}
}

func (v *FeedView) post(msg any) {
	select {
	case v.inbox <- msg:
	case <-v.stopped:
	}
}
