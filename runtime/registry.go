package runtime

import (
	"chatcode/contract"
	"chatcode/domain/feed"
	"sync"

	"github.com/google/uuid"
)

type subscription struct {
	topic string
	sink  contract.EventSink
}

// Registry tracks live subscriptions. A topic maps to the handles watching it,
// each handle to its sink.
type Registry struct {
	mu            sync.RWMutex
	subscriptions map[contract.SubscriptionHandle]subscription
	topics        map[string]map[contract.SubscriptionHandle]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		subscriptions: make(map[contract.SubscriptionHandle]subscription),
		topics:        make(map[string]map[contract.SubscriptionHandle]struct{}),
	}
}

// GetSinksForTopic returns the sinks currently registered on topic, nil when none.
func (r *Registry) GetSinksForTopic(topic string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handles, ok := r.topics[topic]
	if !ok {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(handles))
	for handle := range handles {
		if sub, exists := r.subscriptions[handle]; exists {
			sinks = append(sinks, sub.sink)
		}
	}
	return sinks
}

// Subscribe registers sink on the filter topic and returns a fresh handle.
// The same sink registered twice gets two handles.
func (r *Registry) Subscribe(filter feed.Filter, sink contract.EventSink) contract.SubscriptionHandle {
	r.mu.Lock()
	defer r.mu.Unlock()

	handle := contract.SubscriptionHandle(uuid.NewString())
	topic := filter.Topic()
	r.subscriptions[handle] = subscription{topic: topic, sink: sink}
	if _, ok := r.topics[topic]; !ok {
		r.topics[topic] = make(map[contract.SubscriptionHandle]struct{})
	}
	r.topics[topic][handle] = struct{}{}
	return handle
}

// Unsubscribe removes a handle. It reports false for an unknown or already
// released handle. Empty topics are dropped.
func (r *Registry) Unsubscribe(handle contract.SubscriptionHandle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subscriptions[handle]
	if !ok {
		return false
	}
	delete(r.subscriptions, handle)
	if handles, ok := r.topics[sub.topic]; ok {
		delete(handles, handle)
		if len(handles) == 0 {
			delete(r.topics, sub.topic)
		}
	}
	return true
}

// Count returns the number of live subscriptions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscriptions)
}
