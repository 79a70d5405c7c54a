// Package pubsub implements pankat's pub/sub registry: a process-wide
// singleton mapping topic name to subscriber set, fanning out published
// messages to every current subscriber of a topic on a best-effort,
// non-blocking basis.
package pubsub

import (
	"sync"

	"github.com/google/uuid"
)

// Message is one payload published to a topic. The compile pipeline
// publishes either an update or a redirect; Message carries the
// already-marshaled JSON bytes so the registry itself stays encoding-agnostic.
type Message []byte

type subscriber struct {
	id uuid.UUID
	ch chan Message
}

// Registry is safe for concurrent Subscribe, Publish, and unsubscribe calls
// from any goroutine. The mutex is held only across subscriber-set
// bookkeeping and the non-blocking send loop in Publish, never across slow
// I/O.
type Registry struct {
	mu     sync.RWMutex
	topics map[string][]subscriber
}

// NewRegistry returns an empty pub/sub registry.
func NewRegistry() *Registry {
	return &Registry{topics: make(map[string][]subscriber)}
}

// Subscribe registers a new subscriber on topic and returns a channel that
// receives every message subsequently published to it, plus a cancel
// function that removes the subscription. The channel is buffered so a
// brief subscriber stall doesn't immediately drop messages, but Publish
// never blocks waiting for it to drain.
func Subscribe(r *Registry, topic string, buffer int) (<-chan Message, func()) {
	sub := subscriber{id: uuid.New(), ch: make(chan Message, buffer)}

	r.mu.Lock()
	r.topics[topic] = append(r.topics[topic], sub)
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		subs := r.topics[topic]
		for i, s := range subs {
			if s.id == sub.id {
				r.topics[topic] = append(subs[:i], subs[i+1:]...)
				close(s.ch)
				break
			}
		}
		if len(r.topics[topic]) == 0 {
			delete(r.topics, topic)
		}
	}
	return sub.ch, cancel
}

// Publisher returns a send function for topic: calling it fans out msg to
// every current subscriber of that topic. Delivery is best-effort — a
// subscriber whose channel is full is skipped rather than blocking the
// publish, mirroring a livereload-hub's non-blocking broadcast rather than
// a bounded typed bus that blocks on a slow reader.
func (r *Registry) Publisher(topic string) func(Message) {
	return func(msg Message) {
		r.Publish(topic, msg)
	}
}

// Publish is the direct form of Publisher(topic)(msg); kept so callers that
// already hold a topic name don't need to allocate a closure.
func (r *Registry) Publish(topic string, msg Message) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.topics[topic] {
		select {
		case s.ch <- msg:
		default:
		}
	}
}

// SubscriberCount reports the number of current subscribers to topic.
func (r *Registry) SubscriberCount(topic string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics[topic])
}
