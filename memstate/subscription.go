package memstate

import "sync"

// Subscription receives the events of every transaction committed after it
// was created, in commit order. Delivery never blocks a writer: events queue
// until drained.
type Subscription struct {
	store *Store
	mu    sync.Mutex
	queue []Event
	ready chan struct{}
}

// Subscribe registers a new subscription.
func (s *Store) Subscribe() *Subscription {
	sub := &Subscription{store: s, ready: make(chan struct{}, 1)}
	s.subsMu.Lock()
	s.subs[sub] = struct{}{}
	s.subsMu.Unlock()
	return sub
}

// publish is called with the write lock held, so queues see commit order.
func (s *Store) publish(events []Event) {
	if len(events) == 0 {
		return
	}
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for sub := range s.subs {
		sub.enqueue(events)
	}
}

func (sub *Subscription) enqueue(events []Event) {
	sub.mu.Lock()
	sub.queue = append(sub.queue, events...)
	sub.mu.Unlock()
	select {
	case sub.ready <- struct{}{}:
	default:
	}
}

// Ready is signalled when events may be waiting.
func (sub *Subscription) Ready() <-chan struct{} {
	return sub.ready
}

// Drain returns and clears the queued events.
func (sub *Subscription) Drain() []Event {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	events := sub.queue
	sub.queue = nil
	return events
}

// Close stops delivery to the subscription.
func (sub *Subscription) Close() {
	sub.store.subsMu.Lock()
	delete(sub.store.subs, sub)
	sub.store.subsMu.Unlock()
}
