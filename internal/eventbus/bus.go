// Package eventbus is the in-process publish/subscribe hub that lets
// independent parts of the client react to changes without knowing about
// each other.
package eventbus

import (
	"sync"
	"time"
)

// Event is what handlers receive.
type Event struct {
	Name    string
	Payload any
	At      time.Time
	// Remote is set on events re-published from a message broker.
	Remote bool
}

// Handler receives published events.
type Handler func(Event)

// Unsubscribe removes a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

type subscription struct {
	id      uint64
	handler Handler
}

// Bus maps event names to ordered subscriber lists. Publish is synchronous:
// handlers run on the publisher's goroutine, in subscription order, named
// subscribers before wildcard ones. A panicking handler is not recovered.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	named    map[string][]subscription
	wildcard []subscription
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{named: make(map[string][]subscription)}
}

// Subscribe registers handler for one event name.
func (b *Bus) Subscribe(name string, handler Handler) Unsubscribe {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.named[name] = append(b.named[name], subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			subs := remove(b.named[name], id)
			if len(subs) == 0 {
				delete(b.named, name)
			} else {
				b.named[name] = subs
			}
		})
	}
}

// SubscribeAll registers handler for every event.
func (b *Bus) SubscribeAll(handler Handler) Unsubscribe {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.wildcard = append(b.wildcard, subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.wildcard = remove(b.wildcard, id)
		})
	}
}

// Publish delivers payload to the subscribers registered when it is called.
func (b *Bus) Publish(name string, payload any) {
	b.PublishEvent(Event{Name: name, Payload: payload})
}

// PublishEvent delivers a fully formed event.
func (b *Bus) PublishEvent(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	// Snapshot under the lock and call handlers without it, so handlers can
	// subscribe or unsubscribe freely.
	b.mu.RLock()
	named := b.named[ev.Name]
	subs := make([]subscription, 0, len(named)+len(b.wildcard))
	subs = append(subs, named...)
	subs = append(subs, b.wildcard...)
	b.mu.RUnlock()

	recordPublished(ev)
	for _, s := range subs {
		s.handler(ev)
	}
}

// Len reports how many subscriptions exist for name, wildcards excluded.
func (b *Bus) Len(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.named[name])
}

// On subscribes a typed handler. Events whose payload is not a T are skipped.
func On[T any](b *Bus, name string, fn func(T)) Unsubscribe {
	return b.Subscribe(name, func(ev Event) {
		if v, ok := ev.Payload.(T); ok {
			fn(v)
		}
	})
}

// remove copies instead of editing in place so snapshots held by an
// in-flight Publish stay intact.
func remove(subs []subscription, id uint64) []subscription {
	out := make([]subscription, 0, len(subs))
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}
