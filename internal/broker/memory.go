package broker

import (
	"context"
	"sync"
)

// memoryDeliveries is how often Memory offers a message before dropping it.
const memoryDeliveries = 3

// Memory is an in-process broker. Every consumer sees every message
// published after it subscribed; a failed handler gets the message again,
// up to memoryDeliveries times.
type Memory struct {
	mu     sync.Mutex
	subs   []chan Message
	closed bool
	done   chan struct{}
}

func NewMemory() *Memory {
	return &Memory{done: make(chan struct{})}
}

func (m *Memory) Publish(ctx context.Context, msg Message) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	subs := append([]chan Message(nil), m.subs...)
	m.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return ErrClosed
		}
	}
	return nil
}

func (m *Memory) Consume(ctx context.Context, handler Handler) error {
	ch := make(chan Message, 64)
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.subs = append(m.subs, ch)
	m.mu.Unlock()

	defer m.unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return ErrClosed
		case msg := <-ch:
			for attempt := 0; attempt < memoryDeliveries; attempt++ {
				if handler(ctx, msg) == nil || ctx.Err() != nil {
					break
				}
			}
		}
	}
}

func (m *Memory) unsubscribe(ch chan Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.subs {
		if c == ch {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			return
		}
	}
}

// Subscribers reports how many consumers are attached.
func (m *Memory) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}
