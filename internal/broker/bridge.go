package broker

import (
	"context"
	"errors"
	"sync"

	"lin/internal/eventbus"
	"lin/internal/log"
)

// forwardQueueSize bounds the events waiting to be published. Bus handlers
// must not block on the network, so overflow is dropped.
const forwardQueueSize = 256

// Filter selects the events worth forwarding. A nil Filter forwards all.
type Filter func(eventbus.Event) bool

// Resources returns a filter accepting events about the given resources.
func Resources(resources ...string) Filter {
	set := make(map[string]bool, len(resources))
	for _, r := range resources {
		set[r] = true
	}
	return func(ev eventbus.Event) bool {
		return set[eventbus.Resource(ev.Name)]
	}
}

// Forward publishes local bus events to pub in the background. Remote
// events are never forwarded, so two bridged processes cannot loop. The
// returned stop function unsubscribes and waits until the queued messages
// are sent or its context is done, whichever comes first. Events published
// after stop are dropped.
func Forward(ctx context.Context, bus *eventbus.Bus, pub Publisher, origin string, filter Filter) (stop func(context.Context)) {
	logger := log.FromContext(ctx).WithComponent(log.ComponentBroker)
	queue := make(chan Message, forwardQueueSize)
	pubCtx, abort := context.WithCancel(context.WithoutCancel(ctx))

	// mu guards closed and sends on queue. Publish may still call the
	// handler after unsubscribe returns.
	var mu sync.Mutex
	closed := false

	unsubscribe := bus.SubscribeAll(func(ev eventbus.Event) {
		if ev.Remote || (filter != nil && !filter(ev)) {
			return
		}
		msg, err := NewMessage(ev, origin)
		if err != nil {
			logger.Warn("Event not forwarded", log.FieldEvent, ev.Name, log.FieldError, err)
			return
		}

		mu.Lock()
		defer mu.Unlock()
		if closed {
			recordForward("dropped")
			return
		}
		select {
		case queue <- msg:
		default:
			recordForward("dropped")
			logger.Warn("Forward queue full, event dropped", log.FieldEvent, ev.Name)
		}
	})

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for msg := range queue {
			if pubCtx.Err() != nil {
				recordForward("dropped")
				continue
			}
			if err := pub.Publish(pubCtx, msg); err != nil {
				recordForward("error")
				logger.Error("Failed to forward event", log.FieldEvent, msg.Name, log.FieldError, err)
				continue
			}
			recordForward("sent")
		}
	}()

	var once sync.Once
	return func(stopCtx context.Context) {
		once.Do(func() {
			unsubscribe()
			mu.Lock()
			closed = true
			pending := len(queue)
			close(queue)
			mu.Unlock()

			select {
			case <-drained:
			case <-stopCtx.Done():
				logger.Warn("Gave up forwarding queued events", "pending", pending, log.FieldError, stopCtx.Err())
				abort()
				<-drained
			}
			abort()
		})
	}
}

// Relay consumes messages and re-publishes those from other origins on bus
// as remote events. It blocks until ctx is done or the consumer fails.
func Relay(ctx context.Context, cons Consumer, bus *eventbus.Bus, origin string) error {
	logger := log.FromContext(ctx).WithComponent(log.ComponentBroker)
	err := cons.Consume(ctx, func(ctx context.Context, msg Message) error {
		if msg.Origin == origin {
			return nil
		}
		recordRelay(msg.Name)
		logger.Debug("Relaying remote event", log.FieldEvent, msg.Name, "origin", msg.Origin)
		bus.PublishEvent(msg.Event())
		return nil
	})
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
