package broker

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed broker.
var ErrClosed = errors.New("broker closed")

// Handler processes one message. Returning an error asks the broker to
// deliver it again later.
type Handler func(ctx context.Context, msg Message) error

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Consumer delivers messages to handler until ctx is done or the broker
// fails.
type Consumer interface {
	Consume(ctx context.Context, handler Handler) error
	Close() error
}
