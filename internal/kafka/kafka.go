// Package kafka carries broker messages over Kafka: one topic, keyed by
// event resource so events about the same resource stay ordered.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"lin/internal/broker"
	"lin/internal/eventbus"
	"lin/internal/log"
)

const (
	headerEvent  = "event_name"
	headerOrigin = "origin"
)

// Writer is the part of kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Reader is the part of kafka.Reader the consumer needs.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Config struct {
	Brokers []string
	Topic   string
	// GroupID shares work between consumers. Listeners that want every
	// event should use a group of their own.
	GroupID string
	// StartAtEnd skips history for groups without a committed offset.
	StartAtEnd bool
}

func NewWriter(cfg Config) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		Async:        false,
	}
}

func NewReader(cfg Config) *kafka.Reader {
	start := kafka.FirstOffset
	if cfg.StartAtEnd {
		start = kafka.LastOffset
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.Brokers,
		GroupID:         cfg.GroupID,
		Topic:           cfg.Topic,
		MinBytes:        1,
		MaxBytes:        10e6,
		MaxWait:         500 * time.Millisecond,
		CommitInterval:  0,
		StartOffset:     start,
		ReadLagInterval: -1,
	})
}

// Publisher writes broker messages to a topic.
type Publisher struct {
	writer Writer
	logger *log.Logger
}

var _ broker.Publisher = (*Publisher)(nil)

func NewPublisher(w Writer, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.Discard()
	}
	return &Publisher{writer: w, logger: logger.WithComponent(log.ComponentKafka)}
}

func (p *Publisher) Publish(ctx context.Context, msg broker.Message) error {
	record, err := encode(msg)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, record); err != nil {
		recordMessage("out", "error")
		return fmt.Errorf("write kafka message: %w", err)
	}
	recordMessage("out", "ok")
	p.logger.Debug("Published message", log.FieldEvent, msg.Name)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func encode(msg broker.Message) (kafka.Message, error) {
	body, err := msg.Encode()
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal message: %w", err)
	}
	return kafka.Message{
		Key:   []byte(eventbus.Resource(msg.Name)),
		Value: body,
		Time:  msg.At,
		Headers: []kafka.Header{
			{Key: headerEvent, Value: []byte(msg.Name)},
			{Key: headerOrigin, Value: []byte(msg.Origin)},
		},
	}, nil
}

// Consumer reads broker messages and commits each one after its handler
// succeeds. Undecodable records are committed and skipped.
type Consumer struct {
	reader Reader
	logger *log.Logger
	// retryDelay spaces out redeliveries of a failing message.
	retryDelay time.Duration
}

var _ broker.Consumer = (*Consumer)(nil)

func NewConsumer(r Reader, logger *log.Logger) *Consumer {
	if logger == nil {
		logger = log.Discard()
	}
	return &Consumer{reader: r, logger: logger.WithComponent(log.ComponentKafka), retryDelay: time.Second}
}

func (c *Consumer) Consume(ctx context.Context, handler broker.Handler) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		record, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, kafka.ErrGroupClosed) {
				return broker.ErrClosed
			}
			c.logger.Warn("Fetch failed", log.FieldError, err)
			if !sleep(ctx, c.retryDelay) {
				return ctx.Err()
			}
			continue
		}

		msg, err := broker.Decode(record.Value)
		if err != nil {
			c.logger.Error("Failed to decode message",
				log.FieldError, err, "partition", record.Partition, "offset", record.Offset)
			recordMessage("in", "malformed")
			c.commit(ctx, record)
			continue
		}

		// A failing handler blocks the partition until it succeeds, as a
		// skipped offset would be committed by the next message.
		for {
			err := handler(ctx, msg)
			if err == nil {
				break
			}
			recordMessage("in", "error")
			c.logger.Error("Failed to handle message", log.FieldError, err, log.FieldEvent, msg.Name)
			if !sleep(ctx, c.retryDelay) {
				return ctx.Err()
			}
		}
		recordMessage("in", "ok")
		c.commit(ctx, record)
	}
}

func (c *Consumer) commit(ctx context.Context, record kafka.Message) {
	if err := c.reader.CommitMessages(ctx, record); err != nil {
		c.logger.Error("Commit failed", log.FieldError, err, "offset", record.Offset)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
