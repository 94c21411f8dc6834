package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lin/internal/broker"
	"lin/internal/eventbus"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

// fakeReader serves queued records, then blocks until the context ends.
type fakeReader struct {
	mu        sync.Mutex
	records   []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.records) > 0 {
		rec := r.records[0]
		r.records = r.records[1:]
		r.mu.Unlock()
		return rec, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func newMessage(t *testing.T, name string, payload any) broker.Message {
	t.Helper()
	msg, err := broker.NewMessage(eventbus.Event{Name: name, Payload: payload}, "cli-1")
	require.NoError(t, err)
	return msg
}

func TestPublisherEncodesKeyAndHeaders(t *testing.T) {
	w := &fakeWriter{}
	pub := NewPublisher(w, nil)

	require.NoError(t, pub.Publish(context.Background(), newMessage(t, eventbus.ExpenseUpdated, map[string]int{"n": 1})))
	require.Len(t, w.msgs, 1)

	rec := w.msgs[0]
	assert.Equal(t, "expense", string(rec.Key))
	assert.Equal(t, []kafka.Header{
		{Key: headerEvent, Value: []byte(eventbus.ExpenseUpdated)},
		{Key: headerOrigin, Value: []byte("cli-1")},
	}, rec.Headers)

	decoded, err := broker.Decode(rec.Value)
	require.NoError(t, err)
	assert.Equal(t, eventbus.ExpenseUpdated, decoded.Name)
}

func TestPublisherWrapsWriteErrors(t *testing.T) {
	boom := errors.New("leader not available")
	pub := NewPublisher(&fakeWriter{err: boom}, nil)

	err := pub.Publish(context.Background(), newMessage(t, eventbus.TaskCreated, nil))
	assert.ErrorIs(t, err, boom)
}

func TestConsumerCommitsAfterHandling(t *testing.T) {
	good, err := encode(newMessage(t, eventbus.TaskCreated, "t-1"))
	require.NoError(t, err)
	good.Offset = 1
	second, err := encode(newMessage(t, eventbus.TaskDeleted, "t-1"))
	require.NoError(t, err)
	second.Offset = 3

	reader := &fakeReader{records: []kafka.Message{
		good,
		{Offset: 2, Value: []byte("garbage")},
		second,
	}}
	cons := NewConsumer(reader, nil)
	cons.retryDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	var (
		mu    sync.Mutex
		names []string
		fails = 1
	)
	done := make(chan error, 1)
	go func() {
		done <- cons.Consume(ctx, func(_ context.Context, msg broker.Message) error {
			mu.Lock()
			defer mu.Unlock()
			if msg.Name == eventbus.TaskDeleted && fails > 0 {
				fails--
				return errors.New("sheet busy")
			}
			names = append(names, msg.Name)
			return nil
		})
	}()

	require.Eventually(t, func() bool { return len(reader.commits()) == 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	assert.Equal(t, []int64{1, 2, 3}, reader.commits())
	mu.Lock()
	assert.Equal(t, []string{eventbus.TaskCreated, eventbus.TaskDeleted}, names)
	mu.Unlock()
}
