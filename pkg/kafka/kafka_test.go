package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"bookloans/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockWriter struct {
	mu       sync.Mutex
	written  []kafka.Message
	writeErr error
	closed   bool
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.written = append(m.written, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func newTestProducer(writer, dlq *mockWriter) *Producer {
	p := &Producer{
		writer: writer,
		topic:  "library-notifications",
		log:    logger.Discard(),
	}
	if dlq != nil {
		p.dlqWriter = dlq
		p.dlqTopic = "dlq-library-notifications"
	}
	return p
}

func buildMessage(t *testing.T) Message {
	t.Helper()
	msg, err := NewMessage().
		WithKey("7").
		WithValue(map[string]int64{"borrowing_id": 7}).
		WithEventType("borrowing.returned").
		Build()
	require.NoError(t, err)
	return msg
}

func TestMessageBuilder_FillsHeaders(t *testing.T) {
	msg := buildMessage(t)

	assert.Len(t, msg.GetEventID(), 36)
	assert.Equal(t, "borrowing.returned", msg.GetEventType())
	assert.NotEmpty(t, msg.Headers[HeaderTimestamp])
	assert.JSONEq(t, `{"borrowing_id":7}`, string(msg.Value))
}

func TestMessageBuilder_ReportsEncodingError(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	assert.Error(t, err)
}

func TestMessage_RetryCount(t *testing.T) {
	msg := Message{Headers: map[string]string{}}
	for i := 0; i < 12; i++ {
		msg.IncrementRetryCount()
	}
	assert.Equal(t, 12, msg.GetRetryCount())
}

func TestProducer_PublishRunsMiddlewareInOrder(t *testing.T) {
	writer := &mockWriter{}
	p := newTestProducer(writer, nil)

	var order []string
	p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		order = append(order, "outer")
		return next(ctx, msg)
	})
	p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		order = append(order, "inner")
		assert.Equal(t, "library-notifications", msg.Topic)
		return next(ctx, msg)
	})

	require.NoError(t, p.Publish(context.Background(), buildMessage(t)))
	assert.Equal(t, []string{"outer", "inner"}, order)
	require.Len(t, writer.written, 1)
	assert.Equal(t, "7", string(writer.written[0].Key))
	assert.Equal(t, "borrowing.returned", header(writer.written[0], HeaderEventType))
}

func TestProducer_RejectsInvalidMessages(t *testing.T) {
	p := newTestProducer(&mockWriter{}, nil)

	assert.ErrorIs(t, p.Publish(context.Background(), Message{Value: []byte("x")}), ErrEmptyKey)
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "k"}), ErrEmptyValue)
}

func TestProducer_FailedWriteGoesToDLQ(t *testing.T) {
	writeErr := errors.New("connection refused")
	dlq := &mockWriter{}
	p := newTestProducer(&mockWriter{writeErr: writeErr}, dlq)

	err := p.Publish(context.Background(), buildMessage(t))

	assert.ErrorIs(t, err, writeErr)
	require.Len(t, dlq.written, 1)
	assert.Equal(t, "library-notifications", header(dlq.written[0], HeaderOriginalTopic))
	assert.Equal(t, "connection refused", header(dlq.written[0], "dlq-error"))
}

func TestProducer_PublishBatchSkipsInvalid(t *testing.T) {
	writer := &mockWriter{}
	p := newTestProducer(writer, nil)

	err := p.PublishBatch(context.Background(), []Message{buildMessage(t), {Key: ""}, buildMessage(t)})

	require.NoError(t, err)
	assert.Len(t, writer.written, 2)
	assert.ErrorIs(t, p.PublishBatch(context.Background(), []Message{{}}), ErrInvalidMessage)
}

func TestProducer_Closed(t *testing.T) {
	writer := &mockWriter{}
	p := newTestProducer(writer, nil)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, writer.closed)
	assert.ErrorIs(t, p.Publish(context.Background(), buildMessage(t)), ErrProducerClosed)
}

type mockReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []kafka.Message
}

func (m *mockReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	m.mu.Lock()
	if len(m.messages) > 0 {
		msg := m.messages[0]
		m.messages = m.messages[1:]
		m.mu.Unlock()
		return msg, nil
	}
	m.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (m *mockReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed = append(m.committed, msgs...)
	return nil
}

func (m *mockReader) Close() error { return io.EOF }

func newTestConsumer(reader *mockReader, dlq *mockWriter, handler MessageHandler) *Consumer {
	c := &Consumer{
		reader:     reader,
		topic:      "library-notifications",
		groupID:    "library-notifier",
		maxRetries: 2,
		handler:    handler,
		log:        logger.Discard(),
	}
	if dlq != nil {
		c.dlqWriter = dlq
	}
	return c
}

func TestConsumer_RetriesTransientThenSucceeds(t *testing.T) {
	attempts := 0
	c := newTestConsumer(&mockReader{}, nil, func(ctx context.Context, msg Message) error {
		attempts++
		if attempts < 3 {
			return NewTransientError("telegram unreachable", errors.New("i/o timeout"))
		}
		return nil
	})

	err := c.processMessage(context.Background(), Message{Headers: map[string]string{}})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestConsumer_PermanentErrorGoesToDLQ(t *testing.T) {
	dlq := &mockWriter{}
	attempts := 0
	c := newTestConsumer(&mockReader{}, dlq, func(ctx context.Context, msg Message) error {
		attempts++
		return NewPermanentError("bad payload", nil)
	})

	err := c.processMessage(context.Background(), Message{Key: "1", Headers: map[string]string{}})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
	require.Len(t, dlq.written, 1)
	assert.Equal(t, "library-notifier", header(dlq.written[0], "dlq-consumer-group"))
}

func TestConsumer_StartCommitsEveryMessage(t *testing.T) {
	reader := &mockReader{messages: []kafka.Message{
		{Key: []byte("1"), Value: []byte(`{}`)},
		{Key: []byte("2"), Value: []byte(`{}`)},
	}}
	var mu sync.Mutex
	var seen []string
	c := newTestConsumer(reader, &mockWriter{}, func(ctx context.Context, msg Message) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, msg.Key)
		if msg.Key == "2" {
			return NewPermanentError("bad", nil)
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool {
		reader.mu.Lock()
		defer reader.mu.Unlock()
		return len(reader.committed) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, []string{"1", "2"}, seen)
	assert.Error(t, c.Close())
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, ErrorTypeUnknown, ClassifyError(nil))
	assert.Equal(t, ErrorTypeTransient, ClassifyError(errors.New("dial tcp: I/O Timeout")))
	assert.Equal(t, ErrorTypePermanent, ClassifyError(errors.New("schema mismatch")))
	assert.Equal(t, ErrorTypeBusiness, ClassifyError(NewBusinessError("rule", nil)))

	assert.True(t, ShouldRetry(NewTransientError("x", nil), 0, 1))
	assert.False(t, ShouldRetry(NewTransientError("x", nil), 1, 1))
	assert.False(t, ShouldRetry(NewPermanentError("x", nil), 0, 3))
}
