package kafka_middleware

import (
	"context"
	"errors"
	"testing"

	"bookloans/pkg/kafka"
	"bookloans/pkg/logger"
	"bookloans/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsConsumerMiddleware_CountsResults(t *testing.T) {
	topic := "metrics-consumer-test"
	mw := MetricsConsumerMiddleware()
	msg := kafka.Message{Topic: topic}

	ok := func(ctx context.Context, msg kafka.Message) error { return nil }
	fail := func(ctx context.Context, msg kafka.Message) error { return errors.New("nope") }

	assert.NoError(t, mw(context.Background(), msg, ok))
	assert.Error(t, mw(context.Background(), msg, fail))
	assert.Error(t, mw(context.Background(), msg, fail))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.KafkaMessages.WithLabelValues(topic, resultConsumed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.KafkaMessages.WithLabelValues(topic, resultConsumeFailed)))
}

func TestMetricsProducerMiddleware_CountsResults(t *testing.T) {
	topic := "metrics-producer-test"
	mw := MetricsProducerMiddleware()
	msg := kafka.Message{Topic: topic}

	assert.NoError(t, mw(context.Background(), msg, func(ctx context.Context, msg kafka.Message) error { return nil }))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.KafkaMessages.WithLabelValues(topic, resultPublished)))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.KafkaMessages.WithLabelValues(topic, resultPublishFailed)))
}

func TestLoggingMiddleware_PassesErrorThrough(t *testing.T) {
	want := errors.New("boom")
	log := logger.Discard()

	err := LoggingConsumerMiddleware(log)(context.Background(), kafka.Message{}, func(ctx context.Context, msg kafka.Message) error {
		return want
	})
	assert.ErrorIs(t, err, want)

	err = LoggingProducerMiddleware(log)(context.Background(), kafka.Message{}, func(ctx context.Context, msg kafka.Message) error {
		return nil
	})
	assert.NoError(t, err)
}
