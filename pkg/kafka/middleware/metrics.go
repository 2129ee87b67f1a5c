package kafka_middleware

import (
	"context"
	"time"

	"bookloans/pkg/kafka"
	"bookloans/pkg/metrics"
)

const (
	resultPublished     = "published"
	resultPublishFailed = "publish_failed"
	resultConsumed      = "consumed"
	resultConsumeFailed = "consume_failed"
)

func MetricsProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()

		err := next(ctx, msg)

		metrics.KafkaMessageDuration.WithLabelValues(msg.Topic).Observe(time.Since(start).Seconds())
		result := resultPublished
		if err != nil {
			result = resultPublishFailed
		}
		metrics.KafkaMessages.WithLabelValues(msg.Topic, result).Inc()

		return err
	}
}

func MetricsConsumerMiddleware() kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()

		err := next(ctx, msg)

		metrics.KafkaMessageDuration.WithLabelValues(msg.Topic).Observe(time.Since(start).Seconds())
		result := resultConsumed
		if err != nil {
			result = resultConsumeFailed
		}
		metrics.KafkaMessages.WithLabelValues(msg.Topic, result).Inc()

		return err
	}
}
