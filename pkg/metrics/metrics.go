package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookloans_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookloans_http_request_duration_seconds",
			Help:    "Time taken to serve HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	PanicsRecovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookloans_http_panics_recovered_total",
			Help: "Total number of handler panics recovered",
		},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookloans_http_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)

	BorrowingsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookloans_borrowings_created_total",
			Help: "Total number of borrowings created",
		},
	)

	BorrowingsReturned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookloans_borrowings_returned_total",
			Help: "Total number of borrowings returned",
		},
	)

	BorrowingRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookloans_borrowing_rejections_total",
			Help: "Total number of borrowing operations rejected by a business rule",
		},
		[]string{"operation", "code"},
	)

	NotificationsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookloans_notifications_enqueued_total",
			Help: "Total number of notification events accepted by the dispatcher",
		},
		[]string{"type"},
	)

	NotificationsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookloans_notifications_dropped_total",
			Help: "Total number of notification events dropped because the queue was full or closed",
		},
		[]string{"type"},
	)

	NotificationPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookloans_notification_publish_failures_total",
			Help: "Total number of notification events that failed to publish",
		},
		[]string{"type"},
	)

	NotificationsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookloans_notifications_skipped_total",
			Help: "Total number of notification events dropped by the notifier because they no longer apply",
		},
		[]string{"type"},
	)

	NotificationsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookloans_notifications_delivered_total",
			Help: "Total number of notifications delivered to the chat channel",
		},
		[]string{"type"},
	)

	KafkaMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookloans_kafka_messages_total",
			Help: "Total number of Kafka messages handled by consumers",
		},
		[]string{"topic", "result"},
	)

	KafkaMessageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookloans_kafka_message_duration_seconds",
			Help:    "Time taken to handle a Kafka message",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic"},
	)

	OverdueBorrowings = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bookloans_overdue_borrowings",
			Help: "Number of overdue borrowings found by the last scan",
		},
	)
)
