// Package overdue finds open loans past their expected return date and
// publishes one notification event per loan.
package overdue

import (
	"context"
	"fmt"
	"time"

	"bookloans/internal/notifications/events"
	"bookloans/internal/notifications/messages"
	"bookloans/pkg/kafka"
	"bookloans/pkg/logger"
	"bookloans/pkg/metrics"
	"bookloans/pkg/model"

	"github.com/google/uuid"
)

const DefaultBatchSize = 100

type OverdueFinder interface {
	FindOverdue(ctx context.Context, today model.Date) ([]*model.Borrowing, error)
}

type Scanner struct {
	borrowings OverdueFinder
	publisher  kafka.Publisher
	batchSize  int
	now        func() time.Time
	log        *logger.Logger
}

type Option func(*Scanner)

func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

func WithBatchSize(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func NewScanner(borrowings OverdueFinder, publisher kafka.Publisher, log *logger.Logger, opts ...Option) *Scanner {
	s := &Scanner{
		borrowings: borrowings,
		publisher:  publisher,
		batchSize:  DefaultBatchSize,
		now:        time.Now,
		log:        log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run publishes an overdue event for every open loan whose expected return
// date is before today and returns a one-line summary of the scan.
func (s *Scanner) Run(ctx context.Context) (string, error) {
	today := model.DateOf(s.now().UTC())
	scanID := uuid.NewString()

	overdue, err := s.borrowings.FindOverdue(ctx, today)
	if err != nil {
		return "", fmt.Errorf("failed to find overdue borrowings: %w", err)
	}

	metrics.OverdueBorrowings.Set(float64(len(overdue)))

	if len(overdue) == 0 {
		s.log.Info("overdue scan finished", "scan_id", scanID, "today", today.String(), "overdue", 0)
		return messages.OverdueSummary(0), nil
	}

	batch := make([]kafka.Message, 0, s.batchSize)
	published := 0
	for _, b := range overdue {
		msg, err := events.BorrowingOverdue(b.ID).Message(scanID)
		if err != nil {
			return "", fmt.Errorf("failed to build overdue event for borrowing %d: %w", b.ID, err)
		}
		batch = append(batch, msg)

		if len(batch) == s.batchSize {
			if err := s.publisher.PublishBatch(ctx, batch); err != nil {
				return "", fmt.Errorf("failed to publish overdue events after %d of %d: %w", published, len(overdue), err)
			}
			published += len(batch)
			batch = make([]kafka.Message, 0, s.batchSize)
		}
	}

	if len(batch) > 0 {
		if err := s.publisher.PublishBatch(ctx, batch); err != nil {
			return "", fmt.Errorf("failed to publish overdue events after %d of %d: %w", published, len(overdue), err)
		}
		published += len(batch)
	}

	s.log.Info("overdue scan finished", "scan_id", scanID, "today", today.String(), "overdue", published)
	return messages.OverdueSummary(published), nil
}
