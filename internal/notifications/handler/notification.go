// Package handler turns notification events into chat messages.
package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookserrors "bookloans/internal/books/errors"
	borrowingserrors "bookloans/internal/borrowings/errors"
	"bookloans/internal/notifications/events"
	"bookloans/internal/notifications/messages"
	"bookloans/internal/notifications/telegram"
	"bookloans/pkg/kafka"
	"bookloans/pkg/logger"
	"bookloans/pkg/metrics"
	"bookloans/pkg/model"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type BorrowingFinder interface {
	FindByID(ctx context.Context, id int64) (*model.Borrowing, error)
}

type BookFinder interface {
	FindByID(ctx context.Context, id int64) (*model.Book, error)
}

type NotificationHandler struct {
	borrowings BorrowingFinder
	books      BookFinder
	sender     telegram.Sender
	titles     *expirable.LRU[int64, string]
	log        *logger.Logger
}

// NewNotificationHandler caches book titles for cacheTTL, so a title edited
// by staff shows up in messages once the entry expires.
func NewNotificationHandler(borrowings BorrowingFinder, books BookFinder, sender telegram.Sender, cacheSize int, cacheTTL time.Duration, log *logger.Logger) (*NotificationHandler, error) {
	if cacheSize <= 0 || cacheTTL <= 0 {
		return nil, fmt.Errorf("invalid book title cache: size %d, ttl %s", cacheSize, cacheTTL)
	}

	return &NotificationHandler{
		borrowings: borrowings,
		books:      books,
		sender:     sender,
		titles:     expirable.NewLRU[int64, string](cacheSize, nil, cacheTTL),
		log:        log,
	}, nil
}

// Handle is the kafka.MessageHandler for the notifications topic. Lookups of
// loans or books that no longer exist are permanent failures; everything else
// is left for the consumer to retry.
func (h *NotificationHandler) Handle(ctx context.Context, msg kafka.Message) error {
	event, err := events.Decode(msg)
	if err != nil {
		return err
	}

	text, skip, err := h.render(ctx, event)
	if err != nil {
		return err
	}
	if skip {
		metrics.NotificationsSkipped.WithLabelValues(event.Type).Inc()
		h.log.Info("notification skipped, loan already returned",
			"event_type", event.Type,
			"borrowing_id", event.BorrowingID,
			"correlation_id", msg.GetCorrelationID(),
		)
		return nil
	}

	if err := h.sender.Send(ctx, text); err != nil {
		var statusErr *telegram.StatusError
		if errors.As(err, &statusErr) && !statusErr.Temporary() {
			return kafka.NewPermanentError("telegram rejected notification", err).
				WithDetail("borrowing_id", event.BorrowingID)
		}
		return kafka.NewTransientError("failed to deliver notification", err).
			WithDetail("borrowing_id", event.BorrowingID)
	}

	metrics.NotificationsDelivered.WithLabelValues(event.Type).Inc()
	h.log.Info("notification delivered",
		"event_type", event.Type,
		"borrowing_id", event.BorrowingID,
		"correlation_id", msg.GetCorrelationID(),
	)
	return nil
}

// render reports skip for overdue events whose loan was returned between
// the scan and delivery.
func (h *NotificationHandler) render(ctx context.Context, event events.Event) (text string, skip bool, err error) {
	if event.Type == events.TypeBorrowingCreated {
		return event.Text, false, nil
	}

	borrowing, err := h.borrowings.FindByID(ctx, event.BorrowingID)
	if err != nil {
		return "", false, lookupError("borrowing", err)
	}
	if event.Type == events.TypeBorrowingOverdue && borrowing.ActualReturnDate != nil {
		return "", true, nil
	}

	title, err := h.bookTitle(ctx, borrowing.BookID)
	if err != nil {
		return "", false, lookupError("book", err)
	}

	switch event.Type {
	case events.TypeBorrowingReturned:
		return messages.BookReturned(borrowing, title), false, nil
	default:
		return messages.Overdue(borrowing, title), false, nil
	}
}

func (h *NotificationHandler) bookTitle(ctx context.Context, id int64) (string, error) {
	if title, ok := h.titles.Get(id); ok {
		return title, nil
	}

	book, err := h.books.FindByID(ctx, id)
	if err != nil {
		return "", err
	}

	h.titles.Add(id, book.Title)
	return book.Title, nil
}

func lookupError(resource string, err error) error {
	if errors.Is(err, borrowingserrors.ErrNotFound) || errors.Is(err, bookserrors.ErrNotFound) {
		return kafka.NewPermanentError(resource+" referenced by notification does not exist", err)
	}
	return kafka.NewTransientError("failed to load "+resource, err)
}
