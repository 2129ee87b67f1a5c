package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	bookserrors "bookloans/internal/books/errors"
	borrowingserrors "bookloans/internal/borrowings/errors"
	"bookloans/internal/notifications/events"
	"bookloans/internal/notifications/telegram"
	"bookloans/pkg/kafka"
	"bookloans/pkg/logger"
	"bookloans/pkg/metrics"
	"bookloans/pkg/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockBorrowingFinder struct {
	findByIDFunc func(ctx context.Context, id int64) (*model.Borrowing, error)
}

func (m *mockBorrowingFinder) FindByID(ctx context.Context, id int64) (*model.Borrowing, error) {
	return m.findByIDFunc(ctx, id)
}

type mockBookFinder struct {
	calls        int
	findByIDFunc func(ctx context.Context, id int64) (*model.Book, error)
}

func (m *mockBookFinder) FindByID(ctx context.Context, id int64) (*model.Book, error) {
	m.calls++
	return m.findByIDFunc(ctx, id)
}

type mockSender struct {
	sent []string
	err  error
}

func (m *mockSender) Send(ctx context.Context, text string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, text)
	return nil
}

func returnedLoan(id int64) *model.Borrowing {
	returned := model.NewDate(2025, 3, 10)
	return &model.Borrowing{
		ID:                 id,
		BorrowDate:         model.NewDate(2025, 3, 1),
		ExpectedReturnDate: model.NewDate(2025, 3, 15),
		ActualReturnDate:   &returned,
		BookID:             7,
		User:               model.UserRef{ID: 3, Email: "reader@example.com"},
	}
}

func openLoan(id int64) *model.Borrowing {
	loan := returnedLoan(id)
	loan.ActualReturnDate = nil
	return loan
}

func fixtures() (*mockBorrowingFinder, *mockBookFinder) {
	borrowings := &mockBorrowingFinder{
		findByIDFunc: func(ctx context.Context, id int64) (*model.Borrowing, error) {
			return returnedLoan(id), nil
		},
	}
	books := &mockBookFinder{
		findByIDFunc: func(ctx context.Context, id int64) (*model.Book, error) {
			return &model.Book{ID: id, Title: "Dune"}, nil
		},
	}
	return borrowings, books
}

func eventMessage(t *testing.T, e events.Event) kafka.Message {
	t.Helper()
	msg, err := e.Message("corr-1")
	require.NoError(t, err)
	return msg
}

func newHandler(t *testing.T, borrowings BorrowingFinder, books BookFinder, sender telegram.Sender) *NotificationHandler {
	t.Helper()
	h, err := NewNotificationHandler(borrowings, books, sender, 16, time.Minute, logger.Discard())
	require.NoError(t, err)
	return h
}

func TestHandle_CreatedSendsCarriedText(t *testing.T) {
	borrowings := &mockBorrowingFinder{
		findByIDFunc: func(ctx context.Context, id int64) (*model.Borrowing, error) {
			t.Fatal("created events must not hit the store")
			return nil, nil
		},
	}
	sender := &mockSender{}
	h := newHandler(t, borrowings, &mockBookFinder{}, sender)

	before := testutil.ToFloat64(metrics.NotificationsDelivered.WithLabelValues(events.TypeBorrowingCreated))
	err := h.Handle(context.Background(), eventMessage(t, events.BorrowingCreated(5, "📚 New borrowing\nBook: Dune")))

	require.NoError(t, err)
	assert.Equal(t, []string{"📚 New borrowing\nBook: Dune"}, sender.sent)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.NotificationsDelivered.WithLabelValues(events.TypeBorrowingCreated)))
}

func TestHandle_ReturnedRendersFromStore(t *testing.T) {
	borrowings, books := fixtures()
	sender := &mockSender{}
	h := newHandler(t, borrowings, books, sender)

	err := h.Handle(context.Background(), eventMessage(t, events.BorrowingReturned(9)))

	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.True(t, strings.HasPrefix(sender.sent[0], "✅ Book returned"))
	assert.Contains(t, sender.sent[0], "Book: Dune")
	assert.Contains(t, sender.sent[0], "User: reader@example.com")
	assert.Contains(t, sender.sent[0], "Return date: 2025-03-10")
}

func TestHandle_OverdueUsesCachedTitle(t *testing.T) {
	_, books := fixtures()
	borrowings := &mockBorrowingFinder{
		findByIDFunc: func(ctx context.Context, id int64) (*model.Borrowing, error) {
			return openLoan(id), nil
		},
	}
	sender := &mockSender{}
	h := newHandler(t, borrowings, books, sender)

	for id := int64(1); id <= 3; id++ {
		require.NoError(t, h.Handle(context.Background(), eventMessage(t, events.BorrowingOverdue(id))))
	}

	assert.Len(t, sender.sent, 3)
	assert.Equal(t, 1, books.calls)
	for _, text := range sender.sent {
		assert.True(t, strings.HasPrefix(text, "❗ Book overdue"))
		assert.Contains(t, text, "Expected return date: 2025-03-15")
	}
}

func TestHandle_OverdueForReturnedLoanIsSkipped(t *testing.T) {
	borrowings, books := fixtures()
	sender := &mockSender{}
	h := newHandler(t, borrowings, books, sender)

	before := testutil.ToFloat64(metrics.NotificationsSkipped.WithLabelValues(events.TypeBorrowingOverdue))
	err := h.Handle(context.Background(), eventMessage(t, events.BorrowingOverdue(4)))

	require.NoError(t, err)
	assert.Empty(t, sender.sent)
	assert.Equal(t, 0, books.calls)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.NotificationsSkipped.WithLabelValues(events.TypeBorrowingOverdue)))
}

func TestHandle_TitleCacheExpires(t *testing.T) {
	title := "Dune"
	borrowings, _ := fixtures()
	books := &mockBookFinder{
		findByIDFunc: func(ctx context.Context, id int64) (*model.Book, error) {
			return &model.Book{ID: id, Title: title}, nil
		},
	}
	sender := &mockSender{}
	h, err := NewNotificationHandler(borrowings, books, sender, 16, 20*time.Millisecond, logger.Discard())
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), eventMessage(t, events.BorrowingReturned(1))))
	title = "Dune Messiah"
	require.NoError(t, h.Handle(context.Background(), eventMessage(t, events.BorrowingReturned(1))))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, h.Handle(context.Background(), eventMessage(t, events.BorrowingReturned(1))))

	require.Len(t, sender.sent, 3)
	assert.Contains(t, sender.sent[1], "Book: Dune\n")
	assert.Contains(t, sender.sent[2], "Book: Dune Messiah")
	assert.Equal(t, 2, books.calls)
}

func TestNewNotificationHandler_RejectsBadCache(t *testing.T) {
	_, err := NewNotificationHandler(&mockBorrowingFinder{}, &mockBookFinder{}, &mockSender{}, 0, time.Minute, logger.Discard())
	assert.Error(t, err)

	_, err = NewNotificationHandler(&mockBorrowingFinder{}, &mockBookFinder{}, &mockSender{}, 16, 0, logger.Discard())
	assert.Error(t, err)
}

func TestHandle_ErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		borrowErr  error
		bookErr    error
		sendErr    error
		wantType   kafka.ErrorType
		wantNoSend bool
	}{
		{
			name:       "missing borrowing",
			borrowErr:  fmt.Errorf("%w: %d", borrowingserrors.ErrNotFound, 9),
			wantType:   kafka.ErrorTypePermanent,
			wantNoSend: true,
		},
		{
			name:       "missing book",
			bookErr:    fmt.Errorf("%w: %d", bookserrors.ErrNotFound, 7),
			wantType:   kafka.ErrorTypePermanent,
			wantNoSend: true,
		},
		{
			name:       "store unreachable",
			borrowErr:  errors.New("server selection timeout"),
			wantType:   kafka.ErrorTypeTransient,
			wantNoSend: true,
		},
		{
			name:     "telegram down",
			sendErr:  &telegram.StatusError{StatusCode: http.StatusBadGateway},
			wantType: kafka.ErrorTypeTransient,
		},
		{
			name:     "telegram rejects chat",
			sendErr:  &telegram.StatusError{StatusCode: http.StatusBadRequest, Body: "chat not found"},
			wantType: kafka.ErrorTypePermanent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			borrowings := &mockBorrowingFinder{
				findByIDFunc: func(ctx context.Context, id int64) (*model.Borrowing, error) {
					if tt.borrowErr != nil {
						return nil, tt.borrowErr
					}
					return returnedLoan(id), nil
				},
			}
			books := &mockBookFinder{
				findByIDFunc: func(ctx context.Context, id int64) (*model.Book, error) {
					if tt.bookErr != nil {
						return nil, tt.bookErr
					}
					return &model.Book{ID: id, Title: "Dune"}, nil
				},
			}
			sender := &mockSender{err: tt.sendErr}
			h := newHandler(t, borrowings, books, sender)

			err := h.Handle(context.Background(), eventMessage(t, events.BorrowingReturned(9)))

			require.Error(t, err)
			assert.Equal(t, tt.wantType, kafka.ClassifyError(err))
			if tt.wantNoSend {
				assert.Empty(t, sender.sent)
			}
		})
	}
}

func TestHandle_MalformedPayloadIsPermanent(t *testing.T) {
	h := newHandler(t, &mockBorrowingFinder{}, &mockBookFinder{}, &mockSender{})

	msg := kafka.Message{Key: "1", Value: []byte("{not json"), Headers: map[string]string{}}
	err := h.Handle(context.Background(), msg)

	require.Error(t, err)
	assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))
}
