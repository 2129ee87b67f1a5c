// Package events defines the notification contract published on the
// library notifications topic.
package events

import (
	"fmt"
	"strconv"
	"time"

	"bookloans/pkg/kafka"
)

const (
	TypeBorrowingCreated  = "borrowing.created"
	TypeBorrowingReturned = "borrowing.returned"
	TypeBorrowingOverdue  = "borrowing.overdue"

	SchemaVersion = "1"
	Source        = "bookloans"
)

// Event is the payload of every notification message. Text is only set for
// borrowing.created, which carries its rendered message.
type Event struct {
	Type        string    `json:"type"`
	BorrowingID int64     `json:"borrowing_id"`
	Text        string    `json:"text,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func BorrowingCreated(borrowingID int64, text string) Event {
	return Event{Type: TypeBorrowingCreated, BorrowingID: borrowingID, Text: text, OccurredAt: time.Now().UTC()}
}

func BorrowingReturned(borrowingID int64) Event {
	return Event{Type: TypeBorrowingReturned, BorrowingID: borrowingID, OccurredAt: time.Now().UTC()}
}

func BorrowingOverdue(borrowingID int64) Event {
	return Event{Type: TypeBorrowingOverdue, BorrowingID: borrowingID, OccurredAt: time.Now().UTC()}
}

// Message keys the record by borrowing id so events for one loan stay ordered.
func (e Event) Message(correlationID string) (kafka.Message, error) {
	return kafka.NewMessage().
		WithKey(strconv.FormatInt(e.BorrowingID, 10)).
		WithValue(e).
		WithEventID("").
		WithEventType(e.Type).
		WithCorrelationID(correlationID).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		WithTimestamp(e.OccurredAt).
		Build()
}

// Decode parses a notification message. Malformed payloads are permanent
// errors so the consumer parks them instead of retrying.
func Decode(msg kafka.Message) (Event, error) {
	var e Event
	if err := msg.DecodeValue(&e); err != nil {
		return Event{}, kafka.NewPermanentError("malformed notification payload", err)
	}

	switch e.Type {
	case TypeBorrowingCreated:
		if e.Text == "" {
			return Event{}, kafka.NewPermanentError("borrowing.created without text", kafka.ErrInvalidMessage)
		}
	case TypeBorrowingReturned, TypeBorrowingOverdue:
	default:
		return Event{}, kafka.NewPermanentError(fmt.Sprintf("unknown event type %q", e.Type), kafka.ErrInvalidMessage)
	}

	if e.BorrowingID <= 0 {
		return Event{}, kafka.NewPermanentError("event without borrowing id", kafka.ErrInvalidMessage)
	}

	return e, nil
}
