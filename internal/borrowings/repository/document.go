package repository

import (
	"time"

	"bookloans/pkg/model"
)

type userDocument struct {
	ID    int64  `bson:"id"`
	Email string `bson:"email"`
}

type borrowingDocument struct {
	ID                 int64        `bson:"_id"`
	BorrowDate         time.Time    `bson:"borrow_date"`
	ExpectedReturnDate time.Time    `bson:"expected_return_date"`
	ActualReturnDate   *time.Time   `bson:"actual_return_date"`
	BookID             int64        `bson:"book_id"`
	User               userDocument `bson:"user"`
}

func toDocument(b *model.Borrowing) *borrowingDocument {
	doc := &borrowingDocument{
		ID:                 b.ID,
		BorrowDate:         b.BorrowDate.Time(),
		ExpectedReturnDate: b.ExpectedReturnDate.Time(),
		BookID:             b.BookID,
		User:               userDocument{ID: b.User.ID, Email: b.User.Email},
	}
	if b.ActualReturnDate != nil {
		t := b.ActualReturnDate.Time()
		doc.ActualReturnDate = &t
	}
	return doc
}

func (d *borrowingDocument) toModel() *model.Borrowing {
	b := &model.Borrowing{
		ID:                 d.ID,
		BorrowDate:         model.DateOf(d.BorrowDate.UTC()),
		ExpectedReturnDate: model.DateOf(d.ExpectedReturnDate.UTC()),
		BookID:             d.BookID,
		User:               model.UserRef{ID: d.User.ID, Email: d.User.Email},
	}
	if d.ActualReturnDate != nil {
		returned := model.DateOf(d.ActualReturnDate.UTC())
		b.ActualReturnDate = &returned
	}
	return b
}
