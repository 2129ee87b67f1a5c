package model

type UserRef struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type Borrowing struct {
	ID                 int64   `json:"id"`
	BorrowDate         Date    `json:"borrow_date"`
	ExpectedReturnDate Date    `json:"expected_return_date"`
	ActualReturnDate   *Date   `json:"actual_return_date"`
	BookID             int64   `json:"book_id"`
	Book               *Book   `json:"book,omitempty"`
	User               UserRef `json:"user"`
}

func (b *Borrowing) IsActive() bool {
	return b.ActualReturnDate == nil
}

// IsOverdue reports whether the loan is still open past its expected return date.
func (b *Borrowing) IsOverdue(today Date) bool {
	return b.IsActive() && b.ExpectedReturnDate.Before(today)
}

type BorrowingCreate struct {
	ExpectedReturnDate Date  `json:"expected_return_date" validate:"required"`
	BookID             int64 `json:"book" validate:"required,gt=0"`
}

type ReturnResult struct {
	Message string     `json:"message"`
	Data    *Borrowing `json:"data"`
}

// BorrowingFilter narrows a borrowing listing. A nil IsActive matches both
// open and returned loans; an empty UserIDs matches every user.
type BorrowingFilter struct {
	IsActive *bool
	UserIDs  []int64
}
