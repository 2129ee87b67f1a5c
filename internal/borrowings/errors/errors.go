package errors

import "errors"

var (
	ErrNotFound = errors.New("borrowing not found")

	ErrUnavailable       = errors.New("book is not available")
	ErrAlreadyReturned   = errors.New("borrowing already returned")
	ErrForbidden         = errors.New("borrowing belongs to another user")
	ErrInvalidFilter     = errors.New("invalid borrowing filter")
	ErrInvalidReturnDate = errors.New("expected return date must be after borrow date")
)
