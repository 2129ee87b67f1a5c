package errors

import "errors"

var (
	ErrNotFound = errors.New("book not found")

	// ErrOutOfStock is returned by the guarded decrement when the book
	// exists but has no copies left.
	ErrOutOfStock = errors.New("book has no copies available")
)
