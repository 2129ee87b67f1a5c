package validator

import (
	"bookloans/pkg/model"
	"bookloans/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type BorrowingValidator struct {
	validate *validator.Validate
}

func NewBorrowingValidator() *BorrowingValidator {
	return &BorrowingValidator{
		validate: validation.New(),
	}
}

func (v *BorrowingValidator) ValidateCreate(req *model.BorrowingCreate) error {
	return validation.Struct(v.validate, req)
}

// ValidateReturnDate enforces that a loan ends strictly after the day it
// starts.
func (v *BorrowingValidator) ValidateReturnDate(expected, borrowDate model.Date) error {
	if !expected.After(borrowDate) {
		return validation.Single("expected_return_date", "Expected return date must be after borrow date.")
	}
	return nil
}
