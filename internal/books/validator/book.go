package validator

import (
	"bookloans/pkg/model"
	"bookloans/pkg/validation"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// maxDailyFee is the first value that no longer fits five digits with two
// decimal places.
var maxDailyFee = decimal.NewFromInt(1000)

type BookValidator struct {
	validate *validator.Validate
}

func NewBookValidator() *BookValidator {
	return &BookValidator{
		validate: validation.New(),
	}
}

func (v *BookValidator) Validate(book *model.Book) error {
	if err := validation.Struct(v.validate, book); err != nil {
		return err
	}
	return v.validateDailyFee(book.DailyFee)
}

func (v *BookValidator) ValidateUpdate(updates *model.BookUpdate) error {
	if updates.IsEmpty() {
		return validation.Single("body", "At least one of title, author, cover or daily_fee must be provided.")
	}
	if err := validation.Struct(v.validate, updates); err != nil {
		return err
	}
	if updates.DailyFee != nil {
		return v.validateDailyFee(*updates.DailyFee)
	}
	return nil
}

func (v *BookValidator) validateDailyFee(fee decimal.Decimal) error {
	switch {
	case fee.IsNegative():
		return validation.Single("daily_fee", "Ensure this value is greater than or equal to 0.")
	case !fee.Equal(fee.Round(2)):
		return validation.Single("daily_fee", "Ensure that there are no more than 2 decimal places.")
	case fee.GreaterThanOrEqual(maxDailyFee):
		return validation.Single("daily_fee", "Ensure that there are no more than 5 digits in total.")
	}
	return nil
}
