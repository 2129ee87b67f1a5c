package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"bookloans/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	messages := make([]string, 0, len(v))
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Details renders the errors as field -> message for an API response.
func (v ValidationErrors) Details() map[string]any {
	details := make(map[string]any, len(v))
	for _, err := range v {
		details[err.Field] = err.Message
	}
	return details
}

func Single(field, message string) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message}}
}

// New returns a validator that reports fields by their JSON name and treats
// a zero model.Date as missing.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		d, ok := field.Interface().(model.Date)
		if !ok || d.IsZero() {
			return nil
		}
		return d.String()
	}, model.Date{})

	return v
}

// Struct runs v against s and converts field failures to ValidationErrors.
func Struct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return Translate(validationErrs)
	}
	return err
}

func Translate(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = "This field is required."
		case "min":
			message = fmt.Sprintf("Ensure this field has at least %s characters.", err.Param())
		case "max":
			message = fmt.Sprintf("Ensure this field has no more than %s characters.", err.Param())
		case "oneof":
			message = fmt.Sprintf("Must be one of: %s.", err.Param())
		case "gt":
			message = fmt.Sprintf("Must be greater than %s.", err.Param())
		case "gte":
			message = fmt.Sprintf("Must be greater than or equal to %s.", err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
