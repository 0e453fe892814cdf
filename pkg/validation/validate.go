package validation

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator instance with custom
// trust-domain validators registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("transaction_status", validTransactionStatus)
		_ = validate.RegisterValidation("rating", validRating)
	})
	return validate
}

// ValidateStruct validates a struct and converts validator errors into a
// *ValidationError with human-readable field messages.
func ValidateStruct(s interface{}) error {
	if err := Validator().Struct(s); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			return NewValidationError(errs)
		}
		return err
	}
	return nil
}

func validTransactionStatus(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "pending", "done", "cancelled", "expired", "no_deal", "scam", "disputed":
		return true
	}
	return false
}

func validRating(fl validator.FieldLevel) bool {
	r := fl.Field().Int()
	return r >= 1 && r <= 5
}
