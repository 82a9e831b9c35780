package serverutils

import (
	"errors"
	"fmt"
	"strings"

	"tarik-chat-be/pkg/chat/chaterr"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct checks the validate tags of payload. Failures are reported
// as chaterr.ErrValidationFailed with one clause per field.
func ValidateStruct(payload interface{}) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", chaterr.ErrValidationFailed, err)
	}

	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "email":
			parts = append(parts, fmt.Sprintf("%s must be a valid email", fe.Field()))
		case "min", "max":
			parts = append(parts, fmt.Sprintf("%s must have %s %s", fe.Field(), fe.Tag(), fe.Param()))
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		case "eqfield":
			parts = append(parts, fmt.Sprintf("%s must match %s", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", chaterr.ErrValidationFailed, strings.Join(parts, "; "))
}
