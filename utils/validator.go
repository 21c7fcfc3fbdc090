package utils

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct runs the `validate` struct tags and returns the first
// violation as a readable error.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return fmt.Errorf("%s is required", fe.Field())
		case "gt":
			return fmt.Errorf("%s must be greater than %s", fe.Field(), fe.Param())
		case "oneof":
			return fmt.Errorf("%s must be one of %s", fe.Field(), fe.Param())
		default:
			return fmt.Errorf("%s is invalid", fe.Field())
		}
	}
	return err
}
