package scheduling

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"gatherbot/internal/errdef"
)

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registering a built-in name again only fails on an empty tag.
	_ = v.RegisterValidation("notblank", notBlank)
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.ToLower(f.Name)
	})
	return v
}

// check runs struct validation and reports the first violation as an
// InvalidFormat error.
func (c *Controller) check(req any) error {
	err := c.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errdef.NewInvalidFormat("invalid request: %v", err)
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required", "notblank":
		return errdef.NewInvalidFormat("%s must not be empty", fe.Field())
	case "max":
		return errdef.NewInvalidFormat("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return errdef.NewInvalidFormat("%s is invalid", fe.Field())
	}
}
