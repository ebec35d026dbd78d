package httpx

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// StructValidator adapts go-playground/validator to echo.Validator. Field
// names in messages use the json tag.
type StructValidator struct {
	v *validator.Validate
}

func NewStructValidator() *StructValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &StructValidator{v: v}
}

// Validate returns a 400 HTTP error describing every failed field.
func (s *StructValidator) Validate(i any) error {
	err := s.v.Struct(i)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return HTTPError(StatusBadRequest, err.Error())
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fe.Field()+" "+describe(fe))
	}
	return HTTPError(StatusBadRequest, strings.Join(messages, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "uuid":
		return "must be a valid UUID"
	default:
		return "is invalid"
	}
}

// Bind decodes the request body into dst and validates it. Decode failures
// and validation failures are both reported as 400.
func Bind(c Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return HTTPError(StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(dst); err != nil {
		return err
	}
	return nil
}
