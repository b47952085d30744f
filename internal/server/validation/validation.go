// Package validation checks request payloads with go-playground/validator and
// turns failures into a common.ValidationError with one message per field.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/dmitrijs2005/visadesk/internal/common"
	"github.com/go-playground/validator/v10"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// Validator wraps a configured validator.Validate. It is safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator with the "password" and "maxbytes" rules registered.
// Messages name fields by their json tag.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	// registration only fails on an empty tag or nil func
	_ = v.RegisterValidation("password", passwordStrength)
	_ = v.RegisterValidation("maxbytes", maxBytes)

	return &Validator{v: v}
}

// Struct validates s. It returns nil or a *common.ValidationError.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return common.NewValidationError(err.Error())
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, message(fe))
	}
	return common.NewValidationError(msgs...)
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", field)
	case "min":
		return fmt.Sprintf("%q length must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%q length must be less than or equal to %s characters long", field, fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%q must be at most %s bytes long", field, fe.Param())
	case "alphanum":
		return fmt.Sprintf("%q must only contain alpha-numeric characters", field)
	case "email":
		return fmt.Sprintf("%q must be a valid email", field)
	case "password":
		return fmt.Sprintf("%q must contain at least one uppercase letter, one lowercase letter, and one number", field)
	case "oneof":
		return fmt.Sprintf("%q must be one of [%s]", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%q is invalid", field)
	}
}

func passwordStrength(fl validator.FieldLevel) bool {
	var lower, upper, digit bool
	for _, r := range fl.Field().String() {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return lower && upper && digit
}

func maxBytes(fl validator.FieldLevel) bool {
	var limit int
	if _, err := fmt.Sscanf(fl.Param(), "%d", &limit); err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}
