package auth

import (
	"dm-lab/errors"
	stderrors "errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// ValidateRegister reports every failing field as a *errors.ValidationError. Password failures also
// match errors.ErrInvalidPassword.
func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		var fieldErrors validator.ValidationErrors
		if !stderrors.As(err, &fieldErrors) {
			return err
		}
		verr := &errors.ValidationError{Fields: make(map[string]string, len(fieldErrors))}
		for _, fe := range fieldErrors {
			verr.Fields[fe.Field()] = fe.Tag()
			if fe.Field() == "password" {
				verr.Cause = errors.ErrInvalidPassword
			}
		}
		return verr
	}
	if !isPasswordComplex(req.Password) {
		return errors.NewValidationError("password", "complexity", errors.ErrInvalidPassword)
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// isPasswordComplex requires at least one upper case letter, one lower case letter, one digit and one
// punctuation or symbol.
func isPasswordComplex(s string) bool {
	var upper, lower, digit, special bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsNumber(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	return upper && lower && digit && special
}
