package auth

import (
	"chat-rooms/errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("handle", isHandle)
	return v
}

type Credentials struct {
	Username string `validate:"required,max=50,handle"`
	Password string `validate:"required,max=72"`
}

// ValidateCredentials checks a username/password pair before it reaches the store.
// Blank input is reported as ErrEmptyCredentials, any other rule as ErrInvalidUsername.
func ValidateCredentials(username, password string) error {
	creds := Credentials{Username: strings.TrimSpace(username), Password: password}
	if creds.Username == "" || creds.Password == "" {
		return errors.ErrEmptyCredentials
	}
	if err := validate.Struct(creds); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidUsername, err)
	}
	return nil
}

// isHandle accepts printable usernames without whitespace.
func isHandle(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
