package services

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/dmitrijs2005/appauth/internal/common"
	"github.com/go-playground/validator/v10"
)

type signupInput struct {
	Name     string `label:"name" validate:"required"`
	Email    string `label:"email" validate:"required"`
	Password []byte `label:"password" validate:"required,min=1"`
}

type loginInput struct {
	Email    string `label:"email" validate:"required"`
	Password []byte `label:"password" validate:"required,min=1"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if l := f.Tag.Get("label"); l != "" {
			return l
		}
		return f.Name
	})
	return v
}

// validateInput checks in after the caller trimmed it and wraps failures as
// common.ErrValidation.
func validateInput(v *validator.Validate, in any) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", common.ErrValidation, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "min":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return fmt.Errorf("%w: %s", common.ErrValidation, strings.Join(msgs, "; "))
}

func newSignupInput(name, email string, password []byte) signupInput {
	return signupInput{
		Name:     strings.TrimSpace(name),
		Email:    strings.TrimSpace(email),
		Password: bytes.TrimSpace(password),
	}
}

func newLoginInput(email string, password []byte) loginInput {
	return loginInput{
		Email:    strings.TrimSpace(email),
		Password: bytes.TrimSpace(password),
	}
}
