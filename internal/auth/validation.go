package auth

import (
	"regexp"
	"sync"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	apperrors "github.com/zfogg/vlogbook/backend/internal/errors"
)

const (
	maxUsernameLength = 35
	minPasswordLength = 8
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// ValidUsername reports whether username is 1..35 letters, digits or @.+-_
func ValidUsername(username string) bool {
	n := utf8.RuneCountInString(username)
	return n > 0 && n <= maxUsernameLength && usernamePattern.MatchString(username)
}

// ValidateUsername checks the username format
func ValidateUsername(username string) error {
	if !ValidUsername(username) {
		return apperrors.ValidationError("username", "enter a valid username of at most 35 letters, digits and @/./+/-/_ characters")
	}
	return nil
}

// ValidatePassword enforces the minimum password length
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return apperrors.ValidationError("password", "password must be at least 8 characters")
	}
	return nil
}

var registerOnce sync.Once

// RegisterBindingValidators adds the "username" tag to gin's request validator
func RegisterBindingValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return ValidUsername(fl.Field().String())
		})
	})
}
