package auth

import (
	"channel-chat/errors"
	"channel-chat/infrastructure/wire"
	"fmt"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateTokenRequest checks the identity a development token is requested for.
// User ids are made of letters, digits, '-', '_' and '.'.
func ValidateTokenRequest(req wire.TokenRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidPayload, err)
	}
	if !isUserID(req.UserID) {
		return fmt.Errorf("%w: user id %q", errors.ErrInvalidPayload, req.UserID)
	}
	return nil
}

func isUserID(s string) bool {
	for _, char := range s {
		switch {
		case unicode.IsLetter(char), unicode.IsDigit(char):
		case char == '-', char == '_', char == '.':
		default:
			return false
		}
	}
	return s != ""
}
