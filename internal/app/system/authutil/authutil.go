// internal/app/system/authutil/authutil.go
package authutil

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	// bcryptCost balances hash strength against sign-in latency.
	bcryptCost = 12

	minPasswordLen = 8
	// bcrypt truncates input beyond 72 bytes; reject rather than silently truncate.
	maxPasswordLen = 72
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong  = errors.New("password must be at most 72 characters")
)

// HashPassword hashes a password using bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword enforces the length rules for new passwords.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLen {
		return ErrPasswordTooShort
	}
	if len(password) > maxPasswordLen {
		return ErrPasswordTooLong
	}
	return nil
}

// PasswordRules describes the password requirements for display to users.
func PasswordRules() string {
	return "Passwords must be 8 to 72 characters long."
}
