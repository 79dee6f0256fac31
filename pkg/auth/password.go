package auth

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLen = 8
	MaxPasswordLen = 72 // bcrypt ignores input past 72 bytes
	specialChars   = `!@#$%^&*(),.?":{}|<>`
)

// BcryptCost is the work factor for new hashes. Tests lower it.
var BcryptCost = 12

// PasswordValidationError lists every rule the password broke
type PasswordValidationError struct {
	Errors []string
}

func (e *PasswordValidationError) Error() string {
	return "password does not meet requirements"
}

// Detail joins the individual rule failures for an API response
func (e *PasswordValidationError) Detail() string {
	return strings.Join(e.Errors, "; ")
}

// Substrings rejected anywhere in the lowercased password
var weakSequences = []string{"123456", "abcdef", "qwerty", "password"}

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

var (
	dummyOnce sync.Once
	dummyHash []byte
)

// CompareDummy spends the same bcrypt work as ComparePassword against a
// throwaway hash. Login calls it for unknown emails.
func CompareDummy(password string) {
	dummyOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("bastion-dummy-password"), BcryptCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

// ValidatePassword enforces the registration password rules
func ValidatePassword(password string) error {
	errs := make([]string, 0)

	if utf8.RuneCountInString(password) < MinPasswordLen {
		errs = append(errs, fmt.Sprintf("must be at least %d characters", MinPasswordLen))
	}
	if len(password) > MaxPasswordLen {
		errs = append(errs, fmt.Sprintf("must be at most %d bytes", MaxPasswordLen))
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(specialChars, r):
			hasSpecial = true
		}
	}

	if !hasLower {
		errs = append(errs, "must contain at least one lowercase letter")
	}
	if !hasUpper {
		errs = append(errs, "must contain at least one uppercase letter")
	}
	if !hasDigit {
		errs = append(errs, "must contain at least one number")
	}
	if !hasSpecial {
		errs = append(errs, "must contain at least one special character ("+specialChars+")")
	}

	if hasWeakPattern(password) {
		errs = append(errs, "contains a weak pattern")
	}

	if len(errs) > 0 {
		return &PasswordValidationError{Errors: errs}
	}
	return nil
}

// hasWeakPattern reports three identical characters in a row or a common
// sequence such as "qwerty"
func hasWeakPattern(password string) bool {
	lower := strings.ToLower(password)

	var prev rune
	run := 0
	for _, r := range lower {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run >= 3 {
			return true
		}
	}

	for _, seq := range weakSequences {
		if strings.Contains(lower, seq) {
			return true
		}
	}
	return false
}
