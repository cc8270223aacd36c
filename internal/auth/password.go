package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen      = 8
	maxPasswordLen      = 72 // bcrypt input limit
	maxSimilarityRatio  = 0.7
	minSimilarityLength = 3
)

// HashPassword hashes plaintext password using bcrypt.
func HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares plaintext password with stored hash.
func VerifyPassword(hash, password string) error {
	if hash == "" {
		return errors.New("password hash is empty")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// CheckPassword enforces the password policy: 8 to 72 bytes, at least one
// lowercase letter, one uppercase letter and one digit, and not too similar
// to any of the related attributes (email, name).
func CheckPassword(password string, related ...string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrWeakPassword, minPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrWeakPassword, maxPasswordLen)
	}
	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !lower || !upper || !digit {
		return fmt.Errorf("%w: password must contain a lowercase letter, an uppercase letter and a digit", ErrWeakPassword)
	}
	pw := strings.ToLower(password)
	for _, attr := range related {
		for _, part := range similarityParts(attr) {
			if tooSimilar(pw, part) {
				return fmt.Errorf("%w: password is too similar to your personal details", ErrWeakPassword)
			}
		}
	}
	return nil
}

// similarityParts yields the attribute and its word-like pieces, so
// "ada.lovelace@example.com" is compared as a whole and as "ada", "lovelace".
func similarityParts(attr string) []string {
	attr = strings.ToLower(strings.TrimSpace(attr))
	if attr == "" {
		return nil
	}
	parts := []string{attr}
	if at := strings.IndexByte(attr, '@'); at > 0 {
		parts = append(parts, attr[:at])
	}
	for _, p := range strings.FieldsFunc(attr, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(p) >= minSimilarityLength {
			parts = append(parts, p)
		}
	}
	return parts
}

func tooSimilar(password, attr string) bool {
	if len(attr) < minSimilarityLength {
		return false
	}
	m := difflib.NewMatcher(strings.Split(password, ""), strings.Split(attr, ""))
	return m.QuickRatio() >= maxSimilarityRatio && m.Ratio() >= maxSimilarityRatio
}
