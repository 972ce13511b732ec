package service

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	apperrors "taskmanager/internal/errors"
)

const (
	minPasswordLen = 7
	// bcrypt ignores everything past 72 bytes
	maxPasswordLen = 72
)

var validate = validator.New()

func invalidField(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperrors.ErrInvalidField, fmt.Sprintf(format, args...))
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalidField("name is required")
	}
	return name, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Var(email, "required,email"); err != nil {
		return "", invalidField("email is invalid")
	}
	return email, nil
}

func checkPassword(password string) (string, error) {
	password = strings.TrimSpace(password)
	switch {
	case utf8.RuneCountInString(password) < minPasswordLen:
		return "", invalidField("password must be at least %d characters", minPasswordLen)
	case len(password) > maxPasswordLen:
		return "", invalidField("password must be at most %d bytes", maxPasswordLen)
	case strings.Contains(strings.ToLower(password), "password"):
		return "", invalidField(`password cannot contain "password"`)
	}
	return password, nil
}

func checkAge(age int) error {
	if age < 0 {
		return invalidField("age must be a positive number")
	}
	return nil
}

// stringField extracts a string from a decoded JSON object.
func stringField(key string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", invalidField("%s must be a string", key)
	}
	return s, nil
}

// intField accepts JSON numbers without a fractional part.
func intField(key string, v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt32 || n < math.MinInt32 {
			return 0, invalidField("%s must be an integer", key)
		}
		return int(n), nil
	default:
		return 0, invalidField("%s must be a number", key)
	}
}

func boolField(key string, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, invalidField("%s must be a boolean", key)
	}
	return b, nil
}

// checkAllowed rejects the whole update if any key is outside allowed.
// An empty update is allowed and changes nothing.
func checkAllowed(fields map[string]any, allowed ...string) error {
	for key := range fields {
		ok := false
		for _, a := range allowed {
			if key == a {
				ok = true
				break
			}
		}
		if !ok {
			return invalidField("invalid updates: %s", key)
		}
	}
	return nil
}

// normalizeLogin matches the stored form of an email without validating it.
func normalizeLogin(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
