package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/campuskit/access-api/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	// These should never fail in normal operation, but log if they do
	if err := Validate.RegisterValidation("role_name", validateRoleName); err != nil {
		panic(fmt.Sprintf("failed to register role_name validator: %v", err))
	}
	if err := Validate.RegisterValidation("user_type", validateUserType); err != nil {
		panic(fmt.Sprintf("failed to register user_type validator: %v", err))
	}
}

func validateRoleName(fl validator.FieldLevel) bool {
	return ValidateRoleName(fl.Field().String()) == nil
}

func validateUserType(fl validator.FieldLevel) bool {
	return ValidateUserType(fl.Field().String()) == nil
}

// SanitizeText trims whitespace and strips control characters (newline and
// tab excepted) from caller-supplied text such as display names.
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateRoleName reports whether value is a known role name.
func ValidateRoleName(value string) error {
	if !models.Role(value).IsValid() {
		return fmt.Errorf("invalid role: %s", value)
	}
	return nil
}

// ValidateUserType reports whether value is a known user type name.
func ValidateUserType(value string) error {
	if !models.UserType(value).IsValid() {
		return fmt.Errorf("invalid user type: %s", value)
	}
	return nil
}
