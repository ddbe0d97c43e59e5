package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/kidchat/kidchat-api/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("alert_type", validateAlertType); err != nil {
		panic(fmt.Sprintf("failed to register alert_type validator: %v", err))
	}
	if err := Validate.RegisterValidation("alert_severity", validateAlertSeverity); err != nil {
		panic(fmt.Sprintf("failed to register alert_severity validator: %v", err))
	}
	if err := Validate.RegisterValidation("child_age", validateChildAge); err != nil {
		panic(fmt.Sprintf("failed to register child_age validator: %v", err))
	}
}

func validateAlertType(fl validator.FieldLevel) bool {
	switch models.AlertType(fl.Field().String()) {
	case models.AlertTypeSensitiveQuestion, models.AlertTypeBlockedTopic,
		models.AlertTypeBehavior, models.AlertTypeOther:
		return true
	default:
		return false
	}
}

func validateAlertSeverity(fl validator.FieldLevel) bool {
	switch models.AlertSeverity(fl.Field().String()) {
	case models.AlertSeverityLow, models.AlertSeverityMedium, models.AlertSeverityHigh:
		return true
	default:
		return false
	}
}

func validateChildAge(fl validator.FieldLevel) bool {
	age := int(fl.Field().Int())
	return age >= models.MinChildAge && age <= models.MaxChildAge
}

// ValidateChildAge validates a child profile age against the supported range.
func ValidateChildAge(age int) error {
	if age < models.MinChildAge || age > models.MaxChildAge {
		return fmt.Errorf("invalid age: %d (must be between %d and %d)",
			age, models.MinChildAge, models.MaxChildAge)
	}
	return nil
}

// SanitizeText prepares free text for the chat pipeline: trims whitespace,
// strips characters used for prompt/markup injection, and drops control
// characters except newline and tab.
func SanitizeText(text string) string {
	var sanitized strings.Builder
	for _, r := range text {
		switch r {
		case '<', '>', '{', '}', '[', ']', '\\':
			continue
		}
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}
	return strings.TrimSpace(sanitized.String())
}

// ValidatePassword enforces the minimum password policy for parent accounts.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper {
		return fmt.Errorf("password must contain an uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain a lowercase letter")
	}
	if !hasDigit {
		return fmt.Errorf("password must contain a digit")
	}
	return nil
}
