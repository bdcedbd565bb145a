package utils

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/Mateusz-G541/pokedex-auth-service/pkg/constants"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/errors"
)

// PasswordSpecialChars is the set of characters that satisfy the special-character rule.
const PasswordSpecialChars = "@$!%*?&"

const passwordStrengthMessage = "Password must contain at least one uppercase letter, one lowercase letter, one number, and one special character"

var (
	defaultValidator = newValidator()
	emailValidator   = validator.New()
)

func newValidator() *validator.Validate {
	v := validator.New()
	// registration only fails on an empty tag or nil func
	_ = RegisterCustomValidations(v)
	return v
}

// RegisterCustomValidations installs the service's custom rules and reports field names by
// their json tag. It is applied to gin's binding engine at router construction.
func RegisterCustomValidations(v *validator.Validate) error {
	v.RegisterTagNameFunc(jsonFieldName)
	if err := v.RegisterValidation("strong_password", validateStrongPassword); err != nil {
		return fmt.Errorf("register strong_password: %w", err)
	}
	if err := v.RegisterValidation("role", validateRole); err != nil {
		return fmt.Errorf("register role: %w", err)
	}
	if err := v.RegisterValidation("email_address", validateEmailAddress); err != nil {
		return fmt.Errorf("register email_address: %w", err)
	}
	return nil
}

// NormalizeEmail trims surrounding whitespace and lower-cases email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateStruct validates a struct using the default validator.
// It returns ErrValidation with per-field details if validation fails.
func ValidateStruct(s interface{}) *errors.AppError {
	if err := defaultValidator.Struct(s); err != nil {
		return ValidationError(err)
	}
	return nil
}

// ValidationError converts a validator error into ErrValidation with per-field details.
// Errors of any other kind become ErrInvalidRequest.
func ValidationError(err error) *errors.AppError {
	var validationErrors validator.ValidationErrors
	if !stderrors.As(err, &validationErrors) {
		return errors.ErrInvalidRequest.WithError(err)
	}
	details := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		details[fe.Field()] = formatValidationError(fe)
	}
	return errors.ErrValidation.WithDetails(details)
}

// IsStrongPassword reports whether password satisfies the password policy.
func IsStrongPassword(password string) bool {
	if len(password) < constants.MinPasswordLength {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(PasswordSpecialChars, r):
			special = true
		}
	}
	return upper && lower && digit && special
}

func validateStrongPassword(fl validator.FieldLevel) bool {
	return IsStrongPassword(fl.Field().String())
}

// validateEmailAddress applies the email rule to the normalized address, so padding and case
// never fail a request that the services would accept.
func validateEmailAddress(fl validator.FieldLevel) bool {
	return emailValidator.Var(NormalizeEmail(fl.Field().String()), "email") == nil
}

func validateRole(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "USER", "ADMINISTRATOR":
		return true
	}
	return false
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

// formatValidationError creates a user-friendly error message for a validation error.
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "required_with":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email", "email_address":
		return "Please provide a valid email address"
	case "strong_password":
		return passwordStrengthMessage
	case "role":
		return "Role must be either USER or ADMINISTRATOR"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed on the '%s' rule", fe.Field(), fe.Tag())
	}
}

// ValidateEmail checks if a string is a valid email address.
func ValidateEmail(email string) bool {
	return defaultValidator.Var(email, "required,email_address") == nil
}
