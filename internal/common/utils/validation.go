package utils

import (
	"regexp"
	"strings"
	"time"

	"github.com/hirosato/ledger-engine/backend/internal/domain/errors"
)

var (
	// DateRegex validates ISO 8601 date strings (YYYY-MM-DD)
	DateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	// CurrencyRegex validates ISO 4217 style currency codes
	CurrencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)

	// AccountCodeRegex validates chart-of-accounts codes
	AccountCodeRegex = regexp.MustCompile(`^[0-9]{2,10}$`)
)

// DateLayout is the layout used for posting dates
const DateLayout = "2006-01-02"

// ParseISODate validates and parses an ISO 8601 date string (YYYY-MM-DD)
func ParseISODate(date string) (time.Time, error) {
	if !DateRegex.MatchString(date) {
		return time.Time{}, errors.NewValidationError("invalid date format, should be YYYY-MM-DD")
	}

	parsed, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, errors.NewValidationError("invalid date value")
	}

	return parsed, nil
}

// ValidateCurrency validates a currency code
func ValidateCurrency(currency string) error {
	if !CurrencyRegex.MatchString(currency) {
		return errors.NewValidationError("invalid currency code, should be a 3-letter code (e.g., USD)")
	}
	return nil
}

// ValidateAccountCode validates a chart-of-accounts code
func ValidateAccountCode(code string) error {
	if !AccountCodeRegex.MatchString(code) {
		return errors.NewValidationError("invalid account code, should be 2-10 digits")
	}
	return nil
}

// ValidateTenantID validates a tenant ID
func ValidateTenantID(tenantID string) error {
	if strings.TrimSpace(tenantID) == "" {
		return errors.NewTenantError("tenant ID is required")
	}
	return nil
}

// ValidateRequiredString validates that a string is not empty
func ValidateRequiredString(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return errors.NewValidationError(fieldName + " is required")
	}
	return nil
}

// TruncateToDate drops the clock part of t, keeping the UTC calendar day
func TruncateToDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
