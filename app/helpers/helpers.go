package helpers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("amount must be a non-negative number")

func FormatValidationErrors(errs validator.ValidationErrors) map[string]string {
	errorMessages := make(map[string]string)
	for _, err := range errs {
		field := strings.ToLower(err.Field())
		switch err.Tag() {
		case "required":
			errorMessages[field] = fmt.Sprintf("%s is required.", field)
		case "min", "gte":
			errorMessages[field] = fmt.Sprintf("%s must be at least %s.", field, err.Param())
		case "max":
			errorMessages[field] = fmt.Sprintf("%s must be at most %s characters.", field, err.Param())
		default:
			errorMessages[field] = fmt.Sprintf("%s failed %s validation.", field, err.Tag())
		}
	}
	return errorMessages
}

// ParseAmount reads a non-negative money amount such as a shipping fee
// override. A leading currency symbol is tolerated.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "$")
	amount, err := decimal.NewFromString(raw)
	if err != nil || amount.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount, nil
}
