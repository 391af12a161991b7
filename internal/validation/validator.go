// Package validation checks request payloads before they reach services.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"tierpay/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("money", validateMoney)
		_ = validate.RegisterValidation("credential", validateCredential)
	})
	return validate
}

// Struct validates v and returns field -> message pairs, or nil when v is valid.
func Struct(v interface{}) map[string]string {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "uuid4", "uuid":
		return "must be a valid id"
	case "money":
		return fmt.Sprintf("must be a non-negative amount up to %s with at most two decimals", models.MaxMoneyAmount.StringFixed(2))
	case "credential":
		return fmt.Sprintf("must be %d-%d characters without spaces", MinCredentialLength, MaxCredentialLength)
	}
	return "is invalid"
}

// validateMoney accepts a decimal string such as "12.50".
func validateMoney(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	if s == "" {
		return false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() || d.GreaterThan(models.MaxMoneyAmount) {
		return false
	}
	return d.Exponent() >= -2 || d.Equal(d.Truncate(2))
}

func validateCredential(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) < MinCredentialLength || len(s) > MaxCredentialLength {
		return false
	}
	return !strings.ContainsAny(s, " \t\r\n")
}
