// Package validation checks inbound request bodies.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aframp/aframp_backend/internal/stellar"
)

// Validator wraps go-playground/validator with the Stellar tags:
// stellar_account, stellar_amount and asset_code.
type Validator struct {
	validate *validator.Validate
}

// New registers the custom tags and returns a ready validator.
func New() *Validator {
	v := &Validator{validate: validator.New()}
	v.validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.validate.RegisterValidation("stellar_account", func(fl validator.FieldLevel) bool {
		return stellar.IsValidAccountID(fl.Field().String())
	})
	_ = v.validate.RegisterValidation("stellar_amount", func(fl validator.FieldLevel) bool {
		_, err := stellar.ParsePositiveAmount("", fl.Field().String())
		return err == nil
	})
	_ = v.validate.RegisterValidation("asset_code", func(fl validator.FieldLevel) bool {
		return stellar.ValidateAssetCode("", fl.Field().String()) == nil
	})
	return v
}

// FieldErrors maps request fields to a human readable problem.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, f[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Struct validates s and returns FieldErrors on failure.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := FieldErrors{}
	for _, e := range verrs {
		out[e.Field()] = message(e)
	}
	return out
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "stellar_account":
		return "must be a 56 character account id starting with G"
	case "stellar_amount":
		return "must be a positive amount with at most 7 decimal places"
	case "asset_code":
		return "must be 1-12 alphanumeric characters"
	case "oneof":
		return "must be one of " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "min":
		return "must be at least " + e.Param()
	default:
		return "failed " + e.Tag()
	}
}
